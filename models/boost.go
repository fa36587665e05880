package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BoostEntry is a participant of the code-gated boost competition.
// It keeps its own point pool; credits are mirrored into User.PointsNo.
type BoostEntry struct {
	ID                string    `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalID        int64     `gorm:"uniqueIndex;not null" json:"userId"`
	BoostCode         string    `gorm:"uniqueIndex;not null" json:"boostCode"`
	ReferrerBoostCode string    `gorm:"index;not null;default:''" json:"referrerBoostCode"`
	PointsNo          float64   `gorm:"not null;default:0" json:"pointsNo"`
	ReferralPoints    int64     `gorm:"not null;default:0" json:"referralPoints"`
	BoostActivated    bool      `gorm:"not null;default:false" json:"boostActivated"`
	RegistrationTime  time.Time `gorm:"not null;index" json:"registrationTime"`

	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

func (b *BoostEntry) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}
