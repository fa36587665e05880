package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RewardCycle tracks a user's rolling 7-day streak of daily claims.
type RewardCycle struct {
	ID             string      `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalID     int64       `gorm:"uniqueIndex;not null" json:"userId"`
	CycleStartDate time.Time   `gorm:"not null" json:"cycleStartDate"`
	DailyClaims    []time.Time `gorm:"serializer:json" json:"dailyClaims"`
	LastDayClaimed int         `gorm:"not null;default:0" json:"lastDayClaimed"`
	TotalPoints    float64     `gorm:"not null;default:0" json:"totalPoints"`

	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

func (c *RewardCycle) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// ClaimedOn reports whether a claim was recorded on the UTC calendar day of t.
func (c *RewardCycle) ClaimedOn(t time.Time) bool {
	y, m, d := t.UTC().Date()
	for _, claim := range c.DailyClaims {
		cy, cm, cd := claim.UTC().Date()
		if cy == y && cm == m && cd == d {
			return true
		}
	}
	return false
}
