package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LeaderboardEntry is a row of the score snapshot (pointsNo x referralPoints).
// The whole table is replaced on every materialization run.
type LeaderboardEntry struct {
	ID             string    `gorm:"primaryKey;type:uuid" json:"id"`
	Position       int       `gorm:"index;not null" json:"position"`
	UserID         string    `gorm:"type:uuid;not null" json:"userId"`
	ExternalID     int64     `gorm:"not null" json:"externalId"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	Username       string    `json:"username"`
	PointsNo       float64   `json:"pointsNo"`
	ReferralPoints int64     `json:"referralPoints"`
	TotalScore     float64   `json:"totalScore"`
	CreatedAt      time.Time `json:"createdAt" gorm:"autoCreateTime"`
}

func (e *LeaderboardEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

// ReferralLeaderboardEntry is a row of the referral-contest snapshot.
type ReferralLeaderboardEntry struct {
	ID              string    `gorm:"primaryKey;type:uuid" json:"id"`
	Position        int       `gorm:"index;not null" json:"position"`
	UserID          string    `gorm:"type:uuid;not null" json:"userId"`
	ExternalID      int64     `gorm:"not null" json:"externalId"`
	FirstName       string    `json:"firstName"`
	LastName        string    `json:"lastName"`
	Username        string    `json:"username"`
	PointsNo        float64   `json:"pointsNo"`
	ReferralContest int64     `json:"referralPoints"`
	CreatedAt       time.Time `json:"createdAt" gorm:"autoCreateTime"`
}

func (e *ReferralLeaderboardEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
