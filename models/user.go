package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TelegramUser is the profile the mini-app and the bot attach to every request.
type TelegramUser struct {
	ID              int64  `json:"id" validate:"required"`
	Username        string `json:"username" validate:"max=64"`
	FirstName       string `json:"first_name,omitempty"`
	LastName        string `json:"last_name,omitempty"`
	LanguageCode    string `json:"language_code,omitempty"`
	AllowsWriteToPM bool   `json:"allows_write_to_pm,omitempty"`
}

// User holds identity, referral chain and ledger state for one Telegram account.
// (external_id, username) identifies the account; referral_code is unique once minted.
type User struct {
	ID              string `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalID      int64  `gorm:"uniqueIndex:idx_users_identity;not null" json:"externalId"`
	Username        string `gorm:"uniqueIndex:idx_users_identity;not null;default:''" json:"username"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	LanguageCode    string `json:"languageCode"`
	AllowsWriteToPM bool   `json:"allowsWriteToPm"`

	// Ledger
	PointsNo        float64 `gorm:"not null;default:0" json:"pointsNo"`
	ReferralPoints  int64   `gorm:"not null;default:0" json:"referralPoints"`
	ReferralContest int64   `gorm:"not null;default:0" json:"referralContest"`
	PointsToday     int     `gorm:"not null;default:0" json:"pointsToday"`

	// Referral chain
	ReferralCode string `gorm:"uniqueIndex:idx_users_referral_code,where:referral_code <> '';not null;default:''" json:"referralCode"`
	ReferrerCode string `gorm:"index;not null;default:''" json:"referrerCode"`
	ReferredBy   bool   `json:"referredBy"`

	EarlyAdopterBonusClaimed bool `json:"earlyAdopterBonusClaimed"`

	LastLogin *time.Time `json:"lastLogin,omitempty"`
	NextLogin *time.Time `json:"nextLogin,omitempty"`

	SocialRewards []SocialReward `gorm:"foreignKey:UserID" json:"socialRewardDeets"`
	DailyRewards  []DailyReward  `gorm:"foreignKey:UserID" json:"referralRewardDeets"`

	Timestamps
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// SocialReward is one claimable social task in a user's collection.
// Rows are only ever added; (user_id, claim_key) is unique.
type SocialReward struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID   string `gorm:"type:uuid;uniqueIndex:idx_social_rewards_user_claim;not null" json:"-"`
	ClaimKey string `gorm:"uniqueIndex:idx_social_rewards_user_claim;not null" json:"claimTreshold"`
	Position int    `gorm:"not null;default:0" json:"position"`
	Claimed  bool   `gorm:"not null;default:false" json:"rewardClaimed"`

	TaskDetails `gorm:"embedded"`

	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

func (r *SocialReward) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// DailyReward is one slot of the bounded daily/referral reward strip.
type DailyReward struct {
	ID       string  `gorm:"primaryKey;type:uuid" json:"id"`
	UserID   string  `gorm:"type:uuid;uniqueIndex:idx_daily_rewards_user_claim;not null" json:"-"`
	ClaimKey string  `gorm:"uniqueIndex:idx_daily_rewards_user_claim;not null" json:"claimTreshold"`
	Position int     `gorm:"not null;default:0" json:"position"`
	Claimed  bool    `gorm:"not null;default:false" json:"rewardClaimed"`
	Points   float64 `gorm:"not null;default:0" json:"points"`

	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

func (r *DailyReward) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updatedAt" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}
