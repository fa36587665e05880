package models

import "gorm.io/gorm"

// AutoMigrate creates or updates every table the ledger owns.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&SocialReward{},
		&DailyReward{},
		&Task{},
		&RewardCycle{},
		&BoostEntry{},
		&LeaderboardEntry{},
		&ReferralLeaderboardEntry{},
	)
}
