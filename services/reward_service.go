// services/reward_service.go
package services

import (
	"log"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/neweracoin/wfdropbackend/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// DailySlots bounds a user's daily reward strip.
	DailySlots = 7
	// FinalDailyKey is the last slot; claiming it re-arms the whole strip.
	FinalDailyKey = "35"
	// DefaultStaleAfter is how long after lastLogin daily claims are cleared.
	DefaultStaleAfter = 24 * time.Hour
)

// DefaultDailyCatalog seeds the daily strip of users that have none.
var DefaultDailyCatalog = []models.DailyReward{
	{ClaimKey: "5", Position: 0, Points: 5},
	{ClaimKey: "10", Position: 1, Points: 10},
	{ClaimKey: "15", Position: 2, Points: 15},
	{ClaimKey: "20", Position: 3, Points: 20},
	{ClaimKey: "25", Position: 4, Points: 25},
	{ClaimKey: "30", Position: 5, Points: 30},
	{ClaimKey: FinalDailyKey, Position: 6, Points: 35},
}

// RewardService runs the social task and daily strip claim protocols.
type RewardService struct {
	DB         *gorm.DB
	Clock      clockwork.Clock
	StaleAfter time.Duration
}

func NewRewardService(db *gorm.DB, clock clockwork.Clock, staleAfter time.Duration) *RewardService {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &RewardService{DB: db, Clock: clock, StaleAfter: staleAfter}
}

// NextMidnight returns the next UTC day boundary after t.
func NextMidnight(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
}

func requireClaimKey(claimKey string) error {
	if claimKey == "" {
		return &ValidationError{Field: "claimTreshold", Reason: "is required"}
	}
	return nil
}

// --- Social tasks ---

// ClaimSocialReward marks the user's social entry claimKey as claimed.
func (s *RewardService) ClaimSocialReward(p models.TelegramUser, claimKey string) (*models.User, error) {
	user, err := s.updateSocial(p, claimKey, map[string]interface{}{"claimed": true})
	claimsTotal.WithLabelValues("social", claimResult(err)).Inc()
	return user, err
}

// ClaimSocialTimer marks the entry claimed and records the timer value in
// its taskPoints.
func (s *RewardService) ClaimSocialTimer(p models.TelegramUser, claimKey string, timer float64) (*models.User, error) {
	if timer <= 0 {
		return nil, &ValidationError{Field: "time", Reason: "must be positive"}
	}
	user, err := s.updateSocial(p, claimKey, map[string]interface{}{"claimed": true, "task_points": timer})
	claimsTotal.WithLabelValues("social_timer", claimResult(err)).Inc()
	return user, err
}

func (s *RewardService) updateSocial(p models.TelegramUser, claimKey string, fields map[string]interface{}) (*models.User, error) {
	if err := requireClaimKey(claimKey); err != nil {
		return nil, err
	}
	user, err := findUser(s.DB, p, false)
	if err != nil {
		return nil, err
	}
	res := s.DB.Model(&models.SocialReward{}).
		Where("user_id = ? AND claim_key = ?", user.ID, claimKey).
		Updates(fields)
	if res.Error != nil {
		return nil, &StorageError{Operation: "claim social reward", Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return nil, &NotFoundError{Resource: "social reward", Identifier: claimKey}
	}
	log.Printf("[CLAIMS] social %s claimed by user %s", claimKey, user.ID)
	return loadUser(s.DB, user.ID)
}

// ReconcileSocialTasks adds catalog tasks missing from the user's social
// collection. Existing entries are left untouched.
func (s *RewardService) ReconcileSocialTasks(userID string) (int64, error) {
	var tasks []models.Task
	if err := s.DB.Order("created_at, claim_key").Find(&tasks).Error; err != nil {
		return 0, &StorageError{Operation: "load task catalog", Err: err}
	}
	if len(tasks) == 0 {
		return 0, nil
	}

	rows := make([]models.SocialReward, 0, len(tasks))
	for i, task := range tasks {
		rows = append(rows, models.SocialReward{
			UserID:      userID,
			ClaimKey:    task.ClaimKey,
			Position:    i,
			TaskDetails: task.TaskDetails,
		})
	}

	res := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "claim_key"}},
		DoNothing: true,
	}).Create(&rows)
	if res.Error != nil {
		return 0, &StorageError{Operation: "merge social tasks", Err: res.Error}
	}
	if res.RowsAffected > 0 {
		log.Printf("[CLAIMS] merged %d new social tasks into user %s", res.RowsAffected, userID)
	}
	return res.RowsAffected, nil
}

// --- Daily strip ---

func lockDailyRows(tx *gorm.DB, userID string) ([]models.DailyReward, error) {
	var rows []models.DailyReward
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		Order("position, claim_key").
		Find(&rows).Error
	if err != nil {
		return nil, &StorageError{Operation: "load daily rewards", Err: err}
	}
	return rows, nil
}

func resetDaily(tx *gorm.DB, userID string) error {
	err := tx.Model(&models.DailyReward{}).
		Where("user_id = ? AND claimed = ?", userID, true).
		Update("claimed", false).Error
	if err != nil {
		return &StorageError{Operation: "reset daily rewards", Err: err}
	}
	return nil
}

// ReconcileDailyRewards runs the login maintenance of the daily strip: seed
// it if empty, truncate it to DailySlots, then clear every claim when all
// are claimed or lastLogin is older than StaleAfter.
func (s *RewardService) ReconcileDailyRewards(userID string) error {
	now := s.Clock.Now().UTC()
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", userID).First(&user).Error; err != nil {
			if isNotFound(err) {
				return &NotFoundError{Resource: "user", Identifier: userID}
			}
			return &StorageError{Operation: "lock user", Err: err}
		}

		rows, err := lockDailyRows(tx, userID)
		if err != nil {
			return err
		}

		if len(rows) == 0 {
			seed := make([]models.DailyReward, len(DefaultDailyCatalog))
			for i, r := range DefaultDailyCatalog {
				seed[i] = models.DailyReward{UserID: userID, ClaimKey: r.ClaimKey, Position: r.Position, Points: r.Points}
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
				return &StorageError{Operation: "seed daily rewards", Err: err}
			}
			return nil
		}

		if len(rows) > DailySlots {
			extra := make([]string, 0, len(rows)-DailySlots)
			for _, r := range rows[DailySlots:] {
				extra = append(extra, r.ID)
			}
			if err := tx.Where("id IN ?", extra).Delete(&models.DailyReward{}).Error; err != nil {
				return &StorageError{Operation: "truncate daily rewards", Err: err}
			}
			rows = rows[:DailySlots]
		}

		allClaimed := true
		for _, r := range rows {
			if !r.Claimed {
				allClaimed = false
				break
			}
		}
		stale := user.LastLogin != nil && now.Sub(*user.LastLogin) > s.StaleAfter
		if allClaimed || stale {
			log.Printf("[CLAIMS] re-arming daily strip of user %s (allClaimed=%t stale=%t)", userID, allClaimed, stale)
			return resetDaily(tx, userID)
		}
		return nil
	})
	return wrapStorage("reconcile daily rewards", err)
}

// ClaimDailyReward claims one slot of the daily strip, sets pointsToday and
// moves lastLogin to the next midnight. Claiming FinalDailyKey re-arms the
// strip and sets nextLogin to the next midnight.
func (s *RewardService) ClaimDailyReward(p models.TelegramUser, claimKey string) (*models.User, error) {
	if err := requireClaimKey(claimKey); err != nil {
		claimsTotal.WithLabelValues("daily", "invalid").Inc()
		return nil, err
	}
	now := s.Clock.Now().UTC()
	midnight := NextMidnight(now)

	var userID string
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		user, err := findUser(tx, p, true)
		if err != nil {
			return err
		}
		userID = user.ID

		var slot models.DailyReward
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND claim_key = ?", user.ID, claimKey).
			First(&slot).Error
		if isNotFound(err) {
			return &NotFoundError{Resource: "daily reward", Identifier: claimKey}
		}
		if err != nil {
			return &StorageError{Operation: "load daily reward", Err: err}
		}
		if slot.Claimed {
			return &AlreadyClaimedError{Claim: "daily " + claimKey}
		}

		if err := tx.Model(&slot).Update("claimed", true).Error; err != nil {
			return &StorageError{Operation: "claim daily reward", Err: err}
		}

		fields := map[string]interface{}{
			"points_today": 1,
			"last_login":   midnight,
		}
		if claimKey == FinalDailyKey {
			if err := resetDaily(tx, user.ID); err != nil {
				return err
			}
			fields["next_login"] = midnight
		}
		if err := tx.Model(&models.User{}).Where("id = ?", user.ID).UpdateColumns(fields).Error; err != nil {
			return &StorageError{Operation: "advance login", Err: err}
		}
		return nil
	})
	err = wrapStorage("claim daily reward", err)
	claimsTotal.WithLabelValues("daily", claimResult(err)).Inc()
	if err != nil {
		return nil, err
	}
	log.Printf("[CLAIMS] daily %s claimed by user %s", claimKey, userID)
	return loadUser(s.DB, userID)
}

// ResetDailyClaimIfStale clears daily claims only when lastLogin is older
// than StaleAfter. It reports whether a reset happened.
func (s *RewardService) ResetDailyClaimIfStale(p models.TelegramUser) (*models.User, bool, error) {
	now := s.Clock.Now().UTC()
	var (
		userID string
		reset  bool
	)
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		user, err := findUser(tx, p, true)
		if err != nil {
			return err
		}
		userID = user.ID
		if user.LastLogin == nil || now.Sub(*user.LastLogin) <= s.StaleAfter {
			return nil
		}
		reset = true
		return resetDaily(tx, user.ID)
	})
	if err != nil {
		return nil, false, wrapStorage("reset stale daily claims", err)
	}
	user, err := loadUser(s.DB, userID)
	return user, reset, err
}

// RearmDailyRewards clears every daily claim and sets nextLogin to the next
// midnight.
func (s *RewardService) RearmDailyRewards(p models.TelegramUser) (*models.User, error) {
	midnight := NextMidnight(s.Clock.Now())
	var userID string
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		user, err := findUser(tx, p, true)
		if err != nil {
			return err
		}
		userID = user.ID
		if err := resetDaily(tx, user.ID); err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).Where("id = ?", user.ID).UpdateColumn("next_login", midnight).Error; err != nil {
			return &StorageError{Operation: "set next login", Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, wrapStorage("re-arm daily rewards", err)
	}
	log.Printf("[CLAIMS] daily strip of tg %s re-armed until %s", strconv.FormatInt(p.ID, 10), midnight.Format(time.RFC3339))
	return loadUser(s.DB, userID)
}
