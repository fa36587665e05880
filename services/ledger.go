package services

import (
	"log"
	"math"

	"github.com/neweracoin/wfdropbackend/models"
	"gorm.io/gorm"
)

// Point sources, used for logs and metrics.
const (
	SourceTask         = "task"
	SourceEarlyAdopter = "early_adopter"
	SourceReferral     = "referral_pass_through"
	SourceBoost        = "boost"
	SourceRoster       = "roster"
)

// ReferrerShareDivisor gives the referrer delta/20 (5%) of every credited award.
const ReferrerShareDivisor = 20

// LedgerService applies point deltas to user balances.
type LedgerService struct {
	DB       *gorm.DB
	Registry *RegistryService
}

func NewLedgerService(db *gorm.DB, registry *RegistryService) *LedgerService {
	return &LedgerService{DB: db, Registry: registry}
}

func validateDelta(delta float64) error {
	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		return &ValidationError{Field: "pointsNo", Reason: "must be a finite number"}
	}
	if delta < 0 {
		return &ValidationError{Field: "pointsNo", Reason: "must not be negative"}
	}
	return nil
}

// ApplyPoints atomically adds delta to the user's balance and returns the
// updated user.
func (s *LedgerService) ApplyPoints(userID string, delta float64, source string) (*models.User, error) {
	if err := validateDelta(delta); err != nil {
		return nil, err
	}
	res := s.DB.Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("points_no", gorm.Expr("points_no + ?", delta))
	if res.Error != nil {
		return nil, &StorageError{Operation: "apply points", Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return nil, &NotFoundError{Resource: "user", Identifier: userID}
	}
	pointsCredited.WithLabelValues(source).Add(delta)
	return loadUser(s.DB, userID)
}

// CreditTaskPoints adds a task award to the user identified by p, creating
// the user on first write, and passes delta/20 to the user's referrer.
func (s *LedgerService) CreditTaskPoints(p models.TelegramUser, delta float64) (*models.User, error) {
	if err := validateDelta(delta); err != nil {
		return nil, err
	}

	user, err := s.Registry.FindUser(p)
	if _, missing := err.(*NotFoundError); missing {
		created, isNew, err := s.Registry.createUser(p, "", delta, false)
		if err != nil {
			return nil, err
		}
		if isNew {
			pointsCredited.WithLabelValues(SourceTask).Add(delta)
			log.Printf("[LEDGER] created user %s on first award of %.2f", created.ID, delta)
			return loadUser(s.DB, created.ID)
		}
		user = created
	} else if err != nil {
		return nil, err
	}

	updated, err := s.ApplyPoints(user.ID, delta, SourceTask)
	if err != nil {
		return nil, err
	}
	s.passThrough(updated, delta)
	log.Printf("[LEDGER] +%.2f task points to user %s (now %.2f)", delta, updated.ID, updated.PointsNo)
	return updated, nil
}

// ClaimEarlyAdopter credits the one-shot early adopter bonus.
func (s *LedgerService) ClaimEarlyAdopter(p models.TelegramUser, delta float64) (*models.User, error) {
	if err := validateDelta(delta); err != nil {
		return nil, err
	}

	user, err := s.Registry.FindUser(p)
	if _, missing := err.(*NotFoundError); missing {
		created, isNew, err := s.Registry.createUser(p, "", delta, true)
		if err != nil {
			return nil, err
		}
		if isNew {
			pointsCredited.WithLabelValues(SourceEarlyAdopter).Add(delta)
			claimsTotal.WithLabelValues("early_adopter", "ok").Inc()
			return loadUser(s.DB, created.ID)
		}
		user = created
	} else if err != nil {
		return nil, err
	}

	res := s.DB.Model(&models.User{}).
		Where("id = ? AND early_adopter_bonus_claimed = ?", user.ID, false).
		UpdateColumns(map[string]interface{}{
			"points_no":                   gorm.Expr("points_no + ?", delta),
			"early_adopter_bonus_claimed": true,
		})
	if res.Error != nil {
		claimsTotal.WithLabelValues("early_adopter", "error").Inc()
		return nil, &StorageError{Operation: "claim early adopter bonus", Err: res.Error}
	}
	if res.RowsAffected == 0 {
		claimsTotal.WithLabelValues("early_adopter", "already_claimed").Inc()
		return nil, &AlreadyClaimedError{Claim: "early adopter"}
	}
	claimsTotal.WithLabelValues("early_adopter", "ok").Inc()
	pointsCredited.WithLabelValues(SourceEarlyAdopter).Add(delta)

	updated, err := loadUser(s.DB, user.ID)
	if err != nil {
		return nil, err
	}
	s.passThrough(updated, delta)
	log.Printf("🎁 [LEDGER] early adopter bonus %.2f to user %s", delta, updated.ID)
	return updated, nil
}

// passThrough credits the referrer's share. Failures are logged and swallowed.
func (s *LedgerService) passThrough(user *models.User, delta float64) {
	if user.ReferrerCode == "" || delta == 0 {
		return
	}
	share := delta / ReferrerShareDivisor
	res := s.DB.Model(&models.User{}).
		Where("referral_code = ? AND id <> ?", user.ReferrerCode, user.ID).
		UpdateColumn("points_no", gorm.Expr("points_no + ?", share))
	if res.Error != nil {
		log.Printf("⚠️ [LEDGER] referrer pass-through for user %s failed: %v", user.ID, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		log.Printf("⚠️ [LEDGER] referrer code %s of user %s did not resolve, pass-through skipped", user.ReferrerCode, user.ID)
		return
	}
	pointsCredited.WithLabelValues(SourceReferral).Add(share)
}

// ResetPointsToday zeroes every user's pointsToday flag.
func (s *LedgerService) ResetPointsToday() (int64, error) {
	res := s.DB.Model(&models.User{}).
		Where("points_today <> ?", 0).
		UpdateColumn("points_today", 0)
	if res.Error != nil {
		return 0, &StorageError{Operation: "reset points today", Err: res.Error}
	}
	log.Printf("🌙 [LEDGER] reset pointsToday for %d users", res.RowsAffected)
	return res.RowsAffected, nil
}
