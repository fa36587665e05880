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

// CycleLength is the number of days in a streak cycle.
const CycleLength = 7

// PointsForDay is the award for each day of a streak cycle.
var PointsForDay = [CycleLength]float64{250, 500, 1000, 1500, 2000, 2500, 3000}

// CycleService runs the 7-day streak claim.
type CycleService struct {
	DB    *gorm.DB
	Clock clockwork.Clock
}

func NewCycleService(db *gorm.DB, clock clockwork.Clock) *CycleService {
	return &CycleService{DB: db, Clock: clock}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CycleClaim is the outcome of a successful streak claim.
type CycleClaim struct {
	Cycle   models.RewardCycle
	Awarded float64
	Day     int
}

// ClaimDaily records today's streak claim for the Telegram user externalID.
// The whole read-check-write runs in one transaction holding the cycle row
// lock, so concurrent claims for the same user cannot both succeed.
func (s *CycleService) ClaimDaily(externalID int64) (*CycleClaim, error) {
	if externalID == 0 {
		return nil, &ValidationError{Field: "user.id", Reason: "is required"}
	}
	now := s.Clock.Now().UTC()
	today := startOfDay(now)

	var claim CycleClaim
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		fresh := models.RewardCycle{ExternalID: externalID, CycleStartDate: today, DailyClaims: []time.Time{}}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_id"}},
			DoNothing: true,
		}).Create(&fresh).Error; err != nil {
			return &StorageError{Operation: "create reward cycle", Err: err}
		}

		var cycle models.RewardCycle
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("external_id = ?", externalID).
			First(&cycle).Error; err != nil {
			return &StorageError{Operation: "lock reward cycle", Err: err}
		}

		if cycle.ClaimedOn(now) {
			return &AlreadyClaimedError{Claim: "daily"}
		}

		start := startOfDay(cycle.CycleStartDate)
		if !today.Before(start.AddDate(0, 0, CycleLength)) {
			start = today
			cycle.DailyClaims = []time.Time{}
		}
		cycle.CycleStartDate = start

		day := int(today.Sub(start).Hours() / 24)
		awarded := PointsForDay[day%CycleLength]

		cycle.DailyClaims = append(cycle.DailyClaims, now)
		cycle.LastDayClaimed = day % CycleLength
		cycle.TotalPoints += awarded

		if err := tx.Save(&cycle).Error; err != nil {
			return &StorageError{Operation: "save reward cycle", Err: err}
		}
		claim = CycleClaim{Cycle: cycle, Awarded: awarded, Day: day % CycleLength}
		return nil
	})
	err = wrapStorage("claim streak", err)
	claimsTotal.WithLabelValues("streak", claimResult(err)).Inc()
	if err != nil {
		return nil, err
	}
	log.Printf("🔥 [CLAIMS] streak day %d claimed by tg %d: +%.0f (total %.0f)", claim.Day, externalID, claim.Awarded, claim.Cycle.TotalPoints)
	return &claim, nil
}

// Status returns the streak cycle of externalID.
func (s *CycleService) Status(externalID int64) (*models.RewardCycle, error) {
	var cycle models.RewardCycle
	if err := s.DB.Where("external_id = ?", externalID).First(&cycle).Error; err != nil {
		if isNotFound(err) {
			return nil, &NotFoundError{Resource: "reward cycle", Identifier: strconv.FormatInt(externalID, 10)}
		}
		return nil, &StorageError{Operation: "load reward cycle", Err: err}
	}
	return &cycle, nil
}
