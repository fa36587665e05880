package services

import (
	"errors"
	"log"
	"sort"
	"strconv"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/neweracoin/wfdropbackend/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	BoostActivationBonus = 7000
	BoostReferrerBonus   = 2800
	BoostLeaderboardSize = 100
)

// BoostService runs the code-gated boost competition.
type BoostService struct {
	DB    *gorm.DB
	Clock clockwork.Clock
	Codes CodeSource
}

func NewBoostService(db *gorm.DB, clock clockwork.Clock) *BoostService {
	return &BoostService{DB: db, Clock: clock, Codes: RandomHexCode}
}

// BoostStanding is an entry together with its 1-based rank.
type BoostStanding struct {
	models.BoostEntry
	Rank int `json:"rank"`
}

// BoostActivation is the result of an activation attempt. Activated is false
// when the caller already held an entry.
type BoostActivation struct {
	Entry     models.BoostEntry
	Rank      int
	Activated bool
}

// Activate enrolls the caller under refBoostCode. Unknown referrer codes
// return ErrBoostKeyInvalid; a caller that already has an entry gets it back
// unchanged. The referrer credit and both ledger mirrors are best-effort.
func (s *BoostService) Activate(p models.TelegramUser, boostCode, refBoostCode string) (*BoostActivation, error) {
	refBoostCode = strings.TrimSpace(refBoostCode)
	if refBoostCode == "" {
		boostActivations.WithLabelValues("invalid_key").Inc()
		return nil, ErrBoostKeyInvalid
	}

	var referrer models.BoostEntry
	if err := s.DB.Where("boost_code = ?", refBoostCode).First(&referrer).Error; err != nil {
		if isNotFound(err) {
			boostActivations.WithLabelValues("invalid_key").Inc()
			log.Printf("⚠️ [BOOST] referrer code %s does not resolve (tg %d)", refBoostCode, p.ID)
			return nil, ErrBoostKeyInvalid
		}
		return nil, &StorageError{Operation: "resolve boost code", Err: err}
	}

	if existing, err := s.entryFor(p.ID); err != nil {
		return nil, err
	} else if existing != nil {
		return s.alreadyActive(existing)
	}

	entry, created, err := s.insertEntry(models.BoostEntry{
		ExternalID:        p.ID,
		ReferrerBoostCode: refBoostCode,
		PointsNo:          BoostActivationBonus,
		BoostActivated:    true,
		RegistrationTime:  s.Clock.Now().UTC(),
	}, boostCode)
	if err != nil {
		boostActivations.WithLabelValues("error").Inc()
		return nil, err
	}
	if !created {
		return s.alreadyActive(entry)
	}

	s.mirror(p.ID, BoostActivationBonus)

	err = s.DB.Model(&models.BoostEntry{}).
		Where("id = ?", referrer.ID).
		UpdateColumns(map[string]interface{}{
			"points_no":       gorm.Expr("points_no + ?", BoostReferrerBonus),
			"referral_points": gorm.Expr("referral_points + ?", 1),
		}).Error
	if err != nil {
		log.Printf("⚠️ [BOOST] crediting referrer %s failed: %v", refBoostCode, err)
	} else {
		s.mirror(referrer.ExternalID, BoostReferrerBonus)
	}

	rank, err := s.Rank(p.ID)
	if err != nil {
		return nil, err
	}
	boostActivations.WithLabelValues("activated").Inc()
	log.Printf("🚀 [BOOST] tg %d activated with code %s under %s (rank %d)", p.ID, entry.BoostCode, refBoostCode, rank)
	return &BoostActivation{Entry: *entry, Rank: rank, Activated: true}, nil
}

func (s *BoostService) alreadyActive(entry *models.BoostEntry) (*BoostActivation, error) {
	rank, err := s.Rank(entry.ExternalID)
	if err != nil {
		return nil, err
	}
	boostActivations.WithLabelValues("already_active").Inc()
	return &BoostActivation{Entry: *entry, Rank: rank}, nil
}

// insertEntry stores entry under the requested code, or under a minted one
// when none is requested. Every unique conflict is ignored on insert: if no
// row was written and the caller already has an entry, that entry is
// returned with created=false; otherwise the code was taken first.
func (s *BoostService) insertEntry(entry models.BoostEntry, requested string) (*models.BoostEntry, bool, error) {
	var existing *models.BoostEntry
	write := func(code string) error {
		row := entry
		row.BoostCode = code
		res := s.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
		if res.Error != nil {
			return &StorageError{Operation: "create boost entry", Err: res.Error}
		}
		if res.RowsAffected > 0 {
			entry = row
			return nil
		}
		found, err := s.entryFor(entry.ExternalID)
		if err != nil {
			return err
		}
		if found == nil {
			return errCodeTaken
		}
		existing = found
		return nil
	}

	var err error
	if requested = strings.TrimSpace(requested); requested != "" {
		held, herr := codeHeld(s.DB, &models.BoostEntry{}, "boost_code", requested)
		if herr != nil {
			return nil, false, herr
		}
		err = errCodeTaken
		if !held {
			err = write(requested)
		}
		if errors.Is(err, errCodeTaken) {
			if own, ferr := s.entryFor(entry.ExternalID); ferr == nil && own != nil {
				return own, false, nil
			}
			return nil, false, &ValidationError{Field: "boostCode", Reason: "already in use"}
		}
	} else {
		_, err = claimUniqueCode(s.DB, &models.BoostEntry{}, "boost_code", s.Codes, write)
	}
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}
	return &entry, true, nil
}

// mirror adds a boost credit to the main ledger of the Telegram user. Errors
// are logged and swallowed.
func (s *BoostService) mirror(externalID int64, points float64) {
	res := s.DB.Model(&models.User{}).
		Where("external_id = ?", externalID).
		UpdateColumn("points_no", gorm.Expr("points_no + ?", points))
	if res.Error != nil {
		log.Printf("⚠️ [BOOST] mirroring %.0f points to tg %d failed: %v", points, externalID, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		log.Printf("[BOOST] tg %d has no ledger account, %.0f points not mirrored", externalID, points)
		return
	}
	pointsCredited.WithLabelValues(SourceBoost).Add(points)
}

func (s *BoostService) entryFor(externalID int64) (*models.BoostEntry, error) {
	var entry models.BoostEntry
	if err := s.DB.Where("external_id = ?", externalID).First(&entry).Error; err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, &StorageError{Operation: "load boost entry", Err: err}
	}
	return &entry, nil
}

// Standing returns the entry of externalID with its current rank.
func (s *BoostService) Standing(externalID int64) (*BoostStanding, error) {
	entry, err := s.entryFor(externalID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, &NotFoundError{Resource: "boost entry", Identifier: strconv.FormatInt(externalID, 10)}
	}
	rank, err := s.Rank(externalID)
	if err != nil {
		return nil, err
	}
	return &BoostStanding{BoostEntry: *entry, Rank: rank}, nil
}

// ranked loads every entry ordered by pointsNo desc, registrationTime asc.
func (s *BoostService) ranked() ([]models.BoostEntry, error) {
	var entries []models.BoostEntry
	if err := s.DB.Order("created_at, id").Find(&entries).Error; err != nil {
		return nil, &StorageError{Operation: "load boost entries", Err: err}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].PointsNo != entries[j].PointsNo {
			return entries[i].PointsNo > entries[j].PointsNo
		}
		return entries[i].RegistrationTime.Before(entries[j].RegistrationTime)
	})
	return entries, nil
}

// Rank returns the 1-based position of externalID, or 0 if it has no entry.
func (s *BoostService) Rank(externalID int64) (int, error) {
	entries, err := s.ranked()
	if err != nil {
		return 0, err
	}
	for i, e := range entries {
		if e.ExternalID == externalID {
			return i + 1, nil
		}
	}
	return 0, nil
}

// Leaderboard returns the top BoostLeaderboardSize entries, ranked per call.
func (s *BoostService) Leaderboard() ([]BoostStanding, error) {
	entries, err := s.ranked()
	if err != nil {
		return nil, err
	}
	if len(entries) > BoostLeaderboardSize {
		entries = entries[:BoostLeaderboardSize]
	}
	out := make([]BoostStanding, len(entries))
	for i, e := range entries {
		out[i] = BoostStanding{BoostEntry: e, Rank: i + 1}
	}
	return out, nil
}

func (s *BoostService) Participants() (int64, error) {
	var n int64
	if err := s.DB.Model(&models.BoostEntry{}).Count(&n).Error; err != nil {
		return 0, &StorageError{Operation: "count boost entries", Err: err}
	}
	return n, nil
}

// SeedRootCode creates a referrer-less entry so the first invitations have a
// code to resolve. An existing entry is returned as is.
func (s *BoostService) SeedRootCode(p models.TelegramUser, boostCode string) (*models.BoostEntry, error) {
	if existing, err := s.entryFor(p.ID); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}
	entry, _, err := s.insertEntry(models.BoostEntry{
		ExternalID:       p.ID,
		BoostActivated:   true,
		RegistrationTime: s.Clock.Now().UTC(),
	}, boostCode)
	if err != nil {
		return nil, err
	}
	log.Printf("[BOOST] root code %s seeded for tg %d", entry.BoostCode, p.ID)
	return entry, nil
}
