// services/users.go
package services

import (
	"errors"
	"log"
	"strconv"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/neweracoin/wfdropbackend/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReferralListLimit caps how many referred users a listing returns.
const ReferralListLimit = 50

// RegistryService owns user identity and the referral chain.
type RegistryService struct {
	DB    *gorm.DB
	Clock clockwork.Clock
	Codes CodeSource
}

func NewRegistryService(db *gorm.DB, clock clockwork.Clock) *RegistryService {
	return &RegistryService{DB: db, Clock: clock, Codes: RandomHexCode}
}

func byProfile(db *gorm.DB, p models.TelegramUser) *gorm.DB {
	return db.Where("external_id = ? AND username = ?", p.ID, p.Username)
}

func userNotFound(p models.TelegramUser) error {
	return &NotFoundError{Resource: "user", Identifier: strconv.FormatInt(p.ID, 10)}
}

// findUser looks a user up by its Telegram identity on db (which may be a tx).
func findUser(db *gorm.DB, p models.TelegramUser, lock bool) (*models.User, error) {
	q := db
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var user models.User
	if err := byProfile(q, p).First(&user).Error; err != nil {
		if isNotFound(err) {
			return nil, userNotFound(p)
		}
		return nil, &StorageError{Operation: "find user", Err: err}
	}
	return &user, nil
}

// loadUser reads a user with both reward collections in display order.
func loadUser(db *gorm.DB, id string) (*models.User, error) {
	var user models.User
	err := db.
		Preload("SocialRewards", func(db *gorm.DB) *gorm.DB { return db.Order("position, claim_key") }).
		Preload("DailyRewards", func(db *gorm.DB) *gorm.DB { return db.Order("position, claim_key") }).
		Where("id = ?", id).
		First(&user).Error
	if err != nil {
		if isNotFound(err) {
			return nil, &NotFoundError{Resource: "user", Identifier: id}
		}
		return nil, &StorageError{Operation: "load user", Err: err}
	}
	return &user, nil
}

func (s *RegistryService) FindUser(p models.TelegramUser) (*models.User, error) {
	return findUser(s.DB, p, false)
}

func (s *RegistryService) LoadUser(id string) (*models.User, error) {
	return loadUser(s.DB, id)
}

// GetOrCreateUser returns the user for p, creating it with zero balances and
// a fresh referral code when it does not exist yet. The referrer owning
// referralCode is credited only when this call created the user.
func (s *RegistryService) GetOrCreateUser(p models.TelegramUser, referralCode string) (*models.User, bool, error) {
	user, err := s.FindUser(p)
	if err == nil {
		return user, false, nil
	}
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		return nil, false, err
	}

	user, created, err := s.createUser(p, referralCode, 0, false)
	if err != nil {
		return nil, false, err
	}
	if created && user.ReferrerCode != "" {
		if err := s.CreditReferrer(user.ReferrerCode, user.ID); err != nil {
			log.Printf("⚠️ [REFERRAL] credit for code %s failed (new user %s): %v", user.ReferrerCode, user.ID, err)
		}
	}
	return user, created, nil
}

// createUser inserts a user unless one with the same identity already
// exists, in which case the existing row is returned with created=false.
// The insert ignores every unique conflict: when nothing was inserted and no
// row holds the identity, another signup took the code and a new one is drawn.
func (s *RegistryService) createUser(p models.TelegramUser, referralCode string, points float64, earlyAdopter bool) (*models.User, bool, error) {
	var (
		user     models.User
		existing *models.User
	)
	_, err := claimUniqueCode(s.DB, &models.User{}, "referral_code", s.Codes, func(code string) error {
		referrer := strings.TrimSpace(referralCode)
		if referrer == code {
			referrer = ""
		}
		user = models.User{
			ExternalID:               p.ID,
			Username:                 p.Username,
			FirstName:                p.FirstName,
			LastName:                 p.LastName,
			LanguageCode:             p.LanguageCode,
			AllowsWriteToPM:          p.AllowsWriteToPM,
			PointsNo:                 points,
			ReferralCode:             code,
			ReferrerCode:             referrer,
			ReferredBy:               referrer != "",
			EarlyAdopterBonusClaimed: earlyAdopter,
		}

		res := s.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&user)
		if res.Error != nil {
			return &StorageError{Operation: "create user", Err: res.Error}
		}
		if res.RowsAffected > 0 {
			return nil
		}
		found, err := s.FindUser(p)
		var nf *NotFoundError
		if errors.As(err, &nf) {
			return errCodeTaken
		}
		if err != nil {
			return err
		}
		// lost a race with a concurrent first contact
		existing = found
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	log.Printf("👤 [REFERRAL] created user %s (tg %d) with code %s, referrer %q", user.ID, user.ExternalID, user.ReferralCode, user.ReferrerCode)
	return &user, true, nil
}

// CreditReferrer adds one referral to the owner of code. An unknown code is
// logged and ignored; the referee itself is never credited.
func (s *RegistryService) CreditReferrer(code, refereeID string) error {
	res := s.DB.Model(&models.User{}).
		Where("referral_code = ? AND id <> ?", code, refereeID).
		UpdateColumns(map[string]interface{}{
			"referral_points":  gorm.Expr("referral_points + ?", 1),
			"referral_contest": gorm.Expr("referral_contest + ?", 1),
		})
	if res.Error != nil {
		referralCredits.WithLabelValues("error").Inc()
		return &StorageError{Operation: "credit referrer", Err: res.Error}
	}
	if res.RowsAffected == 0 {
		referralCredits.WithLabelValues("unresolved").Inc()
		log.Printf("⚠️ [REFERRAL] code %s does not resolve to a user, nothing credited", code)
		return nil
	}
	referralCredits.WithLabelValues("ok").Inc()
	log.Printf("✅ [REFERRAL] credited referrer with code %s", code)
	return nil
}

// EnsureLastLogin stamps lastLogin on users that never had one.
func (s *RegistryService) EnsureLastLogin(user *models.User) error {
	if user.LastLogin != nil {
		return nil
	}
	now := s.Clock.Now().UTC()
	err := s.DB.Model(&models.User{}).
		Where("id = ? AND last_login IS NULL", user.ID).
		UpdateColumn("last_login", now).Error
	if err != nil {
		return &StorageError{Operation: "ensure last login", Err: err}
	}
	user.LastLogin = &now
	return nil
}

// EnsureReferralCode mints a code for legacy users that have none. An
// existing code is never replaced.
func (s *RegistryService) EnsureReferralCode(user *models.User) error {
	if user.ReferralCode != "" {
		return nil
	}
	var assigned bool
	code, err := claimUniqueCode(s.DB, &models.User{}, "referral_code", s.Codes, func(code string) error {
		res := s.DB.Model(&models.User{}).
			Where("id = ? AND referral_code = ?", user.ID, "").
			UpdateColumn("referral_code", code)
		if res.Error != nil {
			return &StorageError{Operation: "assign referral code", Err: res.Error}
		}
		assigned = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return err
	}
	if !assigned {
		fresh, err := loadUser(s.DB, user.ID)
		if err != nil {
			return err
		}
		user.ReferralCode = fresh.ReferralCode
		return nil
	}
	user.ReferralCode = code
	log.Printf("[REFERRAL] minted missing referral code %s for user %s", code, user.ID)
	return nil
}

// ListReferrals returns up to ReferralListLimit users registered under code.
func (s *RegistryService) ListReferrals(code string) ([]models.User, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, &ValidationError{Field: "referralCode", Reason: "is required"}
	}
	var users []models.User
	err := s.DB.Where("referrer_code = ?", code).
		Order("created_at").
		Limit(ReferralListLimit).
		Find(&users).Error
	if err != nil {
		return nil, &StorageError{Operation: "list referrals", Err: err}
	}
	return users, nil
}

// RegisterFromBot handles a bot /start: first contact creates the user and
// credits the payload's owner; an existing user arriving with a payload is
// reported as already referred.
func (s *RegistryService) RegisterFromBot(p models.TelegramUser, payload string) (*models.User, bool, bool, error) {
	user, created, err := s.GetOrCreateUser(p, payload)
	if err != nil {
		return nil, false, false, err
	}
	alreadyReferred := !created && strings.TrimSpace(payload) != ""
	if alreadyReferred {
		log.Printf("[REFERRAL] tg %d started the bot with payload %s but is already registered", p.ID, payload)
	}
	return user, created, alreadyReferred, nil
}
