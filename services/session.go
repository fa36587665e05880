package services

import (
	"log"

	"github.com/neweracoin/wfdropbackend/models"
)

// SessionService runs the maintenance chain every mini-app login goes through.
type SessionService struct {
	Registry *RegistryService
	Rewards  *RewardService
}

func NewSessionService(registry *RegistryService, rewards *RewardService) *SessionService {
	return &SessionService{Registry: registry, Rewards: rewards}
}

// Login resolves or creates the user, merges new catalog tasks, ensures
// lastLogin and a referral code exist, and re-arms the daily strip when due.
// The returned user reflects all of it; isNew reports a first contact.
func (s *SessionService) Login(p models.TelegramUser, referralCode string) (*models.User, bool, error) {
	user, isNew, err := s.Registry.GetOrCreateUser(p, referralCode)
	if err != nil {
		return nil, false, err
	}

	if _, err := s.Rewards.ReconcileSocialTasks(user.ID); err != nil {
		return nil, false, err
	}
	if err := s.Registry.EnsureLastLogin(user); err != nil {
		return nil, false, err
	}
	if err := s.Registry.EnsureReferralCode(user); err != nil {
		return nil, false, err
	}
	if err := s.Rewards.ReconcileDailyRewards(user.ID); err != nil {
		return nil, false, err
	}

	fresh, err := s.Registry.LoadUser(user.ID)
	if err != nil {
		return nil, false, err
	}
	if isNew {
		log.Printf("👋 [REFERRAL] first login of tg %d", p.ID)
	}
	return fresh, isNew, nil
}
