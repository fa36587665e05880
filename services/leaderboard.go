package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/neweracoin/wfdropbackend/models"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

// LeaderboardKind names a snapshot variant.
type LeaderboardKind string

const (
	ScoreLeaderboard    LeaderboardKind = "score"
	ReferralLeaderboard LeaderboardKind = "referral"

	// SnapshotSize is how many users a snapshot keeps.
	SnapshotSize = 100
)

// LeaderboardKinds lists every materialized variant.
var LeaderboardKinds = []LeaderboardKind{ScoreLeaderboard, ReferralLeaderboard}

func ParseLeaderboardKind(s string) (LeaderboardKind, error) {
	switch LeaderboardKind(s) {
	case ScoreLeaderboard, ReferralLeaderboard:
		return LeaderboardKind(s), nil
	}
	return "", &ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown leaderboard %q", s)}
}

// SnapshotPublisher receives each freshly materialized snapshot as JSON.
type SnapshotPublisher interface {
	Publish(ctx context.Context, key string, body []byte) error
}

// LeaderboardService materializes ranked snapshots of the user ledger.
type LeaderboardService struct {
	DB        *gorm.DB
	Cache     *LeaderboardCache
	Publisher SnapshotPublisher
}

func NewLeaderboardService(db *gorm.DB, cache *LeaderboardCache, publisher SnapshotPublisher) *LeaderboardService {
	return &LeaderboardService{DB: db, Cache: cache, Publisher: publisher}
}

type rankedUser struct {
	ID              string
	ExternalID      int64
	Username        string
	FirstName       string
	LastName        string
	PointsNo        float64
	ReferralPoints  int64
	ReferralContest int64
	TotalScore      float64
}

func (s *LeaderboardService) topUsers(ctx context.Context, order string) ([]rankedUser, error) {
	var rows []rankedUser
	err := s.DB.WithContext(ctx).
		Model(&models.User{}).
		Select("id, external_id, username, first_name, last_name, points_no, referral_points, referral_contest, points_no * referral_points AS total_score").
		Order(order).
		Limit(SnapshotSize).
		Scan(&rows).Error
	if err != nil {
		return nil, &StorageError{Operation: "rank users", Err: err}
	}
	return rows, nil
}

// Refresh rebuilds the snapshot of kind unless the cache still holds a
// result younger than its TTL, and reports the entry count and whether the
// cached result was used. force drops the cached result and rebuilds.
func (s *LeaderboardService) Refresh(ctx context.Context, kind LeaderboardKind, force bool) (int, bool, error) {
	switch kind {
	case ScoreLeaderboard:
		entries, cached, err := s.RefreshScore(ctx, force)
		return len(entries), cached, err
	case ReferralLeaderboard:
		entries, cached, err := s.RefreshReferral(ctx, force)
		return len(entries), cached, err
	}
	return 0, false, &ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown leaderboard %q", kind)}
}

// RefreshScore materializes the top users by pointsNo x referralPoints.
func (s *LeaderboardService) RefreshScore(ctx context.Context, force bool) ([]models.LeaderboardEntry, bool, error) {
	if force {
		s.Cache.Invalidate(ScoreLeaderboard)
	} else if v, ok := s.Cache.Get(ScoreLeaderboard); ok {
		return v.([]models.LeaderboardEntry), true, nil
	}
	timer := prometheus.NewTimer(materializeDuration.WithLabelValues(string(ScoreLeaderboard)))
	defer timer.ObserveDuration()

	rows, err := s.topUsers(ctx, "total_score DESC, id")
	if err != nil {
		return nil, false, err
	}
	entries := make([]models.LeaderboardEntry, len(rows))
	for i, r := range rows {
		entries[i] = models.LeaderboardEntry{
			Position:       i + 1,
			UserID:         r.ID,
			ExternalID:     r.ExternalID,
			FirstName:      r.FirstName,
			LastName:       r.LastName,
			Username:       r.Username,
			PointsNo:       r.PointsNo,
			ReferralPoints: r.ReferralPoints,
			TotalScore:     r.TotalScore,
		}
	}

	if err := s.replace(ctx, &models.LeaderboardEntry{}, &entries, len(entries)); err != nil {
		return nil, false, err
	}
	s.Cache.Set(ScoreLeaderboard, entries)
	s.publish(ctx, ScoreLeaderboard, entries)
	log.Printf("🏆 [LEADERBOARD] score snapshot rebuilt with %d entries", len(entries))
	return entries, false, nil
}

// RefreshReferral materializes the top users by referralContest.
func (s *LeaderboardService) RefreshReferral(ctx context.Context, force bool) ([]models.ReferralLeaderboardEntry, bool, error) {
	if force {
		s.Cache.Invalidate(ReferralLeaderboard)
	} else if v, ok := s.Cache.Get(ReferralLeaderboard); ok {
		return v.([]models.ReferralLeaderboardEntry), true, nil
	}
	timer := prometheus.NewTimer(materializeDuration.WithLabelValues(string(ReferralLeaderboard)))
	defer timer.ObserveDuration()

	rows, err := s.topUsers(ctx, "referral_contest DESC, id")
	if err != nil {
		return nil, false, err
	}
	entries := make([]models.ReferralLeaderboardEntry, len(rows))
	for i, r := range rows {
		entries[i] = models.ReferralLeaderboardEntry{
			Position:        i + 1,
			UserID:          r.ID,
			ExternalID:      r.ExternalID,
			FirstName:       r.FirstName,
			LastName:        r.LastName,
			Username:        r.Username,
			PointsNo:        r.PointsNo,
			ReferralContest: r.ReferralContest,
		}
	}

	if err := s.replace(ctx, &models.ReferralLeaderboardEntry{}, &entries, len(entries)); err != nil {
		return nil, false, err
	}
	s.Cache.Set(ReferralLeaderboard, entries)
	s.publish(ctx, ReferralLeaderboard, entries)
	log.Printf("🏆 [LEADERBOARD] referral snapshot rebuilt with %d entries", len(entries))
	return entries, false, nil
}

// replace swaps the snapshot table contents in one transaction.
func (s *LeaderboardService) replace(ctx context.Context, model interface{}, entries interface{}, n int) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(model).Error; err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		return tx.CreateInBatches(entries, SnapshotSize).Error
	})
	if err != nil {
		return &StorageError{Operation: "replace snapshot", Err: err}
	}
	return nil
}

// publish uploads the snapshot when a publisher is configured. Failures are
// logged only.
func (s *LeaderboardService) publish(ctx context.Context, kind LeaderboardKind, entries interface{}) {
	if s.Publisher == nil {
		return
	}
	body, err := json.Marshal(entries)
	if err != nil {
		log.Printf("⚠️ [LEADERBOARD] encoding %s snapshot failed: %v", kind, err)
		return
	}
	key := fmt.Sprintf("leaderboards/%s.json", kind)
	if err := s.Publisher.Publish(ctx, key, body); err != nil {
		log.Printf("⚠️ [LEADERBOARD] publishing %s failed: %v", key, err)
	}
}

// ScoreSnapshot reads the current score snapshot in rank order.
func (s *LeaderboardService) ScoreSnapshot() ([]models.LeaderboardEntry, error) {
	var entries []models.LeaderboardEntry
	if err := s.DB.Order("position").Find(&entries).Error; err != nil {
		return nil, &StorageError{Operation: "read score snapshot", Err: err}
	}
	return entries, nil
}

// ReferralSnapshot reads the current referral snapshot in rank order.
func (s *LeaderboardService) ReferralSnapshot() ([]models.ReferralLeaderboardEntry, error) {
	var entries []models.ReferralLeaderboardEntry
	if err := s.DB.Order("position").Find(&entries).Error; err != nil {
		return nil, &StorageError{Operation: "read referral snapshot", Err: err}
	}
	return entries, nil
}
