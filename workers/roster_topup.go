package workers

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"sync"

	"github.com/neweracoin/wfdropbackend/models"
	"github.com/pelletier/go-toml/v2"
	"gorm.io/gorm"
)

const (
	RosterBatchSize = 20
	// RosterVisibleTop is how many referral snapshot rows, taken by pointsNo,
	// count as visible.
	RosterVisibleTop = 80

	maxPointsTopUp      = 1000
	minReferralTopUp    = 496
	referralTopUpSpread = 440 // up to 935
)

// RosterAccount is a reference account kept visible on the leaderboard.
type RosterAccount struct {
	ExternalID int64  `toml:"external_id"`
	Username   string `toml:"username"`
}

type rosterFile struct {
	Accounts []RosterAccount `toml:"account"`
}

// LoadRoster reads the reference accounts from a TOML file of
// [[account]] tables.
func LoadRoster(path string) ([]RosterAccount, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster: %w", err)
	}
	var f rosterFile
	if err := toml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse roster %s: %w", path, err)
	}
	return f.Accounts, nil
}

// RosterTopUpWorker walks the roster in round-robin batches and tops up any
// account that is missing from the highest-pointsNo rows of the referral
// snapshot.
type RosterTopUpWorker struct {
	DB       *gorm.DB
	Accounts []RosterAccount

	mu     sync.Mutex
	cursor int
	rng    *rand.Rand
}

func NewRosterTopUpWorker(db *gorm.DB, accounts []RosterAccount, rng *rand.Rand) *RosterTopUpWorker {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &RosterTopUpWorker{DB: db, Accounts: accounts, rng: rng}
}

// nextBatch returns the next RosterBatchSize accounts and advances the cursor,
// wrapping at the end of the roster.
func (w *RosterTopUpWorker) nextBatch() []RosterAccount {
	n := len(w.Accounts)
	if n == 0 {
		return nil
	}
	size := RosterBatchSize
	if size > n {
		size = n
	}
	batch := make([]RosterAccount, 0, size)
	for i := 0; i < size; i++ {
		batch = append(batch, w.Accounts[(w.cursor+i)%n])
	}
	w.cursor = (w.cursor + size) % n
	return batch
}

// RunBatch processes one batch and returns how many accounts were credited.
func (w *RosterTopUpWorker) RunBatch(ctx context.Context) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	batch := w.nextBatch()
	if len(batch) == 0 {
		return 0, nil
	}

	var visible []int64
	err := w.DB.WithContext(ctx).
		Model(&models.ReferralLeaderboardEntry{}).
		Order("points_no DESC, position").
		Limit(RosterVisibleTop).
		Pluck("external_id", &visible).Error
	if err != nil {
		return 0, fmt.Errorf("failed to read referral snapshot: %w", err)
	}
	onBoard := make(map[int64]bool, len(visible))
	for _, id := range visible {
		onBoard[id] = true
	}

	credited := 0
	for _, acct := range batch {
		if ctx.Err() != nil {
			return credited, ctx.Err()
		}
		if onBoard[acct.ExternalID] {
			continue
		}

		points := w.rng.Float64() * maxPointsTopUp
		referrals := minReferralTopUp + w.rng.IntN(referralTopUpSpread)
		res := w.DB.WithContext(ctx).
			Model(&models.User{}).
			Where("external_id = ? AND username = ?", acct.ExternalID, acct.Username).
			UpdateColumns(map[string]interface{}{
				"points_no":        gorm.Expr("points_no + ?", points),
				"referral_points":  gorm.Expr("referral_points + ?", referrals),
				"referral_contest": gorm.Expr("referral_contest + ?", referrals),
			})
		if res.Error != nil {
			log.Printf("⚠️ [ROSTER] top-up of tg %d failed: %v", acct.ExternalID, res.Error)
			continue
		}
		if res.RowsAffected == 0 {
			log.Printf("[ROSTER] tg %d (%s) has no account, skipped", acct.ExternalID, acct.Username)
			continue
		}
		credited++
	}

	log.Printf("🔁 [ROSTER] batch of %d processed, %d topped up", len(batch), credited)
	return credited, nil
}
