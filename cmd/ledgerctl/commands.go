package main

import (
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/neweracoin/wfdropbackend/config"
	"github.com/neweracoin/wfdropbackend/models"
	"github.com/neweracoin/wfdropbackend/services"
	"github.com/neweracoin/wfdropbackend/workers"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	rootCmd = &cobra.Command{
		Use:   "ledgerctl",
		Short: "Run the rewards ledger's scheduled jobs by hand",
		Long:  `Operator tool for the rewards ledger: rebuilds leaderboard snapshots, resets the daily flag and runs a roster top-up batch once, outside the scheduler.`,
	}
	materializeCmd = &cobra.Command{
		Use:       "materialize [score|referral|all]",
		Short:     "Rebuild leaderboard snapshots now",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"score", "referral", "all"},
		RunE:      runMaterialize,
	}
	resetDailyCmd = &cobra.Command{
		Use:   "reset-daily",
		Short: "Reset every user's pointsToday flag",
		RunE:  runResetDaily,
	}
	topUpCmd = &cobra.Command{
		Use:   "topup",
		Short: "Run one reference-account top-up batch",
		RunE:  runTopUp,
	}

	rosterFile string
)

func init() {
	rootCmd.AddCommand(materializeCmd)
	rootCmd.AddCommand(resetDailyCmd)
	rootCmd.AddCommand(topUpCmd)
	topUpCmd.Flags().StringVar(&rosterFile, "roster", "", "Roster TOML file (defaults to ROSTER_FILE)")
}

func openDB() (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return cfg, db, nil
}

// kindsFor resolves the materialize argument.
func kindsFor(args []string) ([]services.LeaderboardKind, error) {
	if len(args) == 0 || args[0] == "all" {
		return services.LeaderboardKinds, nil
	}
	kind, err := services.ParseLeaderboardKind(args[0])
	if err != nil {
		return nil, err
	}
	return []services.LeaderboardKind{kind}, nil
}

func runMaterialize(cmd *cobra.Command, args []string) error {
	kinds, err := kindsFor(args)
	if err != nil {
		return err
	}
	cfg, db, err := openDB()
	if err != nil {
		return err
	}
	cache, err := services.NewLeaderboardCache(cfg.LeaderboardCacheTTL, clockwork.NewRealClock())
	if err != nil {
		return err
	}
	leaderboards := services.NewLeaderboardService(db, cache, nil)
	for _, kind := range kinds {
		n, _, err := leaderboards.Refresh(cmd.Context(), kind, true)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d entries\n", kind, n)
	}
	return nil
}

func runResetDaily(cmd *cobra.Command, args []string) error {
	_, db, err := openDB()
	if err != nil {
		return err
	}
	ledger := services.NewLedgerService(db, services.NewRegistryService(db, clockwork.NewRealClock()))
	n, err := ledger.ResetPointsToday()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "reset pointsToday for %d users\n", n)
	return nil
}

func runTopUp(cmd *cobra.Command, args []string) error {
	cfg, db, err := openDB()
	if err != nil {
		return err
	}
	path := rosterFile
	if path == "" {
		path = cfg.RosterFile
	}
	accounts, err := workers.LoadRoster(path)
	if err != nil {
		return err
	}
	n, err := workers.NewRosterTopUpWorker(db, accounts, nil).RunBatch(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "topped up %d of %d accounts\n", n, len(accounts))
	return nil
}
