package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// R2Config holds the Cloudflare R2 settings used to publish snapshots.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	CDNBaseURL      string
}

// Enabled reports whether every setting needed to upload is present.
func (c R2Config) Enabled() bool {
	return c.AccountID != "" && c.AccessKeyID != "" && c.AccessKeySecret != "" && c.Bucket != ""
}

type Config struct {
	DatabaseURL         string
	Port                string
	AdminToken          string
	AllowedOrigins      string
	DailyStaleAfter     time.Duration
	LeaderboardCacheTTL time.Duration
	RosterFile          string
	R2                  R2Config
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func duration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, raw)
	}
	return d, nil
}

// Load reads the configuration from the environment. Callers load .env first.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		Port:           getenv("PORT", "4000"),
		AdminToken:     os.Getenv("ADMIN_TOKEN"),
		AllowedOrigins: getenv("ALLOWED_ORIGINS", "*"),
		RosterFile:     getenv("ROSTER_FILE", "ref_accounts.toml"),
		R2: R2Config{
			AccountID:       os.Getenv("CLOUDFLARE_ACCOUNT_ID"),
			AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
			AccessKeySecret: os.Getenv("R2_ACCESS_KEY_SECRET"),
			Bucket:          os.Getenv("R2_BUCKET_NAME"),
			CDNBaseURL:      os.Getenv("CDN_BASE_URL"),
		},
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}

	var err error
	if cfg.DailyStaleAfter, err = duration("DAILY_STALE_AFTER", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.LeaderboardCacheTTL, err = duration("LEADERBOARD_CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}

	// Split the comma-separated list and trim spaces from each origin
	origins := strings.Split(cfg.AllowedOrigins, ",")
	for i, origin := range origins {
		origins[i] = strings.TrimSpace(origin)
	}
	cfg.AllowedOrigins = strings.Join(origins, ",")

	return cfg, nil
}
