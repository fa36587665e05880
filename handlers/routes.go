package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/neweracoin/wfdropbackend/middleware"
	"github.com/neweracoin/wfdropbackend/services"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// Services bundles everything the HTTP layer calls into.
type Services struct {
	Registry     *services.RegistryService
	Ledger       *services.LedgerService
	Rewards      *services.RewardService
	Cycles       *services.CycleService
	Session      *services.SessionService
	Tasks        *services.TaskService
	Boost        *services.BoostService
	Leaderboards *services.LeaderboardService
}

// NewServices wires the ledger services over one database handle.
func NewServices(db *gorm.DB, clock clockwork.Clock, staleAfter time.Duration, cache *services.LeaderboardCache, publisher services.SnapshotPublisher) *Services {
	registry := services.NewRegistryService(db, clock)
	rewards := services.NewRewardService(db, clock, staleAfter)
	return &Services{
		Registry:     registry,
		Ledger:       services.NewLedgerService(db, registry),
		Rewards:      rewards,
		Cycles:       services.NewCycleService(db, clock),
		Session:      services.NewSessionService(registry, rewards),
		Tasks:        services.NewTaskService(db),
		Boost:        services.NewBoostService(db, clock),
		Leaderboards: services.NewLeaderboardService(db, cache, publisher),
	}
}

// SetupRoutes mounts every endpoint. Catalog writes and operator routes
// require the admin token.
func SetupRoutes(app *fiber.App, svc *Services, adminToken string) {
	admin := middleware.AdminAuthMiddleware(adminToken)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	SetupUserRoutes(app, svc.Session, svc.Registry, svc.Ledger)
	SetupRewardRoutes(app, svc.Rewards, svc.Cycles)
	SetupBoostRoutes(app, svc.Boost, admin)
	SetupLeaderboardRoutes(app, svc.Leaderboards, admin)
	SetupTaskRoutes(app, svc.Tasks, admin)
}
