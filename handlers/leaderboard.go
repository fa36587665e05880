// handlers/leaderboard.go
package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/neweracoin/wfdropbackend/services"
)

func SetupLeaderboardRoutes(app *fiber.App, leaderboards *services.LeaderboardService, admin fiber.Handler) {
	// Reads serve the last materialized snapshot; ranks are never computed here.
	// userRank is not tracked per user and is always 0.
	app.Post("/leaderboard-data", func(c *fiber.Ctx) error {
		entries, err := leaderboards.ScoreSnapshot()
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"message":         "Leaderboard retrieved successfully",
			"leaderboardData": entries,
			"userRank":        0,
		})
	})

	app.Post("/referral-leaderboard-data", func(c *fiber.Ctx) error {
		entries, err := leaderboards.ReferralSnapshot()
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"message":         "Leaderboard retrieved successfully",
			"leaderboardData": entries,
			"userRank":        0,
		})
	})

	app.Post("/admin/leaderboards/refresh", admin, func(c *fiber.Ctx) error {
		var req refreshRequest
		if len(c.Body()) > 0 {
			if err := parseBody(c, &req); err != nil {
				return respondError(c, err)
			}
		}

		kinds := services.LeaderboardKinds
		if req.Kind != "" {
			kind, err := services.ParseLeaderboardKind(req.Kind)
			if err != nil {
				return respondError(c, err)
			}
			kinds = []services.LeaderboardKind{kind}
		}

		results := make([]fiber.Map, 0, len(kinds))
		for _, kind := range kinds {
			n, cached, err := leaderboards.Refresh(c.UserContext(), kind, req.Force)
			if err != nil {
				return respondError(c, err)
			}
			results = append(results, fiber.Map{"kind": kind, "entries": n, "cached": cached})
		}
		return c.JSON(fiber.Map{"message": "Leaderboards refreshed", "results": results, "success": true})
	})
}
