// handlers/boost.go
package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/neweracoin/wfdropbackend/services"
)

func SetupBoostRoutes(app *fiber.App, boost *services.BoostService, admin fiber.Handler) {
	app.Post("/activate-boost", func(c *fiber.Ctx) error {
		var req boostRequest
		if err := parseBody(c, &req); err != nil {
			return respondError(c, err)
		}
		result, err := boost.Activate(req.User, req.BoostCode, req.RefBoostCode)
		if errors.Is(err, services.ErrBoostKeyInvalid) {
			return c.JSON(fiber.Map{"message": "Boost key not valid", "success": false})
		}
		if err != nil {
			return respondError(c, err)
		}
		message := "Points updated successfully"
		if !result.Activated {
			message = "Boost already activated"
		}
		return c.JSON(fiber.Map{
			"message":  message,
			"userData": result.Entry,
			"userRank": result.Rank,
			"success":  true,
		})
	})

	app.Post("/get-user-data/boost-data", func(c *fiber.Ctx) error {
		var req userRequest
		if err := parseBody(c, &req); err != nil {
			return respondError(c, err)
		}
		standing, err := boost.Standing(req.User.ID)
		var nf *services.NotFoundError
		if errors.As(err, &nf) {
			return c.JSON(fiber.Map{
				"message": "User retrieved successfully",
				"userData": fiber.Map{
					"pointsNo":       0,
					"referralPoints": 0,
					"boostCode":      "",
					"boostActivated": false,
				},
				"success": false,
			})
		}
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"message":  "Boost data retrieved successfully",
			"userData": standing.BoostEntry,
			"userRank": standing.Rank,
			"success":  true,
		})
	})

	app.Post("/get-boost-participants", func(c *fiber.Ctx) error {
		count, err := boost.Participants()
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"message":   "Total boost participants",
			"boostData": fiber.Map{"count": count},
			"success":   true,
		})
	})

	app.Post("/boost-leaderboard-data", func(c *fiber.Ctx) error {
		board, err := boost.Leaderboard()
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"message":         "Leaderboard retrieved successfully",
			"leaderboardData": board,
			"success":         true,
		})
	})

	app.Post("/admin/boost-codes", admin, func(c *fiber.Ctx) error {
		var req boostRequest
		if err := parseBody(c, &req); err != nil {
			return respondError(c, err)
		}
		entry, err := boost.SeedRootCode(req.User, req.BoostCode)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message":  "Boost code ready",
			"userData": entry,
			"success":  true,
		})
	})
}
