// handlers/rewards.go
package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/neweracoin/wfdropbackend/services"
)

func SetupRewardRoutes(app *fiber.App, rewards *services.RewardService, cycles *services.CycleService) {
	app.Post("/update-social-reward", func(c *fiber.Ctx) error {
		var req claimRequest
		if err := parseBody(c, &req); err != nil {
			return respondError(c, err)
		}
		user, err := rewards.ClaimSocialReward(req.User, string(req.ClaimKey))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"message": "Points updated successfully", "userData": user, "success": true})
	})

	app.Post("/update-social-timer", func(c *fiber.Ctx) error {
		var req timerRequest
		if err := parseBody(c, &req); err != nil {
			return respondError(c, err)
		}
		user, err := rewards.ClaimSocialTimer(req.User, string(req.ClaimKey), req.Time)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"message": "Points updated successfully", "userData": user, "success": true})
	})

	app.Post("/update-daily-reward", func(c *fiber.Ctx) error {
		var req claimRequest
		if err := parseBody(c, &req); err != nil {
			return respondError(c, err)
		}
		user, err := rewards.ClaimDailyReward(req.User, string(req.ClaimKey))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"message": "Points updated successfully", "userData": user, "success": true})
	})

	app.Post("/update-next-login", func(c *fiber.Ctx) error {
		var req userRequest
		if err := parseBody(c, &req); err != nil {
			return respondError(c, err)
		}
		user, err := rewards.RearmDailyRewards(req.User)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"message": "Next login updated successfully", "userData": user, "success": true})
	})

	app.Post("/reset-daily-claim", func(c *fiber.Ctx) error {
		var req userRequest
		if err := parseBody(c, &req); err != nil {
			return respondError(c, err)
		}
		user, reset, err := rewards.ResetDailyClaimIfStale(req.User)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"message": "reset claim updated successfully", "userData": user, "reset": reset, "success": true})
	})

	// --- 7-day streak ---

	app.Post("/daily-reward-claim", func(c *fiber.Ctx) error {
		var req userRequest
		if err := parseBody(c, &req); err != nil {
			return respondError(c, err)
		}
		claim, err := cycles.ClaimDaily(req.User.ID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"message":     "Points claimed successfully",
			"awarded":     claim.Awarded,
			"totalPoints": claim.Cycle.TotalPoints,
			"reward":      claim.Cycle,
			"success":     true,
		})
	})

	app.Post("/daily-reward-status", func(c *fiber.Ctx) error {
		var req userRequest
		if err := parseBody(c, &req); err != nil {
			return respondError(c, err)
		}
		cycle, err := cycles.Status(req.User.ID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"reward": cycle, "success": true})
	})
}
