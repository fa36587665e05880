// handlers/users.go
package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/neweracoin/wfdropbackend/services"
)

func SetupUserRoutes(app *fiber.App, session *services.SessionService, registry *services.RegistryService, ledger *services.LedgerService) {
	// Mini-app check-in: creates on first contact, then runs login maintenance.
	// success=false flags a brand-new user.
	app.Post("/get-user-data", func(c *fiber.Ctx) error {
		var req loginRequest
		if err := parseBody(c, &req); err != nil {
			return respondError(c, err)
		}
		user, isNew, err := session.Login(req.User, req.ReferralCode)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"message":  "User retrieved successfully",
			"userData": user,
			"success":  !isNew,
		})
	})

	app.Post("/bot/start", func(c *fiber.Ctx) error {
		var req botStartRequest
		if err := parseBody(c, &req); err != nil {
			return respondError(c, err)
		}
		user, created, alreadyReferred, err := registry.RegisterFromBot(req.User, req.Payload)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"message":         "Bot session registered",
			"userData":        user,
			"created":         created,
			"alreadyReferred": alreadyReferred,
			"success":         true,
		})
	})

	app.Post("/get-user-referrals", func(c *fiber.Ctx) error {
		var req referralsRequest
		if err := parseBody(c, &req); err != nil {
			return respondError(c, err)
		}
		users, err := registry.ListReferrals(req.ReferralCode)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"message":  "Users retrieved successfully",
			"userData": users,
			"success":  true,
		})
	})

	app.Post("/update-task-points", func(c *fiber.Ctx) error {
		var req pointsRequest
		if err := parseBody(c, &req); err != nil {
			return respondError(c, err)
		}
		user, err := ledger.CreditTaskPoints(req.User, req.PointsNo)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"message":  "Points updated successfully",
			"userData": user,
			"success":  true,
		})
	})

	app.Post("/update-early-adopter", func(c *fiber.Ctx) error {
		var req pointsRequest
		if err := parseBody(c, &req); err != nil {
			return respondError(c, err)
		}
		user, err := ledger.ClaimEarlyAdopter(req.User, req.PointsNo)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"message":  "Points updated successfully",
			"userData": user,
			"success":  true,
		})
	})
}
