// handlers/tasks.go
package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/neweracoin/wfdropbackend/services"
)

func SetupTaskRoutes(app *fiber.App, tasks *services.TaskService, admin fiber.Handler) {
	app.Get("/tasks", func(c *fiber.Ctx) error {
		list, err := tasks.List()
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(list)
	})

	app.Post("/tasks", admin, func(c *fiber.Ctx) error {
		var req services.TaskInput
		if err := parseBody(c, &req); err != nil {
			return respondError(c, err)
		}
		task, err := tasks.Create(req)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(task)
	})

	app.Put("/tasks/:id", admin, func(c *fiber.Ctx) error {
		var req services.TaskInput
		if err := parseBody(c, &req); err != nil {
			return respondError(c, err)
		}
		task, err := tasks.Update(c.Params("id"), req)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(task)
	})

	app.Delete("/tasks/:id", admin, func(c *fiber.Ctx) error {
		if err := tasks.Delete(c.Params("id")); err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"message": "Task deleted successfully", "success": true})
	})
}
