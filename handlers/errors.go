package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/neweracoin/wfdropbackend/services"
	"github.com/neweracoin/wfdropbackend/utils"
)

// statusFor maps a service error to an HTTP status and a caller-safe message.
func statusFor(err error) (int, string) {
	var (
		validation *services.ValidationError
		notFound   *services.NotFoundError
		claimed    *services.AlreadyClaimedError
		storage    *services.StorageError
	)
	switch {
	case errors.As(err, &validation):
		return fiber.StatusBadRequest, validation.Error()
	case errors.As(err, &notFound):
		return fiber.StatusNotFound, notFound.Error()
	case errors.As(err, &claimed):
		return fiber.StatusBadRequest, claimed.Error()
	case errors.Is(err, services.ErrBoostKeyInvalid):
		return fiber.StatusOK, "Boost key not valid"
	case errors.As(err, &storage):
		log.Printf("❌ [HTTP] %v", storage)
		return fiber.StatusInternalServerError, "Internal Server Error"
	case errors.Is(err, services.ErrCodeSpaceExhausted):
		log.Printf("❌ [HTTP] %v", err)
		return fiber.StatusInternalServerError, "Internal Server Error"
	}
	log.Printf("❌ [HTTP] unexpected error: %v", err)
	return fiber.StatusInternalServerError, "Internal Server Error"
}

func respondError(c *fiber.Ctx, err error) error {
	status, message := statusFor(err)
	return c.Status(status).JSON(fiber.Map{
		"message": message,
		"success": false,
	})
}

// parseBody decodes the JSON body into out and validates it.
func parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return &services.ValidationError{Field: "body", Reason: "invalid request body"}
	}
	return utils.ValidateStruct(out)
}
