package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"seodesk/internal/dataforseo"
	"seodesk/internal/models"
)

// jsonSuccess returns a 200 response with data wrapped in the standard envelope.
func jsonSuccess(c fiber.Ctx, data any) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"data":   data,
	})
}

// jsonCreated is jsonSuccess with a 201 status.
func jsonCreated(c fiber.Ctx, data any) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"status": "ok",
		"data":   data,
	})
}

// jsonError returns an error response with the given HTTP status code.
func jsonError(c fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"status": "error",
		"error":  message,
	})
}

// jsonErrorDetails is jsonError with an extra details field.
func jsonErrorDetails(c fiber.Ctx, status int, message, details string) error {
	return c.Status(status).JSON(fiber.Map{
		"status":  "error",
		"error":   message,
		"details": details,
	})
}

// providerError reports a failed upstream call. Provider errors are a 502 with
// the provider message as details; anything else is a 500.
func providerError(c fiber.Ctx, message string, err error) error {
	slog.Error(message, "path", c.Path(), "error", err)
	var apiErr *dataforseo.APIError
	if errors.As(err, &apiErr) {
		return jsonErrorDetails(c, fiber.StatusBadGateway, message, apiErr.Error())
	}
	return jsonErrorDetails(c, fiber.StatusInternalServerError, message, err.Error())
}

// currentUser returns the user loaded by the auth middleware.
func currentUser(c fiber.Ctx) (*models.User, bool) {
	user, ok := c.Locals("user").(*models.User)
	return user, ok && user != nil
}

func paramUUID(c fiber.Ctx, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params(name))
	return id, err == nil
}
