package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

// Error is an HTTP error rendered as {"detail": ...}.
type Error struct {
	Code   int `json:"-"`
	Detail any `json:"detail"`
}

func (e Error) Error() string {
	if s, ok := e.Detail.(string); ok {
		return s
	}
	return "validation failed"
}

func NewError(code int, detail any) Error {
	return Error{Code: code, Detail: detail}
}

func ErrBadRequest() Error {
	return NewError(fiber.StatusBadRequest, "invalid JSON request")
}

func ErrNoResponse() Error {
	return NewError(fiber.StatusNotFound, "No response found")
}

// NewValidationError maps field names to the failed rule.
func NewValidationError(fields map[string]string) Error {
	return NewError(fiber.StatusUnprocessableEntity, fields)
}

// ErrorHandler renders every error as {"detail": ...}. Errors that are not
// an Error or a *fiber.Error become a logged 500.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var apiErr Error
		if errors.As(err, &apiErr) {
			return c.Status(apiErr.Code).JSON(apiErr)
		}

		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(NewError(fe.Code, fe.Message))
		}

		logger.Error("request failed",
			"method", c.Method(),
			"path", c.Path(),
			"error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(NewError(fiber.StatusInternalServerError, "Internal Server Error"))
	}
}
