package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"wealth-go-api/internal/advisor"
	"wealth-go-api/internal/analytics"
	"wealth-go-api/internal/llm"
	"wealth-go-api/internal/models"
	"wealth-go-api/internal/services"
)

// statusFor maps a service error onto an HTTP status and a short title.
func statusFor(err error) (int, string) {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code, "Request failed"
	}
	var le *llm.Error
	switch {
	case errors.Is(err, services.ErrEmptyUserID), errors.Is(err, services.ErrInvalidUserID), errors.Is(err, advisor.ErrEmptyMessage):
		return fiber.StatusBadRequest, "Invalid request"
	case errors.Is(err, analytics.ErrInvalidInput):
		return fiber.StatusBadRequest, "Invalid input"
	case errors.Is(err, analytics.ErrInsufficientData), errors.Is(err, analytics.ErrDivisionByZero):
		return fiber.StatusUnprocessableEntity, "Insufficient data"
	case errors.As(err, &le):
		return fiber.StatusBadGateway, "Model provider failed"
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout, "Request timed out"
	}
	return fiber.StatusInternalServerError, "Request failed"
}

// CustomErrorHandler handles errors returned by handlers and Fiber itself
func CustomErrorHandler(c *fiber.Ctx, err error) error {
	code, title := statusFor(err)
	return c.Status(code).JSON(models.ErrorResponse{
		Error:   title,
		Message: err.Error(),
		Code:    code,
	})
}

func badRequest(c *fiber.Ctx, title string, err error) error {
	resp := models.ErrorResponse{Error: title, Code: fiber.StatusBadRequest}
	if err != nil {
		resp.Message = err.Error()
	}
	return c.Status(fiber.StatusBadRequest).JSON(resp)
}
