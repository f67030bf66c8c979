package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/waymap/internal/core/domain"
)

// msgInvalidBox is the message browser callers of /ways have always received.
const msgInvalidBox = "Coordinates are input incorrectly"

// APIError is a structured error response. Error duplicates Message so that
// callers reading only the "error" field still get the reason.
type APIError struct {
	Error     string `json:"error"`
	Status    int    `json:"status"`
	Code      string `json:"code"`    // Error code: bad_request, not_found, internal_error, etc.
	Message   string `json:"message"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Error:     message,
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, 400, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, 404, "not_found", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, 500, "internal_error", msg)
}

// errBadGateway returns a 502 error.
func errBadGateway(c *fiber.Ctx, msg string) error {
	return newError(c, 502, "bad_gateway", msg)
}

// errUnavailable returns a 503 error.
func errUnavailable(c *fiber.Ctx, msg string) error {
	return newError(c, 503, "unavailable", msg)
}

// serviceError maps a usecase error onto a response.
func serviceError(c *fiber.Ctx, err error) error {
	var fetchErr *domain.FetchError
	switch {
	case errors.Is(err, domain.ErrInvalidBoundingBox):
		return errBadRequest(c, msgInvalidBox)
	case errors.Is(err, domain.ErrInvalidPoint), errors.Is(err, domain.ErrSelfIntersection):
		return errBadRequest(c, err.Error())
	case errors.Is(err, domain.ErrNoIntersection), errors.Is(err, domain.ErrNoRoutableNodes):
		return errNotFound(c, err.Error())
	case errors.As(err, &fetchErr):
		return errBadGateway(c, fetchErr.Error())
	default:
		LoggerFromCtx(c.UserContext()).Error("request failed", "path", c.Path(), "error", err)
		return errInternal(c, err.Error())
	}
}
