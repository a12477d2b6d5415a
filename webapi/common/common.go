// Package common holds the response envelopes and request helpers shared by
// the HTTP handlers.
package common

import (
	"errors"
	"strings"

	"github.com/amirasaad/tripledger/pkg/domain"
	"github.com/amirasaad/tripledger/pkg/domain/purchase"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// Response defines the standard API response structure for success cases.
type Response struct {
	Status  int    `json:"status"`         // HTTP status code
	Message string `json:"message"`        // Human-readable explanation
	Data    any    `json:"data,omitempty"` // Response data
}

// ProblemDetails follows RFC 9457 Problem Details for HTTP APIs.
type ProblemDetails struct {
	Type     string `json:"type,omitempty"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	Errors   any    `json:"errors,omitempty"`
}

const internalErrorDetail = "An unexpected error occurred. Please retry later."

var validate = validator.New(validator.WithRequiredStructEnabled())

// ProblemDetailsJSON writes an RFC 9457 response. The optional args may carry
// a detail string and an explicit status code; without a status the code is
// derived from err. Details of 5xx errors are never exposed.
func ProblemDetailsJSON(c *fiber.Ctx, title string, err error, args ...any) error {
	status := fiber.StatusBadRequest
	if err != nil {
		status = ErrorToStatusCode(err)
	}
	detail := ""
	for _, arg := range args {
		switch v := arg.(type) {
		case int:
			status = v
		case string:
			detail = v
		}
	}

	pd := ProblemDetails{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Instance: c.OriginalURL(),
	}
	switch {
	case status >= fiber.StatusInternalServerError:
		pd.Detail = internalErrorDetail
	case detail != "":
		pd.Detail = detail
	case err != nil:
		pd.Detail = err.Error()
	}
	if status < fiber.StatusInternalServerError {
		pd.Errors = fieldErrors(err)
	}

	c.Set(fiber.HeaderContentType, "application/problem+json")
	return c.Status(status).JSON(pd)
}

// SuccessResponseJSON writes the standard success envelope.
func SuccessResponseJSON(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(Response{Status: status, Message: message, Data: data})
}

// ErrorToStatusCode maps domain errors to appropriate HTTP status codes.
func ErrorToStatusCode(err error) int {
	switch {
	case err == nil:
		return fiber.StatusOK
	case errors.Is(err, domain.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, domain.ErrAlreadyExists):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// BindAndValidate parses the request body and validates it using go-playground/validator.
// On failure it writes a problem response and returns a nil input together
// with the result of that write.
func BindAndValidate[T any](c *fiber.Ctx) (*T, error) {
	var input T
	if err := c.BodyParser(&input); err != nil {
		return nil, ProblemDetailsJSON(c, "Invalid request body", nil, err.Error(), fiber.StatusBadRequest)
	}
	if err := validate.Struct(input); err != nil {
		return nil, ProblemDetailsJSON(c, "Validation failed", err, fiber.StatusBadRequest)
	}
	return &input, nil
}

func fieldErrors(err error) map[string]string {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			out[lowerFirst(fe.Field())] = fe.Tag()
		}
		return out
	}
	var perr *purchase.ValidationError
	if errors.As(err, &perr) {
		return map[string]string{perr.Field: perr.Reason}
	}
	return nil
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
