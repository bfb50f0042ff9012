package response

import (
	"github.com/Spower4/ghost-choice-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
)

// Service provides the HTTP response envelope shared by every handler
type Service struct{}

// NewService creates a response service
func NewService() *Service {
	return &Service{}
}

// ErrorResponse represents a standard API error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      string `json:"code,omitempty"`
	Retryable bool   `json:"retryable"`
}

// Error classifies err, logs the internal detail, and sends the sanitized
// envelope. The raw error never reaches the client.
func (s *Service) Error(c *fiber.Ctx, requestID string, err error) error {
	sanitized := models.SanitizeError(err)
	fiberlog.Errorf("[%s] Response: %s %s failed (%s/%s): %v",
		requestID, c.Method(), c.Path(), sanitized.Type, sanitized.Code, err)

	return c.Status(sanitized.GetStatusCode()).JSON(ErrorResponse{
		Error: ErrorDetail{
			Message:   sanitized.Message,
			Type:      string(sanitized.Type),
			Code:      sanitized.Code,
			Retryable: sanitized.Retryable,
		},
	})
}

// BadRequest sends a validation error without going through classification
func (s *Service) BadRequest(c *fiber.Ctx, requestID, message string) error {
	return s.Error(c, requestID, models.NewValidationError(message, nil))
}

// Success sends a 200 OK response with the provided data
func (s *Service) Success(c *fiber.Ctx, data any) error {
	return c.JSON(data)
}
