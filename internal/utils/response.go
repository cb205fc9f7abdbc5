// internal/utils/response.go
package utils

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// APIResponse is the envelope every display endpoint answers with
type APIResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"`
}

// APIError describes why a request failed
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
}

var errorCodes = map[int]string{
	http.StatusBadRequest:          "BAD_REQUEST",
	http.StatusNotFound:            "NOT_FOUND",
	http.StatusConflict:            "CONFLICT",
	http.StatusInternalServerError: "INTERNAL_SERVER_ERROR",
	http.StatusBadGateway:          "DISPLAY_UNREACHABLE",
	http.StatusServiceUnavailable:  "SERVICE_UNAVAILABLE",
}

// SuccessResponse sends a successful response
func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	send(c, statusCode, message, data, nil)
}

// ErrorResponse sends an error response
func ErrorResponse(c *gin.Context, statusCode int, message string, err error) {
	ErrorResponseWithData(c, statusCode, message, err, nil)
}

// ErrorResponseWithData sends an error response that still carries a payload,
// e.g. a command that was encoded but could not be delivered
func ErrorResponseWithData(c *gin.Context, statusCode int, message string, err error, data interface{}) {
	code, ok := errorCodes[statusCode]
	if !ok {
		code = "UNKNOWN_ERROR"
	}
	send(c, statusCode, message, data, newAPIError(code, message, "", err))
}

// ValidationErrorResponse sends a 400 for an argument the display rejects.
// data carries any commands emitted before the rejection.
func ValidationErrorResponse(c *gin.Context, field string, err error, data interface{}) {
	send(c, http.StatusBadRequest, "Validation failed", data,
		newAPIError("VALIDATION_ERROR", "Request validation failed", field, err))
}

func newAPIError(code, message, field string, err error) *APIError {
	apiErr := &APIError{Code: code, Message: message, Field: field}
	if err != nil {
		apiErr.Details = err.Error()
	}
	return apiErr
}

func send(c *gin.Context, statusCode int, message string, data interface{}, apiErr *APIError) {
	c.JSON(statusCode, APIResponse{
		Success:   apiErr == nil,
		Message:   message,
		Data:      data,
		Error:     apiErr,
		Timestamp: time.Now(),
		RequestID: c.GetString("request_id"),
	})
}
