package runtime

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"reportfetch/internal/domain/model"
)

// Error codes carried by ErrorResponse.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeBatch      = "BATCH_ERROR"
	CodeInternal   = "INTERNAL_ERROR"
	CodeCancelled  = "CANCELLED"
)

// Request is a platform-agnostic batch invocation. Payload is a JSON
// manifest (array or {"requests": [...]}).
type Request struct {
	ID        string            `json:"id"`
	Source    string            `json:"source"`
	Payload   json.RawMessage   `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Response reports one batch invocation. Success means the batch ran to
// completion; individual downloads may still have failed.
type Response struct {
	ID          string             `json:"id"`
	Success     bool               `json:"success"`
	Result      *model.BatchResult `json:"result,omitempty"`
	Error       *ErrorResponse     `json:"error,omitempty"`
	Metadata    map[string]string  `json:"metadata,omitempty"`
	ProcessedAt time.Time          `json:"processed_at"`
	Duration    time.Duration      `json:"duration,omitempty"`
}

// ErrorResponse is structured error information.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   string `json:"details,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

// NewRequest wraps payload with a generated ID and timestamp.
func NewRequest(source string, payload json.RawMessage) Request {
	return Request{
		ID:        uuid.NewString(),
		Source:    source,
		Payload:   payload,
		Metadata:  make(map[string]string),
		Timestamp: time.Now().UTC(),
	}
}

// NewErrorResponse creates a failed Response.
func NewErrorResponse(id, code, message, details string) Response {
	return Response{
		ID: id,
		Error: &ErrorResponse{
			Code:      code,
			Message:   message,
			Details:   details,
			Retryable: code == CodeBatch || code == CodeCancelled,
		},
		ProcessedAt: time.Now().UTC(),
	}
}

// NewSuccessResponse creates a Response carrying result.
func NewSuccessResponse(id string, result model.BatchResult) Response {
	return Response{
		ID:          id,
		Success:     true,
		Result:      &result,
		Metadata:    make(map[string]string),
		ProcessedAt: time.Now().UTC(),
	}
}
