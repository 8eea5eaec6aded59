package authority

import (
	"encoding/json"
	"fmt"
	"time"
)

// Category classifies a failed call.
type Category string

const (
	CategoryConnection    Category = "connection"
	CategoryTimeout       Category = "timeout"
	CategoryHTTPStatus    Category = "http_status"
	CategoryBadData       Category = "bad_data"
	CategoryConfiguration Category = "configuration"
)

// Error describes why a call did not produce a usable response.
type Error struct {
	Category Category `json:"category"`
	Message  string   `json:"message"`
	Err      error    `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Category, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Result is the outcome of one submission. Failures are values, not errors:
// callers always get a Result and decide what to persist.
type Result struct {
	Success       bool            `json:"success"`
	StatusCode    int             `json:"status_code"`
	ContentType   string          `json:"content_type,omitempty"`
	CorrelationID string          `json:"correlation_id"`
	Body          json.RawMessage `json:"body,omitempty"`
	RawBody       string          `json:"raw_body,omitempty"`
	Error         *Error          `json:"error,omitempty"`
	Duration      time.Duration   `json:"-"`
}

// Outcome is the label used for metrics and logs.
func (r *Result) Outcome() string {
	if r.Success || r.Error == nil {
		return "success"
	}
	return string(r.Error.Category)
}

func failure(category Category, msg string, err error) *Result {
	return &Result{Error: &Error{Category: category, Message: msg, Err: err}}
}
