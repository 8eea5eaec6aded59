package audit

import (
	"context"
	"errors"
	"time"
)

// EventCategory classifies audit events by their primary purpose so sinks can
// apply different retention.
type EventCategory string

const (
	// CategoryCompliance covers events with fiscal significance, such as a
	// capture line being requested from the authority.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers events useful for debugging and support.
	CategoryOperations EventCategory = "operations"
)

type AuditEvent string

const (
	EventFlowStepRejected     AuditEvent = "flow_step_rejected"
	EventCaptureLineGenerated AuditEvent = "capture_line_generated"
	EventAuthorityCallFailed  AuditEvent = "authority_call_failed"
	EventCatalogInvalidated   AuditEvent = "catalog_invalidated"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventCaptureLineGenerated: CategoryCompliance,
	EventAuthorityCallFailed:  CategoryCompliance,
	EventFlowStepRejected:     CategoryOperations,
	EventCatalogInvalidated:   CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Event is emitted from domain logic to capture key actions. It is
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory     `json:"category"`
	Timestamp time.Time         `json:"timestamp"`
	Action    string            `json:"action"`
	SessionID string            `json:"session_id,omitempty"`
	Subject   string            `json:"subject,omitempty"`
	Decision  string            `json:"decision,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	ClientIP  string            `json:"client_ip,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

// NewEvent builds an event for action with its category filled in.
func NewEvent(action AuditEvent) Event {
	return Event{Category: action.Category(), Action: string(action)}
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Fanout appends each event to every store, joining any errors.
type Fanout []Store

func (f Fanout) Append(ctx context.Context, event Event) error {
	var errs []error
	for _, s := range f {
		if err := s.Append(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
