package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	audit "lineacaptura/pkg/platform/audit"
	txcontext "lineacaptura/pkg/platform/tx"
)

// Store implements audit.Store on the audit_events table. When the context
// carries a transaction the insert joins it, so a compliance event commits or
// rolls back with the capture record it describes.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const eventColumns = `category, timestamp, action, session_id, subject, decision, reason, request_id, client_ip, details`

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	category := event.Category
	if category == "" {
		category = audit.AuditEvent(event.Action).Category()
	}
	var details any
	if len(event.Details) > 0 {
		raw, err := json.Marshal(event.Details)
		if err != nil {
			return fmt.Errorf("marshal audit details: %w", err)
		}
		details = raw
	}

	_, err := txcontext.Exec(ctx, s.db).ExecContext(ctx,
		`INSERT INTO audit_events (`+eventColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		string(category),
		event.Timestamp,
		event.Action,
		event.SessionID,
		event.Subject,
		event.Decision,
		event.Reason,
		event.RequestID,
		event.ClientIP,
		details,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListBySession returns a session's events, oldest first.
func (s *Store) ListBySession(ctx context.Context, sessionID string) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM audit_events WHERE session_id = $1 ORDER BY timestamp, id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ListRecent returns the limit most recent events.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM audit_events ORDER BY timestamp DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event
	for rows.Next() {
		var (
			e        audit.Event
			category string
			details  []byte
		)
		if err := rows.Scan(&category, &e.Timestamp, &e.Action, &e.SessionID, &e.Subject,
			&e.Decision, &e.Reason, &e.RequestID, &e.ClientIP, &details); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Category = audit.EventCategory(category)
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, fmt.Errorf("decode audit details: %w", err)
			}
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
