package admin

import (
	audit "lineacaptura/pkg/platform/audit"
)

// ClearCacheResponse reports what POST /admin/cache/clear removed.
type ClearCacheResponse struct {
	Scope       string `json:"scope"`
	AuthorityID *int64 `json:"authority_id,omitempty"`
	Removed     int    `json:"removed"`
}

// AuditEventsResponse wraps recent audit events.
type AuditEventsResponse struct {
	Events []audit.Event `json:"events"`
	Total  int           `json:"total"`
}
