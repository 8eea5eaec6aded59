// Package admin serves the operator endpoints: catalog cache inspection and
// invalidation, and a view of recent audit events. Routes are mounted behind
// the admin token middleware.
package admin

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"lineacaptura/internal/catalog"
	catalogmodels "lineacaptura/internal/catalog/models"
	"lineacaptura/pkg/domain"
	dErrors "lineacaptura/pkg/domain-errors"
	audit "lineacaptura/pkg/platform/audit"
	"lineacaptura/pkg/platform/httputil"
	adminmw "lineacaptura/pkg/platform/middleware/admin"
	"lineacaptura/pkg/platform/middleware/request"
	"lineacaptura/pkg/requestcontext"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

// CacheService exposes catalog cache administration.
type CacheService interface {
	Invalidate(ctx context.Context, scope catalog.Scope, id *domain.AuthorityID) (int, error)
	Stats(ctx context.Context) (*catalogmodels.Stats, error)
}

// AuditReader lists stored audit events, newest first.
type AuditReader interface {
	ListRecent(ctx context.Context, limit int) ([]audit.Event, error)
}

// Publisher receives audit events.
type Publisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Handler struct {
	cache     CacheService
	events    AuditReader
	publisher Publisher
	token     string
	logger    *slog.Logger
}

// New constructs the admin handler. An empty token disables every route.
func New(cache CacheService, events AuditReader, publisher Publisher, token string, logger *slog.Logger) *Handler {
	return &Handler{
		cache:     cache,
		events:    events,
		publisher: publisher,
		token:     token,
		logger:    logger,
	}
}

// Register mounts the admin routes under /admin.
func (h *Handler) Register(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(adminmw.RequireAdminToken(h.token, h.logger))
		r.Get("/cache/stats", h.HandleCacheStats)
		r.Post("/cache/clear", h.HandleClearCache)
		r.Get("/audit/recent", h.HandleRecentAudit)
	})
}

// HandleCacheStats handles GET /admin/cache/stats.
func (h *Handler) HandleCacheStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats, err := h.cache.Stats(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to read cache stats",
			"error", err,
			"request_id", request.GetRequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

// HandleClearCache handles POST /admin/cache/clear.
func (h *Handler) HandleClearCache(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[ClearCacheRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	removed, err := h.cache.Invalidate(ctx, req.ParsedScope(), req.AuthorityID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to clear catalog cache",
			"scope", req.Scope,
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}

	resp := ClearCacheResponse{Scope: req.Scope, Removed: removed}
	event := audit.NewEvent(audit.EventCatalogInvalidated)
	event.Decision = "cleared"
	event.RequestID = requestID
	event.ClientIP = requestcontext.ClientIP(ctx)
	event.Details = map[string]string{"scope": req.Scope, "removed": strconv.Itoa(removed)}
	if req.AuthorityID != nil {
		id := int64(*req.AuthorityID)
		resp.AuthorityID = &id
		event.Subject = req.AuthorityID.String()
	}
	if h.publisher != nil {
		if err := h.publisher.Emit(ctx, event); err != nil {
			h.logger.WarnContext(ctx, "failed to emit audit event",
				"action", event.Action,
				"error", err,
				"request_id", requestID,
			)
		}
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleRecentAudit handles GET /admin/audit/recent?limit=N.
func (h *Handler) HandleRecentAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := defaultAuditLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxAuditLimit {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be between 1 and "+strconv.Itoa(maxAuditLimit)))
			return
		}
		limit = n
	}
	events, err := h.events.ListRecent(ctx, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list audit events",
			"error", err,
			"request_id", request.GetRequestID(ctx),
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "audit store unavailable"))
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	httputil.WriteJSON(w, http.StatusOK, AuditEventsResponse{Events: events, Total: len(events)})
}
