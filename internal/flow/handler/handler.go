// Package handler serves the capture-line wizard. Every stage endpoint sits
// behind flow.Guard, so handlers can rely on the session state they read.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"lineacaptura/internal/capture"
	capturemodels "lineacaptura/internal/capture/models"
	catalogmodels "lineacaptura/internal/catalog/models"
	"lineacaptura/internal/flow"
	"lineacaptura/internal/platform/metrics"
	"lineacaptura/pkg/domain"
	dErrors "lineacaptura/pkg/domain-errors"
	audit "lineacaptura/pkg/platform/audit"
	"lineacaptura/pkg/platform/httputil"
	"lineacaptura/pkg/platform/middleware/request"
	"lineacaptura/pkg/requestcontext"
)

// CatalogService is the read side of the catalog used by the wizard pages.
type CatalogService interface {
	ListAuthorities(ctx context.Context) ([]catalogmodels.Authority, error)
	GetAuthority(ctx context.Context, id domain.AuthorityID) (*catalogmodels.Authority, error)
	GetServices(ctx context.Context, ids []domain.ServiceID) ([]catalogmodels.Service, error)
	GetServicesByAuthority(ctx context.Context, id domain.AuthorityID) ([]catalogmodels.Service, error)
}

// CaptureService prices, generates and reads capture lines.
type CaptureService interface {
	Preview(ctx context.Context, authorityID domain.AuthorityID, sel domain.Selection) (*capture.Summary, error)
	Generate(ctx context.Context, req capture.Request) (*capture.Outcome, error)
	Get(ctx context.Context, id domain.RecordID) (*capturemodels.Record, error)
}

// Publisher receives audit events.
type Publisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Handler wires the wizard endpoints to the catalog and capture services.
type Handler struct {
	catalog   CatalogService
	capture   CaptureService
	sessions  flow.SessionStore
	publisher Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics

	generateLimit func(http.Handler) http.Handler
}

// Option configures optional Handler behaviour.
type Option func(*Handler)

// WithGenerateLimit wraps POST /generar-linea, the only route that calls the
// payment authority, in mw.
func WithGenerateLimit(mw func(http.Handler) http.Handler) Option {
	return func(h *Handler) { h.generateLimit = mw }
}

// New constructs the wizard handler. publisher and metrics may be nil.
func New(
	catalog CatalogService,
	capture CaptureService,
	sessions flow.SessionStore,
	publisher Publisher,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	opts ...Option,
) *Handler {
	h := &Handler{
		catalog:   catalog,
		capture:   capture,
		sessions:  sessions,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the wizard routes. Each stage group only admits sessions
// whose derived stage matches.
func (h *Handler) Register(r chi.Router) {
	r.Get(flow.EndpointStart, h.HandleStart)
	r.Get(flow.EndpointGenerate, h.HandleGenerateReload)
	r.Get(flow.EndpointBack, h.HandleBack)
	r.Post(flow.EndpointBack, h.HandleBack)

	r.Group(func(r chi.Router) {
		r.Use(h.guard(flow.StageStart))
		r.Post(flow.EndpointStart, h.HandleChooseAuthority)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard(flow.StageAuthorityChosen))
		r.Get(flow.EndpointServices, h.HandleListServices)
		r.Post(flow.EndpointServices, h.HandleChooseServices)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard(flow.StageServicesChosen))
		r.Get(flow.EndpointPayer, h.HandleShowSelection)
		r.Post(flow.EndpointPayer, h.HandleCapturePayer)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard(flow.StagePayerCaptured))
		r.Get(flow.EndpointSummary, h.HandleSummary)
		if h.generateLimit != nil {
			r.With(h.generateLimit).Post(flow.EndpointGenerate, h.HandleGenerate)
		} else {
			r.Post(flow.EndpointGenerate, h.HandleGenerate)
		}
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard(flow.StageFinalized))
		r.Get(flow.EndpointCaptureLine, h.HandleResult)
	})
}

func (h *Handler) guard(required flow.Stage) func(http.Handler) http.Handler {
	return flow.Guard(h.sessions, required, h.logger, h.rejected)
}

// rejected records an out-of-order navigation attempt.
func (h *Handler) rejected(ctx context.Context, requested, derived flow.Stage) {
	h.metrics.IncrementFlowRedirect(string(requested), string(derived))
	event := audit.NewEvent(audit.EventFlowStepRejected)
	event.Decision = "redirected"
	event.Reason = "stage_mismatch"
	event.Details = map[string]string{
		"requested": string(requested),
		"derived":   string(derived),
	}
	h.emit(ctx, event)
}

func (h *Handler) emit(ctx context.Context, event audit.Event) {
	if h.publisher == nil {
		return
	}
	event.SessionID = requestcontext.SessionID(ctx)
	event.RequestID = request.GetRequestID(ctx)
	event.ClientIP = requestcontext.ClientIP(ctx)
	if err := h.publisher.Emit(ctx, event); err != nil {
		h.logger.WarnContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"error", err,
			"request_id", event.RequestID,
		)
	}
}

// HandleStart handles GET /inicio: it discards any flow data the session
// holds and lists the authorities.
func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	if err := h.sessions.Delete(ctx, requestcontext.SessionID(ctx)); err != nil {
		h.logger.ErrorContext(ctx, "failed to reset flow session",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "session store unavailable"))
		return
	}

	authorities, err := h.catalog.ListAuthorities(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list authorities",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, AuthoritiesResponse{
		Authorities: authorities,
		Next:        flow.EndpointStart,
	})
}

// HandleChooseAuthority handles POST /inicio.
func (h *Handler) HandleChooseAuthority(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[ChooseAuthorityRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if _, err := h.catalog.GetAuthority(ctx, req.AuthorityID); err != nil {
		h.logger.WarnContext(ctx, "authority lookup failed",
			"authority_id", int64(req.AuthorityID),
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}
	h.advance(w, r, flow.ChooseAuthority(req.AuthorityID))
}

// HandleListServices handles GET /tramite.
func (h *Handler) HandleListServices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	state := flow.StateFrom(ctx)

	a, err := h.catalog.GetAuthority(ctx, *state.AuthorityID)
	if err != nil {
		h.fail(w, r, "failed to load authority", err)
		return
	}
	services, err := h.catalog.GetServicesByAuthority(ctx, a.ID)
	if err != nil {
		h.fail(w, r, "failed to load services", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ServicesResponse{
		Authority: *a,
		Services:  services,
		Next:      flow.EndpointServices,
	})
}

// HandleChooseServices handles POST /tramite. Only services the chosen
// authority offers for selection are accepted.
func (h *Handler) HandleChooseServices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)
	state := flow.StateFrom(ctx)

	req, ok := httputil.DecodeAndPrepare[ChooseServicesRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	offered, err := h.catalog.GetServicesByAuthority(ctx, *state.AuthorityID)
	if err != nil {
		h.fail(w, r, "failed to load services", err)
		return
	}
	ids := make(map[domain.ServiceID]struct{}, len(offered))
	for _, s := range offered {
		ids[s.ID] = struct{}{}
	}
	for _, item := range req.Selection() {
		if _, ok := ids[item.ServiceID]; !ok {
			h.logger.WarnContext(ctx, "service not offered by authority",
				"authority_id", int64(*state.AuthorityID),
				"service_id", int64(item.ServiceID),
				"request_id", requestID,
			)
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "service "+item.ServiceID.String()+" is not offered by this authority"))
			return
		}
	}
	h.advance(w, r, state.ChooseServices(req.Selection()))
}

// HandleShowSelection handles GET /persona.
func (h *Handler) HandleShowSelection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	state := flow.StateFrom(ctx)

	services, err := h.catalog.GetServices(ctx, state.Services.IDs())
	if err != nil {
		h.fail(w, r, "failed to load selected services", err)
		return
	}
	selected := make([]SelectedServiceResponse, len(services))
	for i, s := range services {
		selected[i] = SelectedServiceResponse{Service: s, Quantity: state.Services[i].Quantity}
	}
	httputil.WriteJSON(w, http.StatusOK, SelectionResponse{
		Services: selected,
		Next:     flow.EndpointPayer,
	})
}

// HandleCapturePayer handles POST /persona.
func (h *Handler) HandleCapturePayer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CapturePayerRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	h.advance(w, r, flow.StateFrom(ctx).CapturePayer(req.Payer()))
}

// HandleSummary handles GET /pago. Amounts come from the same pricing path
// used at generation.
func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	state := flow.StateFrom(ctx)

	sum, err := h.capture.Preview(ctx, *state.AuthorityID, state.Services)
	if err != nil {
		h.fail(w, r, "failed to price selection", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newSummaryResponse(sum, *state.Payer, flow.EndpointGenerate))
}

// HandleGenerate handles POST /generar-linea. Once a record exists the
// session is finalized whether or not the authority accepted it.
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)
	state := flow.StateFrom(ctx)

	out, err := h.capture.Generate(ctx, capture.Request{
		AuthorityID: *state.AuthorityID,
		Selection:   state.Services,
		Payer:       *state.Payer,
	})
	if err != nil {
		h.fail(w, r, "capture line generation failed", err)
		return
	}

	if err := h.finalize(ctx, flow.Finalize(out.Record.ID, requestcontext.Now(ctx))); err != nil {
		h.logger.ErrorContext(ctx, "failed to finalize flow session",
			"record_id", int64(out.Record.ID),
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "capture line generated but the session could not be updated"))
		return
	}
	h.writeResult(w, r, out.Record)
}

const finalizeAttempts = 3

// finalize saves the finalized state. A session left in payer-captured can
// generate a second record, so the save is retried before giving up.
func (h *Handler) finalize(ctx context.Context, state flow.State) error {
	var err error
	for attempt := 1; attempt <= finalizeAttempts; attempt++ {
		if err = h.sessions.Save(ctx, requestcontext.SessionID(ctx), state); err == nil {
			return nil
		}
		h.logger.WarnContext(ctx, "saving finalized flow session failed",
			"attempt", attempt,
			"error", err,
			"request_id", request.GetRequestID(ctx),
		)
	}
	return err
}

// HandleGenerateReload handles GET /generar-linea, which is never a valid way
// to generate and only happens on reloads.
func (h *Handler) HandleGenerateReload(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, flow.EndpointStart, http.StatusSeeOther)
}

// HandleResult handles GET /linea-captura.
func (h *Handler) HandleResult(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	state := flow.StateFrom(ctx)

	record, err := h.capture.Get(ctx, state.Finalized.RecordID)
	if err != nil {
		h.fail(w, r, "failed to load capture record", err)
		return
	}
	h.writeResult(w, r, record)
}

// HandleBack handles GET and POST /regresar. The step name comes from the
// paso query or form value. Only the step of the current stage is undone;
// unknown or stale step names leave the state untouched.
func (h *Handler) HandleBack(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)
	sessionID := requestcontext.SessionID(ctx)

	state, err := h.sessions.Load(ctx, sessionID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load flow session",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "session store unavailable"))
		return
	}

	step := r.FormValue("paso")
	current := flow.Derive(state)
	leaving, ok := flow.StageForStep(step)
	switch {
	case !ok:
		h.logger.InfoContext(ctx, "ignoring unknown back step",
			"step", step,
			"request_id", requestID,
		)
	case leaving != current:
		h.logger.InfoContext(ctx, "ignoring back step for another stage",
			"step", step,
			"stage", current,
			"request_id", requestID,
		)
	default:
		state = flow.Back(state, leaving)
		if err := h.sessions.Save(ctx, sessionID, state); err != nil {
			h.logger.ErrorContext(ctx, "failed to save flow session",
				"error", err,
				"request_id", requestID,
			)
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "session store unavailable"))
			return
		}
	}
	http.Redirect(w, r, flow.Derive(state).Endpoint(), http.StatusSeeOther)
}

// advance stores the new state and redirects to the page of the stage it
// derives to.
func (h *Handler) advance(w http.ResponseWriter, r *http.Request, next flow.State) {
	ctx := r.Context()
	if err := h.sessions.Save(ctx, requestcontext.SessionID(ctx), next); err != nil {
		h.logger.ErrorContext(ctx, "failed to save flow session",
			"error", err,
			"request_id", request.GetRequestID(ctx),
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "session store unavailable"))
		return
	}
	http.Redirect(w, r, flow.Derive(next).Endpoint(), http.StatusSeeOther)
}

// fail answers a service error. Catalog or record ids that no longer resolve
// mean the session is stale: it is reset and sent back to the start.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	if !dErrors.HasCode(err, dErrors.CodeNotFound) {
		h.logger.ErrorContext(ctx, msg,
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.WarnContext(ctx, msg+"; restarting flow",
		"error", err,
		"request_id", requestID,
	)
	if err := h.sessions.Delete(ctx, requestcontext.SessionID(ctx)); err != nil {
		h.logger.ErrorContext(ctx, "failed to reset flow session",
			"error", err,
			"request_id", requestID,
		)
	}
	http.Redirect(w, r, flow.EndpointStart, http.StatusSeeOther)
}

func (h *Handler) writeResult(w http.ResponseWriter, r *http.Request, record *capturemodels.Record) {
	resp, err := newResultResponse(record)
	if err != nil {
		ctx := r.Context()
		h.logger.WarnContext(ctx, "stored receipt could not be decoded",
			"record_id", int64(record.ID),
			"error", err,
			"request_id", request.GetRequestID(ctx),
		)
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
