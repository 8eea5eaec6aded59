// Package capture runs the capture-line generation use case: it prices the
// selection, persists the request, calls the authority and records the
// normalized answer.
package capture

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"lineacaptura/internal/authority"
	capturemetrics "lineacaptura/internal/capture/metrics"
	"lineacaptura/internal/capture/models"
	"lineacaptura/internal/capture/store"
	catalogmodels "lineacaptura/internal/catalog/models"
	"lineacaptura/internal/fees"
	"lineacaptura/internal/receipt"
	"lineacaptura/pkg/domain"
	dErrors "lineacaptura/pkg/domain-errors"
	audit "lineacaptura/pkg/platform/audit"
	"lineacaptura/pkg/platform/middleware/request"
	"lineacaptura/pkg/requestcontext"
)

// Catalog is the read side of the catalog cache.
type Catalog interface {
	GetAuthority(ctx context.Context, id domain.AuthorityID) (*catalogmodels.Authority, error)
	GetServices(ctx context.Context, ids []domain.ServiceID) ([]catalogmodels.Service, error)
}

// Store persists capture records.
type Store interface {
	NextID(ctx context.Context) (domain.RecordID, error)
	Create(ctx context.Context, r *models.Record) error
	AttachResponse(ctx context.Context, id domain.RecordID, resp models.Response) error
	FindByID(ctx context.Context, id domain.RecordID) (*models.Record, error)
}

// Submitter sends a document to the tax authority.
type Submitter interface {
	Submit(ctx context.Context, document any) *authority.Result
}

// Publisher receives audit events.
type Publisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Transactor scopes the final record update and its ledger entry.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Service struct {
	catalog   Catalog
	store     Store
	builder   *fees.Builder
	authority Submitter
	publisher Publisher
	ledger    audit.Store
	tx        Transactor
	metrics   *capturemetrics.Metrics
	logger    *slog.Logger
}

type Option func(*Service)

func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithLedger writes the generation's compliance event through ledger inside
// the same transaction as the record update.
func WithLedger(ledger audit.Store, tx Transactor) Option {
	return func(s *Service) {
		s.ledger = ledger
		s.tx = tx
	}
}

func WithMetrics(m *capturemetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func New(catalog Catalog, st Store, builder *fees.Builder, client Submitter, opts ...Option) *Service {
	s := &Service{
		catalog:   catalog,
		store:     st,
		builder:   builder,
		authority: client,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Request is the flow data a generation starts from.
type Request struct {
	AuthorityID domain.AuthorityID
	Selection   domain.Selection
	Payer       domain.Payer
}

// Outcome is what a generation produced. Record is always set; Receipt is
// only set when the authority answered with usable JSON.
type Outcome struct {
	Record  *models.Record
	Result  *authority.Result
	Receipt *receipt.Receipt
}

// Success reports whether the authority accepted the request and its answer
// carried a receipt.
func (o *Outcome) Success() bool {
	return o.Record.Response != nil && o.Record.Response.Success
}

// Summary is the priced selection shown before generating.
type Summary struct {
	Authority   catalogmodels.Authority
	Calculation fees.Calculation
}

// Preview prices a selection with the same code path Generate uses.
func (s *Service) Preview(ctx context.Context, authorityID domain.AuthorityID, sel domain.Selection) (*Summary, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}
	a, items, err := s.load(ctx, authorityID, sel)
	if err != nil {
		return nil, err
	}
	calc, err := fees.Calculate(items)
	if err != nil {
		return nil, err
	}
	return &Summary{Authority: *a, Calculation: calc}, nil
}

// Generate builds and submits one capture-line request. Authority and
// normalization failures are not errors: the record is completed with
// success=false and returned. Errors mean nothing was sent.
func (s *Service) Generate(ctx context.Context, req Request) (*Outcome, error) {
	start := time.Now()
	if err := req.Selection.Validate(); err != nil {
		s.metrics.ObserveGeneration("rejected", time.Since(start), 0)
		return nil, err
	}
	if err := req.Payer.Validate(); err != nil {
		s.metrics.ObserveGeneration("rejected", time.Since(start), 0)
		return nil, err
	}

	a, items, err := s.load(ctx, req.AuthorityID, req.Selection)
	if err != nil {
		s.metrics.ObserveGeneration("rejected", time.Since(start), 0)
		return nil, err
	}

	id, err := s.store.NextID(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "capture store unavailable")
	}
	now := requestcontext.Now(ctx)
	built, err := s.builder.Build(fees.Input{
		RecordID:    id,
		Authority:   *a,
		Items:       items,
		Payer:       req.Payer,
		GeneratedAt: now,
	})
	if err != nil {
		return nil, err
	}

	record, err := newRecord(id, req, built, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode capture record")
	}
	if err := s.store.Create(ctx, record); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to persist capture record")
	}

	result := s.authority.Submit(ctx, built.Document)
	out := &Outcome{Record: record, Result: result}
	if result.Success {
		out.Receipt = receipt.Normalize(result.Body)
	}
	resp := responseFrom(result, out.Receipt, requestcontext.Now(ctx))

	if err := s.finalize(ctx, record, resp); err != nil {
		return nil, err
	}
	record.Response = &resp
	record.Status = models.StatusFailed
	if resp.Success {
		record.Status = models.StatusCompleted
	}
	record.UpdatedAt = resp.RespondedAt

	outcome := result.Outcome()
	if result.Success && !resp.Success {
		outcome = "unprocessable"
	}
	s.metrics.ObserveGeneration(outcome, time.Since(start), built.Calculation.Totals.GrandTotal.InexactFloat64())
	s.emit(ctx, s.generatedEvent(ctx, record, result))

	s.logger.InfoContext(ctx, "capture line generated",
		"record_id", int64(record.ID),
		"capture_request_id", record.RequestID,
		"success", resp.Success,
		"outcome", outcome,
		"correlation_id", result.CorrelationID,
		"status_code", result.StatusCode,
		"request_id", request.GetRequestID(ctx),
	)
	return out, nil
}

// Get returns a stored record.
func (s *Service) Get(ctx context.Context, id domain.RecordID) (*models.Record, error) {
	r, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "capture record not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "capture store unavailable")
	}
	return r, nil
}

// load fetches the authority and the selected services concurrently and
// pairs services with their quantities in selection order.
func (s *Service) load(ctx context.Context, authorityID domain.AuthorityID, sel domain.Selection) (*catalogmodels.Authority, []fees.Item, error) {
	var (
		a        *catalogmodels.Authority
		services []catalogmodels.Service
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		a, err = s.catalog.GetAuthority(gctx, authorityID)
		return err
	})
	g.Go(func() error {
		var err error
		services, err = s.catalog.GetServices(gctx, sel.IDs())
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	items := make([]fees.Item, len(sel))
	for i, selected := range sel {
		items[i] = fees.Item{Service: services[i], Quantity: selected.Quantity}
	}
	return a, items, nil
}

func (s *Service) finalize(ctx context.Context, record *models.Record, resp models.Response) error {
	if s.tx == nil || s.ledger == nil {
		if err := s.store.AttachResponse(ctx, record.ID, resp); err != nil {
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to record authority response")
		}
		return nil
	}
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.AttachResponse(ctx, record.ID, resp); err != nil {
			return err
		}
		return s.ledger.Append(ctx, ledgerEvent(ctx, record, resp))
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to record authority response")
	}
	return nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"error", err,
			"request_id", request.GetRequestID(ctx),
		)
	}
}

func (s *Service) generatedEvent(ctx context.Context, r *models.Record, result *authority.Result) audit.Event {
	action := audit.EventCaptureLineGenerated
	if !result.Success {
		action = audit.EventAuthorityCallFailed
	}
	e := baseEvent(ctx, action, r)
	e.Details["correlation_id"] = result.CorrelationID
	e.Details["status_code"] = strconv.Itoa(result.StatusCode)
	if result.Error != nil {
		e.Reason = string(result.Error.Category)
	}
	return e
}

func ledgerEvent(ctx context.Context, r *models.Record, resp models.Response) audit.Event {
	action := audit.EventCaptureLineGenerated
	if !resp.Success {
		action = audit.EventAuthorityCallFailed
	}
	e := baseEvent(ctx, action, r)
	e.Timestamp = resp.RespondedAt
	e.Decision = decision(resp.Success)
	if resp.CaptureLine != "" {
		e.Details["capture_line"] = resp.CaptureLine
	}
	return e
}

func baseEvent(ctx context.Context, action audit.AuditEvent, r *models.Record) audit.Event {
	e := audit.NewEvent(action)
	e.SessionID = requestcontext.SessionID(ctx)
	e.RequestID = request.GetRequestID(ctx)
	e.ClientIP = requestcontext.ClientIP(ctx)
	e.Subject = r.RequestID
	e.Decision = decision(r.Response != nil && r.Response.Success)
	e.Details = map[string]string{
		"record_id":   r.ID.String(),
		"grand_total": r.GrandTotal.String(),
	}
	return e
}

func decision(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

func newRecord(id domain.RecordID, req Request, built *fees.Result, now time.Time) (*models.Record, error) {
	doc, err := json.Marshal(built.Document)
	if err != nil {
		return nil, err
	}
	snapshot, err := json.Marshal(built.Snapshot)
	if err != nil {
		return nil, err
	}
	totals := built.Calculation.Totals
	return &models.Record{
		ID:          id,
		Payer:       req.Payer,
		AuthorityID: req.AuthorityID,
		Selection:   req.Selection,
		Snapshot:    snapshot,
		RequestID:   built.RequestID,
		FeeSubtotal: totals.FeeSubtotal,
		TaxSubtotal: totals.TaxSubtotal,
		GrandTotal:  totals.GrandTotal,
		Document:    doc,
		Status:      models.StatusPending,
		RequestedOn: now,
		ValidUntil:  built.ValidUntil,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// responseFrom folds the transport result and the normalized receipt into
// the persisted response.
func responseFrom(result *authority.Result, rec *receipt.Receipt, at time.Time) models.Response {
	resp := models.Response{RawBody: result.RawBody, RespondedAt: at}
	if !result.Success {
		resp.Errors = clientError(result)
		return resp
	}
	if rec == nil {
		return resp
	}
	f := rec.Fields
	resp.Success = rec.Success
	resp.RawBody = rec.RawBody
	resp.DocumentID = f.DocumentID
	resp.PaymentType = f.PaymentType
	resp.EncodedDocument = f.EncodedDocument
	resp.ResultCode = f.Result
	resp.CaptureLine = f.CaptureLine
	resp.Amount = f.Amount
	resp.ValidUntil = f.ValidUntil
	resp.Errors = mergeErrors(f.Errors, rec.Errors)
	return resp
}

// mergeErrors keeps the authority's own error list and the reasons the
// receipt was rejected locally. With both present the authority list is
// nested under "authority" next to the local keys.
func mergeErrors(fromAuthority json.RawMessage, local map[string]string) json.RawMessage {
	if len(local) == 0 {
		return fromAuthority
	}
	payload := make(map[string]any, len(local)+1)
	for k, v := range local {
		payload[k] = v
	}
	if len(fromAuthority) > 0 {
		payload["authority"] = fromAuthority
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fromAuthority
	}
	return raw
}

func clientError(result *authority.Result) json.RawMessage {
	payload := map[string]any{
		"status_code":    result.StatusCode,
		"correlation_id": result.CorrelationID,
	}
	if result.Error != nil {
		payload["category"] = result.Error.Category
		payload["message"] = result.Error.Message
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return raw
}
