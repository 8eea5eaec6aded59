package capture

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"lineacaptura/internal/authority"
	capturemetrics "lineacaptura/internal/capture/metrics"
	"lineacaptura/internal/capture/models"
	"lineacaptura/internal/capture/store"
	"lineacaptura/internal/catalog"
	"lineacaptura/internal/catalog/cache"
	catalogmodels "lineacaptura/internal/catalog/models"
	catalogstore "lineacaptura/internal/catalog/store"
	"lineacaptura/internal/fees"
	"lineacaptura/pkg/domain"
	dErrors "lineacaptura/pkg/domain-errors"
	audit "lineacaptura/pkg/platform/audit"
	"lineacaptura/pkg/platform/audit/publisher"
	"lineacaptura/pkg/platform/audit/store/memory"
	"lineacaptura/pkg/platform/tx"
	"lineacaptura/pkg/requestcontext"
)

// stubAuthority answers every submission with a canned result.
type stubAuthority struct {
	result    *authority.Result
	documents []any
}

func (s *stubAuthority) Submit(_ context.Context, document any) *authority.Result {
	s.documents = append(s.documents, document)
	r := *s.result
	return &r
}

type ServiceSuite struct {
	suite.Suite
	ctx       context.Context
	authority *stubAuthority
	records   *store.InMemoryStore
	events    *memory.InMemoryStore
	ledger    *memory.InMemoryStore
	metrics   *capturemetrics.Metrics
	service   *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

var generatedAt = time.Date(2026, 1, 31, 16, 5, 0, 0, time.UTC)

func (s *ServiceSuite) SetupTest() {
	catalogStore := catalogstore.NewInMemory()
	catalogStore.Add(catalogstore.Seed{
		Authorities: []catalogmodels.Authority{{ID: 1, Name: "Agencia", ShortCode: "ARTF", AdminUnit: "100"}},
		Services: []catalogmodels.Service{
			{ID: 10, Homoclave: "ARTF-01-001", UnitFee: decimal.RequireFromString("500.00"), Taxed: true, AccountingCode: "400123", GroupingID: "17", GroupingType: "P"},
			{ID: 11, Homoclave: "ARTF-01-002", UnitFee: decimal.RequireFromString("123.45"), AccountingCode: "400124", GroupingID: "17", GroupingType: "P"},
		},
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.ctx = requestcontext.WithTime(requestcontext.WithSessionID(context.Background(), "sess-1"), generatedAt)
	s.authority = &stubAuthority{}
	s.records = store.NewInMemory()
	s.events = memory.NewInMemoryStore()
	s.ledger = memory.NewInMemoryStore()
	s.metrics = capturemetrics.New(prometheus.NewRegistry())
	s.service = New(
		catalog.New(catalogStore, cache.NewInMemory(), time.Hour, catalog.WithLogger(logger)),
		s.records,
		fees.NewBuilder(time.UTC),
		s.authority,
		WithPublisher(publisher.NewPublisher(s.events)),
		WithLedger(s.ledger, tx.NoopRunner{}),
		WithMetrics(s.metrics),
		WithLogger(logger),
	)
}

func (s *ServiceSuite) request() Request {
	payer, err := domain.NewIndividualPayer(domain.Individual{
		NationalID:      "GODE561231HDFRRN09",
		TaxID:           "GODE561231GR8",
		FirstName:       "Emilio",
		PaternalSurname: "Gómez",
	})
	s.Require().NoError(err)
	return Request{
		AuthorityID: 1,
		Selection:   domain.Selection{{ServiceID: 10, Quantity: 1}, {ServiceID: 11, Quantity: 1}},
		Payer:       payer,
	}
}

func acuse(html string) json.RawMessage {
	encoded := base64.StdEncoding.EncodeToString([]byte(html))
	return json.RawMessage(`{"Acuse":{"HTML":"` + encoded + `","LineaCaptura":"0326ABCD1234","Importe":703,"FechaVigencia":"03/03/2026","IdDocumento":"DOC-1","Resultado":"OK"}}`)
}

func (s *ServiceSuite) TestGenerateSuccess() {
	body := acuse("<p>Recibo</p>")
	s.authority.result = &authority.Result{Success: true, StatusCode: 200, CorrelationID: "corr-1", Body: body, RawBody: string(body)}

	out, err := s.service.Generate(s.ctx, s.request())
	s.Require().NoError(err)
	s.True(out.Success())
	s.Require().NotNil(out.Receipt)
	s.Equal("<p>Recibo</p>", out.Receipt.DecodedDocument)

	s.Run("document submitted", func() {
		s.Require().Len(s.authority.documents, 1)
		doc, ok := s.authority.documents[0].(fees.Document)
		s.Require().True(ok)
		s.Equal("ARTF100260000000001", doc.GeneralData.RequestID)
		s.Equal(int64(703), doc.GeneralData.CaptureLine.Amount)
	})

	s.Run("record completed once", func() {
		r, err := s.service.Get(s.ctx, out.Record.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusCompleted, r.Status)
		s.Equal("ARTF100260000000001", r.RequestID)
		s.True(decimal.NewFromInt(703).Equal(r.GrandTotal))
		s.Equal("0326ABCD1234", r.Response.CaptureLine)
		s.Equal("DOC-1", r.Response.DocumentID)
		s.Equal("703", r.Response.Amount.String())
		s.Equal(generatedAt, r.Response.RespondedAt)
		s.Equal(generatedAt.AddDate(0, 1, 0), r.ValidUntil)

		err = s.records.AttachResponse(s.ctx, r.ID, models.Response{})
		s.ErrorIs(err, store.ErrInvalidState)
	})

	s.Run("audit trail", func() {
		events, err := s.events.ListBySession(s.ctx, "sess-1")
		s.Require().NoError(err)
		s.Require().Len(events, 1)
		s.Equal(string(audit.EventCaptureLineGenerated), events[0].Action)
		s.Equal("success", events[0].Decision)
		s.Equal("corr-1", events[0].Details["correlation_id"])

		ledger, err := s.ledger.ListBySession(s.ctx, "sess-1")
		s.Require().NoError(err)
		s.Require().Len(ledger, 1)
		s.Equal("0326ABCD1234", ledger[0].Details["capture_line"])
	})

	s.Equal(1.0, testutil.ToFloat64(s.metrics.Generations.WithLabelValues("success")))
}

func (s *ServiceSuite) TestGenerateAuthorityFailure() {
	s.authority.result = &authority.Result{
		StatusCode:    502,
		CorrelationID: "corr-2",
		RawBody:       "<html>Bad Gateway</html>",
		Error:         &authority.Error{Category: authority.CategoryHTTPStatus, Message: "authority responded with HTTP 502"},
	}

	out, err := s.service.Generate(s.ctx, s.request())
	s.Require().NoError(err)
	s.False(out.Success())
	s.Nil(out.Receipt)

	r, err := s.service.Get(s.ctx, out.Record.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusFailed, r.Status)
	s.Equal("<html>Bad Gateway</html>", r.Response.RawBody)
	s.JSONEq(`{"category":"http_status","message":"authority responded with HTTP 502","status_code":502,"correlation_id":"corr-2"}`,
		string(r.Response.Errors))

	events, err := s.events.ListBySession(s.ctx, "sess-1")
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(string(audit.EventAuthorityCallFailed), events[0].Action)
	s.Equal("http_status", events[0].Reason)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Generations.WithLabelValues("http_status")))
}

func (s *ServiceSuite) TestGenerateResponseWithoutDocument() {
	body := json.RawMessage(`{"lineaCaptura":"LC-9"}`)
	s.authority.result = &authority.Result{Success: true, StatusCode: 200, Body: body, RawBody: string(body)}

	out, err := s.service.Generate(s.ctx, s.request())
	s.Require().NoError(err)
	s.False(out.Success())
	s.Require().NotNil(out.Receipt)
	s.False(out.Receipt.Success)

	r, err := s.service.Get(s.ctx, out.Record.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusFailed, r.Status)
	s.Equal("LC-9", r.Response.CaptureLine)
	s.Contains(string(r.Response.Errors), "missing_document")
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Generations.WithLabelValues("unprocessable")))
}

func (s *ServiceSuite) TestGenerateKeepsAuthorityAndLocalErrors() {
	body := json.RawMessage(`{"Acuse":{"LineaCaptura":"0123","Errores":[{"codigo":"E1"}]}}`)
	s.authority.result = &authority.Result{Success: true, StatusCode: 200, Body: body, RawBody: string(body)}

	out, err := s.service.Generate(s.ctx, s.request())
	s.Require().NoError(err)
	s.False(out.Success())

	r, err := s.service.Get(s.ctx, out.Record.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusFailed, r.Status)
	s.JSONEq(`{"authority":[{"codigo":"E1"}],"missing_document":"the response has no encoded document"}`,
		string(r.Response.Errors))
}

func TestMergeErrors(t *testing.T) {
	authorityErrs := json.RawMessage(`[{"codigo":"E1"}]`)

	assert.JSONEq(t, `[{"codigo":"E1"}]`, string(mergeErrors(authorityErrs, nil)))
	assert.JSONEq(t, `{"decode":"bad base64"}`, string(mergeErrors(nil, map[string]string{"decode": "bad base64"})))
	assert.JSONEq(t, `{"authority":[{"codigo":"E1"}],"decode":"bad base64"}`,
		string(mergeErrors(authorityErrs, map[string]string{"decode": "bad base64"})))
	assert.Nil(t, mergeErrors(nil, nil))
}

func (s *ServiceSuite) TestGenerateRejectsBeforeSending() {
	s.Run("empty selection", func() {
		req := s.request()
		req.Selection = nil
		_, err := s.service.Generate(s.ctx, req)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown service", func() {
		req := s.request()
		req.Selection = domain.Selection{{ServiceID: 99, Quantity: 1}}
		_, err := s.service.Generate(s.ctx, req)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("unknown authority", func() {
		req := s.request()
		req.AuthorityID = 7
		_, err := s.service.Generate(s.ctx, req)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("missing payer", func() {
		req := s.request()
		req.Payer = domain.Payer{}
		_, err := s.service.Generate(s.ctx, req)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Empty(s.authority.documents)
	id, err := s.records.NextID(s.ctx)
	s.Require().NoError(err)
	s.Equal(domain.RecordID(1), id, "no record id should have been reserved")
	s.Equal(4.0, testutil.ToFloat64(s.metrics.Generations.WithLabelValues("rejected")))
}

func (s *ServiceSuite) TestPreview() {
	sum, err := s.service.Preview(s.ctx, 1, s.request().Selection)
	s.Require().NoError(err)
	s.Equal("ARTF", sum.Authority.ShortCode)
	s.Require().Len(sum.Calculation.Lines, 2)
	s.True(decimal.NewFromInt(703).Equal(sum.Calculation.Totals.GrandTotal))
	s.Empty(s.authority.documents)
}

func (s *ServiceSuite) TestGetMissing() {
	_, err := s.service.Get(s.ctx, 404)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
