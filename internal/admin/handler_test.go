package admin

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"lineacaptura/internal/admin/mocks"
	"lineacaptura/internal/catalog"
	catalogmodels "lineacaptura/internal/catalog/models"
	"lineacaptura/pkg/domain"
	audit "lineacaptura/pkg/platform/audit"
	"lineacaptura/pkg/testutil"
)

const token = "s3cret"

//go:generate mockgen -source=handler.go -destination=mocks/admin-mocks.go -package=mocks
type AdminHandlerSuite struct {
	suite.Suite
	cache     *mocks.MockCacheService
	events    *mocks.MockAuditReader
	publisher *mocks.MockPublisher
	router    chi.Router
}

func TestAdminHandlerSuite(t *testing.T) {
	suite.Run(t, new(AdminHandlerSuite))
}

func (s *AdminHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.cache = mocks.NewMockCacheService(ctrl)
	s.events = mocks.NewMockAuditReader(ctrl)
	s.publisher = mocks.NewMockPublisher(ctrl)

	h := New(s.cache, s.events, s.publisher, token, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.router = chi.NewRouter()
	h.Register(s.router)
}

func (s *AdminHandlerSuite) do(method, target, body, adminToken string) *httptest.ResponseRecorder {
	var payload any
	if body != "" {
		payload = body
	}
	req := testutil.NewJSONRequest(s.T(), method, target, payload)
	if adminToken != "" {
		req.Header.Set("X-Admin-Token", adminToken)
	}
	return testutil.DoRequest(s.router, req)
}

func (s *AdminHandlerSuite) TestRequiresToken() {
	s.Equal(http.StatusUnauthorized, s.do(http.MethodGet, "/admin/cache/stats", "", "").Code)
	s.Equal(http.StatusUnauthorized, s.do(http.MethodGet, "/admin/cache/stats", "", "wrong").Code)
}

func (s *AdminHandlerSuite) TestCacheStats() {
	s.cache.EXPECT().Stats(gomock.Any()).Return(&catalogmodels.Stats{
		Driver:            "memory",
		TTL:               time.Hour,
		TTLMinutes:        60,
		AuthoritiesCached: true,
		TotalAuthorities:  3,
	}, nil)

	w := s.do(http.MethodGet, "/admin/cache/stats", "", token)

	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"driver":"memory","ttl_minutes":60,"authorities_cached":true,"authority_service_lists_cached":0,"total_authorities":3}`, w.Body.String())
}

func (s *AdminHandlerSuite) TestClearCache() {
	s.Run("one authority", func() {
		id := domain.AuthorityID(4)
		s.cache.EXPECT().Invalidate(gomock.Any(), catalog.ScopeAuthorityServices, &id).Return(2, nil)
		s.publisher.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e audit.Event) error {
			s.Equal(string(audit.EventCatalogInvalidated), e.Action)
			s.Equal("4", e.Subject)
			s.Equal("2", e.Details["removed"])
			return nil
		})

		w := s.do(http.MethodPost, "/admin/cache/clear", `{"scope":"authority_services","authority_id":4}`, token)

		s.Equal(http.StatusOK, w.Code)
		s.JSONEq(`{"scope":"authority_services","authority_id":4,"removed":2}`, w.Body.String())
	})

	s.Run("unknown scope", func() {
		w := s.do(http.MethodPost, "/admin/cache/clear", `{"scope":"everything"}`, token)
		testutil.AssertStatusAndError(s.T(), w, http.StatusUnprocessableEntity, "validation_error")
		s.Contains(w.Body.String(), "scope must be one of")
	})

	s.Run("publisher failure does not fail the request", func() {
		s.cache.EXPECT().Invalidate(gomock.Any(), catalog.ScopeAll, nil).Return(7, nil)
		s.publisher.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(errors.New("sink down"))

		w := s.do(http.MethodPost, "/admin/cache/clear", `{"scope":"all"}`, token)

		s.Equal(http.StatusOK, w.Code)
	})
}

func (s *AdminHandlerSuite) TestRecentAudit() {
	s.Run("default limit", func() {
		s.events.EXPECT().ListRecent(gomock.Any(), defaultAuditLimit).Return(nil, nil)

		w := s.do(http.MethodGet, "/admin/audit/recent", "", token)

		s.Equal(http.StatusOK, w.Code)
		s.JSONEq(`{"events":[],"total":0}`, w.Body.String())
	})

	s.Run("explicit limit", func() {
		s.events.EXPECT().ListRecent(gomock.Any(), 2).Return([]audit.Event{
			audit.NewEvent(audit.EventCaptureLineGenerated),
			audit.NewEvent(audit.EventFlowStepRejected),
		}, nil)

		w := s.do(http.MethodGet, "/admin/audit/recent?limit=2", "", token)

		s.Equal(http.StatusOK, w.Code)
		body := testutil.UnmarshalResponse[AuditEventsResponse](s.T(), w)
		s.Equal(2, body.Total)
		s.Equal(audit.CategoryCompliance, body.Events[0].Category)
	})

	s.Run("invalid limit", func() {
		w := s.do(http.MethodGet, "/admin/audit/recent?limit=0", "", token)
		testutil.AssertStatusAndError(s.T(), w, http.StatusBadRequest, "bad_request")
	})
}
