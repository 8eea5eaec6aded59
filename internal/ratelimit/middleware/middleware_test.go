package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lineacaptura/internal/platform/metrics"
	"lineacaptura/internal/ratelimit/models"
	"lineacaptura/internal/ratelimit/store/bucket"
	"lineacaptura/pkg/testutil"
)

type failingStore struct{}

func (failingStore) Allow(context.Context, string, int, time.Duration) (*models.Result, error) {
	return nil, errors.New("redis: connection refused")
}

func newRequest(ip string) *http.Request {
	return testutil.WithClient(httptest.NewRequest(http.MethodPost, "/generar-linea", strings.NewReader("{}")), ip, "test")
}

func TestByIP(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusCreated) })
	limit := Limit{Name: "generate", Requests: 2, Window: time.Minute}

	t.Run("allows until limit then rejects", func(t *testing.T) {
		m := metrics.New(prometheus.NewRegistry())
		h := New(bucket.NewInMemoryBucketStore(), logger, m).ByIP(limit)(ok)

		for want := 1; want >= 0; want-- {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, newRequest("10.0.0.1"))
			require.Equal(t, http.StatusCreated, w.Code)
			assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
			assert.Equal(t, strconv.Itoa(want), w.Header().Get("X-RateLimit-Remaining"))
		}

		w := httptest.NewRecorder()
		h.ServeHTTP(w, newRequest("10.0.0.1"))
		require.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.NotEmpty(t, w.Header().Get("Retry-After"))

		var body models.ExceededResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "rate_limit_exceeded", body.Error)
		assert.Positive(t, body.RetryAfter)
		assert.InDelta(t, 1, promtestutil.ToFloat64(m.RateLimited.WithLabelValues("generate")), 0)

		w = httptest.NewRecorder()
		h.ServeHTTP(w, newRequest("10.0.0.2"))
		assert.Equal(t, http.StatusCreated, w.Code, "other clients keep their own window")
	})

	t.Run("store failure lets request through", func(t *testing.T) {
		h := New(failingStore{}, logger, nil).ByIP(limit)(ok)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, newRequest("10.0.0.1"))
		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	})

	t.Run("disabled limit is a no-op", func(t *testing.T) {
		h := New(bucket.NewInMemoryBucketStore(), logger, nil).ByIP(Limit{Name: "generate"})(ok)
		for range 5 {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, newRequest("10.0.0.1"))
			assert.Equal(t, http.StatusCreated, w.Code)
		}
	})
}
