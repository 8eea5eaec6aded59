// Package authority submits capture-line requests to the payment authority
// and classifies every outcome into a Result.
package authority

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httputil"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"lineacaptura/internal/authority/metrics"
	"lineacaptura/internal/platform/config"
	"lineacaptura/pkg/platform/middleware/request"
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 8 << 20

// Client posts JSON documents to the configured endpoint. It never retries.
type Client struct {
	endpoint      string
	correlationID string
	verbose       bool
	httpClient    *http.Client
	policies      []HeaderPolicy
	logger        *slog.Logger
	metrics       *metrics.Metrics
	tracer        trace.Tracer
	now           func() time.Time
	newID         func() string
}

type Option func(*Client)

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithClock overrides the time source used for token issuance.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithIDGenerator overrides how correlation and token ids are generated.
func WithIDGenerator(gen func() string) Option {
	return func(c *Client) { c.newID = gen }
}

// WithPolicies replaces the header policies derived from configuration.
func WithPolicies(p ...HeaderPolicy) Option {
	return func(c *Client) { c.policies = p }
}

// New builds a client from cfg. Certificate and CA files are loaded here so
// misconfiguration surfaces at start-up.
func New(cfg config.AuthorityConfig, opts ...Option) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("authority endpoint is required")
	}
	tlsCfg, err := newTLSConfig(cfg)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultAuthorityTimeout
	}
	connectTimeout := cfg.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = config.DefaultConnectTimeout
	}

	dialer := &net.Dialer{Timeout: connectTimeout, KeepAlive: 30 * time.Second}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		TLSClientConfig:     tlsCfg,
		TLSHandshakeTimeout: connectTimeout,
		ForceAttemptHTTP2:   cfg.HTTP2,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
	}
	if !cfg.HTTP2 {
		transport.TLSNextProto = map[string]func(string, *tls.Conn) http.RoundTripper{}
	}

	c := &Client{
		endpoint:      cfg.Endpoint,
		correlationID: cfg.CorrelationID,
		verbose:       cfg.Verbose,
		httpClient:    &http.Client{Timeout: timeout, Transport: transport},
		policies:      DefaultPolicies(cfg),
		logger:        slog.Default(),
		tracer:        otel.Tracer("lineacaptura/authority"),
		now:           time.Now,
		newID:         uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Submit posts document and returns the classified outcome.
func (c *Client) Submit(ctx context.Context, document any) *Result {
	ctx, span := c.tracer.Start(ctx, "authority.Submit")
	defer span.End()

	start := time.Now()
	call := Call{
		CorrelationID: c.correlationID,
		TokenID:       c.correlationID,
		Now:           c.now(),
	}
	if call.CorrelationID == "" {
		call.CorrelationID = c.newID()
		call.TokenID = c.newID()
	}

	res := c.submit(ctx, document, call)
	res.CorrelationID = call.CorrelationID
	res.Duration = time.Since(start)

	c.metrics.ObserveCall(res.Outcome(), res.Duration)
	span.SetAttributes(
		attribute.String("authority.correlation_id", res.CorrelationID),
		attribute.Int("http.status_code", res.StatusCode),
		attribute.String("authority.outcome", res.Outcome()),
	)
	attrs := []any{
		"request_id", request.GetRequestID(ctx),
		"correlation_id", res.CorrelationID,
		"status", res.StatusCode,
		"duration_ms", res.Duration.Milliseconds(),
	}
	if res.Success {
		c.logger.InfoContext(ctx, "authority call succeeded", attrs...)
	} else {
		span.SetStatus(codes.Error, res.Error.Message)
		c.logger.WarnContext(ctx, "authority call failed", append(attrs, "category", res.Error.Category, "error", res.Error.Error())...)
	}
	return res
}

func (c *Client) submit(ctx context.Context, document any, call Call) *Result {
	payload, err := json.Marshal(document)
	if err != nil {
		return failure(CategoryBadData, "encode request document", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return failure(CategoryConfiguration, "build request", err)
	}
	for _, p := range c.policies {
		if err := p.Apply(req, call); err != nil {
			return failure(CategoryConfiguration, "apply request headers", err)
		}
	}
	c.dumpRequest(ctx, req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return failure(CategoryTimeout, "authority did not respond in time", err)
		}
		return failure(CategoryConnection, "could not reach the authority", err)
	}
	defer resp.Body.Close()
	c.dumpResponse(ctx, resp)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		res := failure(CategoryConnection, "read response body", err)
		res.StatusCode = resp.StatusCode
		return res
	}

	res := &Result{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		RawBody:     string(raw),
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		res.Error = &Error{Category: CategoryHTTPStatus, Message: fmt.Sprintf("authority responded with HTTP %d", resp.StatusCode)}
		return res
	}
	if !json.Valid(raw) {
		res.Error = &Error{Category: CategoryBadData, Message: "authority response is not valid JSON"}
		return res
	}
	res.Success = true
	res.Body = json.RawMessage(raw)
	return res
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

var redactedHeaders = []string{"Authorization", HeaderAPIKey, HeaderSubscriptionKey}

func (c *Client) dumpRequest(ctx context.Context, req *http.Request) {
	if !c.verbose {
		return
	}
	clone := req.Clone(ctx)
	for _, h := range redactedHeaders {
		if clone.Header.Get(h) != "" {
			clone.Header.Set(h, "[REDACTED]")
		}
	}
	q := clone.URL.Query()
	if q.Has(QuerySubscriptionKey) {
		q.Set(QuerySubscriptionKey, "[REDACTED]")
		clone.URL.RawQuery = q.Encode()
	}
	dump, err := httputil.DumpRequestOut(clone, false)
	if err != nil {
		return
	}
	c.logger.DebugContext(ctx, "authority request", "dump", string(dump))
}

func (c *Client) dumpResponse(ctx context.Context, resp *http.Response) {
	if !c.verbose {
		return
	}
	dump, err := httputil.DumpResponse(resp, false)
	if err != nil {
		return
	}
	c.logger.DebugContext(ctx, "authority response", "dump", string(dump))
}
