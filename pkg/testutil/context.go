package testutil

import (
	"net/http"
	"time"

	"lineacaptura/pkg/requestcontext"
)

// WithFlowSession attaches a flow session id and a fixed request time, which
// is what the session and requesttime middleware do in production.
func WithFlowSession(req *http.Request, sessionID string, now time.Time) *http.Request {
	ctx := requestcontext.WithSessionID(req.Context(), sessionID)
	if !now.IsZero() {
		ctx = requestcontext.WithTime(ctx, now)
	}
	return req.WithContext(ctx)
}

// WithClient attaches client metadata as the metadata middleware would.
func WithClient(req *http.Request, ip, userAgent string) *http.Request {
	return req.WithContext(requestcontext.WithClientMetadata(req.Context(), ip, userAgent))
}
