package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAccessorsDefaults(t *testing.T) {
	ctx := context.Background()

	assert.Empty(t, SessionID(ctx))
	assert.Empty(t, RequestID(ctx))
	assert.Empty(t, ClientIP(ctx))
	assert.Empty(t, UserAgent(ctx))
	assert.WithinDuration(t, time.Now(), Now(ctx), time.Second)
}

func TestAccessorsRoundTrip(t *testing.T) {
	fixed := time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC)
	ctx := WithTime(context.Background(), fixed)
	ctx = WithRequestID(ctx, "req-42")
	ctx = WithSessionID(ctx, "sess-1")
	ctx = WithClientMetadata(ctx, "10.0.0.8", "curl/8.0")

	assert.Equal(t, fixed, Now(ctx))
	assert.Equal(t, "req-42", RequestID(ctx))
	assert.Equal(t, "sess-1", SessionID(ctx))
	assert.Equal(t, "10.0.0.8", ClientIP(ctx))
	assert.Equal(t, "curl/8.0", UserAgent(ctx))
}
