package authority

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lineacaptura/internal/platform/config"
)

func TestDefaultPolicies(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.AuthorityConfig
		want int
	}{
		{name: "content and correlation only", cfg: config.AuthorityConfig{}, want: 2},
		{name: "static token", cfg: config.AuthorityConfig{BearerToken: "t"}, want: 3},
		{name: "jwt without secret falls back to nothing", cfg: config.AuthorityConfig{JWT: config.JWTConfig{Enabled: true}}, want: 2},
		{name: "everything", cfg: config.AuthorityConfig{BearerToken: "t", APIKey: "k", SubscriptionKey: "s"}, want: 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, DefaultPolicies(tt.cfg), tt.want)
		})
	}
}

func TestAuthorizationPolicy_PlainScheme(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "https://sat.example/api", nil)
	p := AuthorizationPolicy(config.AuthorityConfig{BearerToken: "abc", AuthScheme: "plain"})
	require.NotNil(t, p)
	require.NoError(t, p.Apply(req, Call{}))
	assert.Equal(t, "abc", req.Header.Get("Authorization"))
}

func TestSubscriptionKeyPolicy_AppendsToExistingQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "https://sat.example/api?version=2", nil)
	require.NoError(t, SubscriptionKeyPolicy("k&1", true).Apply(req, Call{}))
	assert.Equal(t, "k&1", req.URL.Query().Get(QuerySubscriptionKey))
	assert.Equal(t, "2", req.URL.Query().Get("version"))
}

func TestPolicyErrorBecomesConfigurationFailure(t *testing.T) {
	c, err := New(config.AuthorityConfig{Endpoint: "http://127.0.0.1:1"},
		WithPolicies(PolicyFunc(func(*http.Request, Call) error { return errors.New("signing failed") })),
		WithClock(func() time.Time { return time.Unix(0, 0) }),
	)
	require.NoError(t, err)

	res := c.Submit(t.Context(), struct{}{})
	require.NotNil(t, res.Error)
	assert.Equal(t, CategoryConfiguration, res.Error.Category)
	assert.NotEmpty(t, res.CorrelationID)
}
