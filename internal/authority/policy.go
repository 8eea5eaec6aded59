package authority

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"lineacaptura/internal/platform/config"
)

// Header names sent to the payment authority.
const (
	HeaderCorrelationID   = "x-correlation-id"
	HeaderAPIKey          = "X-API-Key"
	HeaderSubscriptionKey = "Ocp-Apim-Subscription-Key"
	HeaderAPIMTrace       = "Ocp-Apim-Trace"
	QuerySubscriptionKey  = "subscription-key"
)

// Authorization schemes.
const (
	SchemeBearer = "BEARER"
	SchemePlain  = "PLAIN"
)

// Call carries per-request values shared by header policies.
type Call struct {
	CorrelationID string
	TokenID       string
	Now           time.Time
}

// HeaderPolicy contributes headers or query parameters to an outbound request.
type HeaderPolicy interface {
	Apply(req *http.Request, call Call) error
}

// PolicyFunc adapts a function to HeaderPolicy.
type PolicyFunc func(req *http.Request, call Call) error

func (f PolicyFunc) Apply(req *http.Request, call Call) error { return f(req, call) }

// DefaultPolicies returns the header policies for cfg in application order.
func DefaultPolicies(cfg config.AuthorityConfig) []HeaderPolicy {
	policies := []HeaderPolicy{
		ContentPolicy(cfg.UserAgent, cfg.AcceptLanguage, cfg.APIMTrace),
		CorrelationPolicy(),
	}
	if auth := AuthorizationPolicy(cfg); auth != nil {
		policies = append(policies, auth)
	}
	if cfg.APIKey != "" {
		policies = append(policies, APIKeyPolicy(cfg.APIKey))
	}
	if cfg.SubscriptionKey != "" {
		policies = append(policies, SubscriptionKeyPolicy(cfg.SubscriptionKey, cfg.SubscriptionQuery))
	}
	return policies
}

// ContentPolicy sets the JSON content headers and optional client hints.
func ContentPolicy(userAgent, acceptLanguage string, apimTrace bool) HeaderPolicy {
	return PolicyFunc(func(req *http.Request, _ Call) error {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		if userAgent != "" {
			req.Header.Set("User-Agent", userAgent)
		}
		if acceptLanguage != "" {
			req.Header.Set("Accept-Language", acceptLanguage)
		}
		if apimTrace {
			req.Header.Set(HeaderAPIMTrace, "true")
		}
		return nil
	})
}

func CorrelationPolicy() HeaderPolicy {
	return PolicyFunc(func(req *http.Request, call Call) error {
		req.Header.Set(HeaderCorrelationID, call.CorrelationID)
		return nil
	})
}

// AuthorizationPolicy prefers a minted JWT, then the static token. It returns
// nil when neither is configured.
func AuthorizationPolicy(cfg config.AuthorityConfig) HeaderPolicy {
	scheme := strings.ToUpper(cfg.AuthScheme)
	format := func(token string) string {
		if scheme == SchemePlain {
			return token
		}
		return "Bearer " + token
	}

	if cfg.JWT.Enabled && cfg.JWT.Secret != "" {
		signer := NewTokenSigner(cfg.JWT)
		return PolicyFunc(func(req *http.Request, call Call) error {
			token, err := signer.Sign(call.Now, call.TokenID)
			if err != nil {
				return err
			}
			req.Header.Set("Authorization", format(token))
			return nil
		})
	}
	if cfg.BearerToken != "" {
		value := format(cfg.BearerToken)
		return PolicyFunc(func(req *http.Request, _ Call) error {
			req.Header.Set("Authorization", value)
			return nil
		})
	}
	return nil
}

func APIKeyPolicy(key string) HeaderPolicy {
	return PolicyFunc(func(req *http.Request, _ Call) error {
		req.Header.Set(HeaderAPIKey, key)
		return nil
	})
}

// SubscriptionKeyPolicy sets the gateway subscription header and, when
// withQuery is set, the subscription-key query parameter unless the endpoint
// already carries one.
func SubscriptionKeyPolicy(key string, withQuery bool) HeaderPolicy {
	return PolicyFunc(func(req *http.Request, _ Call) error {
		req.Header.Set(HeaderSubscriptionKey, key)
		if !withQuery || hasQueryKey(req.URL, QuerySubscriptionKey) {
			return nil
		}
		q := req.URL.Query()
		q.Set(QuerySubscriptionKey, key)
		req.URL.RawQuery = q.Encode()
		return nil
	})
}

func hasQueryKey(u *url.URL, key string) bool {
	for k := range u.Query() {
		if strings.EqualFold(k, key) {
			return true
		}
	}
	return false
}
