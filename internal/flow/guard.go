package flow

import (
	"context"
	"log/slog"
	"net/http"

	dErrors "lineacaptura/pkg/domain-errors"
	"lineacaptura/pkg/platform/httputil"
	"lineacaptura/pkg/platform/middleware/request"
	"lineacaptura/pkg/requestcontext"
)

// SessionStore persists flow state per session id.
type SessionStore interface {
	Load(ctx context.Context, sessionID string) (State, error)
	Save(ctx context.Context, sessionID string, state State) error
	Delete(ctx context.Context, sessionID string) error
}

// RejectFunc observes a request that reached a stage out of order.
type RejectFunc func(ctx context.Context, requested, derived Stage)

type stateKey struct{}

// WithState stores the loaded flow state in ctx.
func WithState(ctx context.Context, s State) context.Context {
	return context.WithValue(ctx, stateKey{}, s)
}

// StateFrom returns the state loaded by Guard, or an empty state.
func StateFrom(ctx context.Context) State {
	if s, ok := ctx.Value(stateKey{}).(State); ok {
		return s
	}
	return State{}
}

// Guard only lets a request through when the session's derived stage equals
// required. Anything else is answered with a 303 to the derived stage's
// endpoint and never reaches the handler. A state missing the data its stage
// builds on is discarded and the request sent to the start.
func Guard(sessions SessionStore, required Stage, logger *slog.Logger, onReject RejectFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			state, err := sessions.Load(ctx, requestcontext.SessionID(ctx))
			if err != nil {
				logger.ErrorContext(ctx, "failed to load flow session",
					"error", err,
					"request_id", request.GetRequestID(ctx),
				)
				httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "session store unavailable"))
				return
			}

			if !Complete(state) {
				logger.WarnContext(ctx, "incomplete flow state, restarting",
					"requested", required,
					"derived", Derive(state),
					"has_authority", state.AuthorityID != nil,
					"has_services", len(state.Services) > 0,
					"request_id", request.GetRequestID(ctx),
				)
				if err := sessions.Delete(ctx, requestcontext.SessionID(ctx)); err != nil {
					logger.ErrorContext(ctx, "failed to reset flow session",
						"error", err,
						"request_id", request.GetRequestID(ctx),
					)
					httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "session store unavailable"))
					return
				}
				if onReject != nil {
					onReject(ctx, required, StageStart)
				}
				http.Redirect(w, r, EndpointStart, http.StatusSeeOther)
				return
			}

			derived := Derive(state)
			if derived != required {
				logger.WarnContext(ctx, "out of order flow navigation",
					"requested", required,
					"derived", derived,
					"path", r.URL.Path,
					"has_authority", state.AuthorityID != nil,
					"has_services", len(state.Services) > 0,
					"has_payer", state.Payer != nil,
					"finalized", state.Finalized != nil,
					"client_ip", requestcontext.ClientIP(ctx),
					"request_id", request.GetRequestID(ctx),
				)
				if onReject != nil {
					onReject(ctx, required, derived)
				}
				http.Redirect(w, r, derived.Endpoint(), http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithState(ctx, state)))
		})
	}
}
