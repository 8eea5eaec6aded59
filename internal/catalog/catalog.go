// Package catalog serves authority and service reference data through a TTL
// read-through cache. Catalog rows are immutable for the lifetime of a cache
// entry, so every session shares the same cached values.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"lineacaptura/internal/catalog/cache"
	"lineacaptura/internal/catalog/metrics"
	"lineacaptura/internal/catalog/models"
	"lineacaptura/internal/catalog/store"
	"lineacaptura/pkg/domain"
	dErrors "lineacaptura/pkg/domain-errors"
)

// Cache key layout. Everything lives under keyPrefix so Invalidate(ScopeAll)
// can drop it in one sweep.
const (
	keyPrefix            = "catalog:"
	keyAuthorities       = keyPrefix + "authorities"
	keyAuthority         = keyPrefix + "authority:"
	keyAuthorityServices = keyPrefix + "authority_services:"
	keyServices          = keyPrefix + "services:"
)

// Store is the backing source of catalog rows.
type Store interface {
	FindAuthority(ctx context.Context, id domain.AuthorityID) (*models.Authority, error)
	ListAuthorities(ctx context.Context) ([]models.Authority, error)
	FindServices(ctx context.Context, ids []domain.ServiceID) ([]models.Service, error)
	ListPrimaryServices(ctx context.Context, code string) ([]models.Service, error)
}

// Cache is a TTL key/value tier holding encoded catalog values.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, keys ...string) error
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	Driver() string
}

// Scope selects what Invalidate drops.
type Scope string

const (
	ScopeAll               Scope = "all"
	ScopeAuthorities       Scope = "authorities"
	ScopeAuthorityServices Scope = "authority_services"
)

// Service is the catalog facade used by the flow and the capture service.
type Service struct {
	store   Store
	cache   Cache
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Service.
type Option func(*Service)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New builds a catalog service. ttl <= 0 falls back to one hour.
func New(st Store, c Cache, ttl time.Duration, opts ...Option) *Service {
	if ttl <= 0 {
		ttl = time.Hour
	}
	s := &Service{store: st, cache: c, ttl: ttl, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetAuthority returns one authority or a CodeNotFound error.
func (s *Service) GetAuthority(ctx context.Context, id domain.AuthorityID) (*models.Authority, error) {
	a, err := remember(ctx, s, "authority", keyAuthority+id.String(), func(ctx context.Context) (*models.Authority, error) {
		return s.store.FindAuthority(ctx, id)
	})
	if err != nil {
		return nil, translate(err, "authority not found")
	}
	return a, nil
}

// ListAuthorities returns every authority ordered by name.
func (s *Service) ListAuthorities(ctx context.Context) ([]models.Authority, error) {
	list, err := remember(ctx, s, "authorities", keyAuthorities, s.store.ListAuthorities)
	if err != nil {
		return nil, translate(err, "authorities unavailable")
	}
	return list, nil
}

// GetServices returns the services for ids in the order requested. Every id
// must exist; a missing one yields CodeNotFound.
func (s *Service) GetServices(ctx context.Context, ids []domain.ServiceID) ([]models.Service, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	list, err := remember(ctx, s, "services", keyServices+joinIDs(sorted), func(ctx context.Context) ([]models.Service, error) {
		return s.store.FindServices(ctx, sorted)
	})
	if err != nil {
		return nil, translate(err, "services unavailable")
	}

	byID := make(map[domain.ServiceID]models.Service, len(list))
	for _, svc := range list {
		byID[svc.ID] = svc
	}
	out := make([]models.Service, 0, len(ids))
	for _, id := range ids {
		svc, ok := byID[id]
		if !ok {
			return nil, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("service %d not found", id))
		}
		out = append(out, svc)
	}
	return out, nil
}

// GetServicesByAuthority lists the primary services whose homoclave contains
// the authority's short code.
func (s *Service) GetServicesByAuthority(ctx context.Context, id domain.AuthorityID) ([]models.Service, error) {
	list, err := remember(ctx, s, "authority_services", keyAuthorityServices+id.String(), func(ctx context.Context) ([]models.Service, error) {
		a, err := s.store.FindAuthority(ctx, id)
		if err != nil {
			return nil, err
		}
		return s.store.ListPrimaryServices(ctx, a.ShortCode)
	})
	if err != nil {
		return nil, translate(err, "authority not found")
	}
	return list, nil
}

// Invalidate drops cached entries. For ScopeAuthorityServices a nil id drops
// the service lists of every authority.
func (s *Service) Invalidate(ctx context.Context, scope Scope, id *domain.AuthorityID) (int, error) {
	var (
		n   int
		err error
	)
	switch scope {
	case ScopeAll:
		n, err = s.cache.DeletePrefix(ctx, keyPrefix)
	case ScopeAuthorities:
		err = s.cache.Delete(ctx, keyAuthorities)
		n = 1
	case ScopeAuthorityServices:
		if id != nil {
			err = s.cache.Delete(ctx, keyAuthorityServices+id.String(), keyAuthority+id.String())
			n = 2
		} else {
			n, err = s.cache.DeletePrefix(ctx, keyAuthorityServices)
		}
	default:
		return 0, dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("unknown cache scope %q", scope))
	}
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeUnavailable, "catalog cache unavailable")
	}
	s.logger.InfoContext(ctx, "catalog cache invalidated", "scope", scope, "keys", n)
	return n, nil
}

// Stats reports what the cache currently holds.
func (s *Service) Stats(ctx context.Context) (*models.Stats, error) {
	cached, err := s.cache.Exists(ctx, keyAuthorities)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "catalog cache unavailable")
	}
	authorities, err := s.ListAuthorities(ctx)
	if err != nil {
		return nil, err
	}
	lists := 0
	for _, a := range authorities {
		ok, err := s.cache.Exists(ctx, keyAuthorityServices+a.ID.String())
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "catalog cache unavailable")
		}
		if ok {
			lists++
		}
	}
	return &models.Stats{
		Driver:                s.cache.Driver(),
		TTL:                   s.ttl,
		TTLMinutes:            s.ttl.Minutes(),
		AuthoritiesCached:     cached,
		AuthorityServiceLists: lists,
		TotalAuthorities:      len(authorities),
	}, nil
}

// remember is the read-through step shared by every lookup. Cache faults are
// logged and treated as misses; only store errors reach the caller.
func remember[T any](ctx context.Context, s *Service, kind, key string, load func(context.Context) (T, error)) (T, error) {
	start := time.Now()
	var zero T

	raw, err := s.cache.Get(ctx, key)
	switch {
	case err == nil:
		var v T
		jerr := json.Unmarshal(raw, &v)
		if jerr == nil {
			s.metrics.RecordHit(kind, time.Since(start))
			return v, nil
		}
		s.logger.WarnContext(ctx, "discarding undecodable catalog cache entry", "key", key, "error", jerr)
	case !errors.Is(err, cache.ErrMiss):
		s.logger.WarnContext(ctx, "catalog cache read failed", "key", key, "error", err)
	}

	v, err := load(ctx)
	if err != nil {
		return zero, err
	}
	s.metrics.RecordMiss(kind, time.Since(start))
	s.logger.DebugContext(ctx, "catalog cache miss", "kind", kind, "key", key)

	if enc, err := json.Marshal(v); err == nil {
		if err := s.cache.Set(ctx, key, enc, s.ttl); err != nil {
			s.logger.WarnContext(ctx, "catalog cache write failed", "key", key, "error", err)
		}
	}
	return v, nil
}

func translate(err error, notFoundMsg string) error {
	if errors.Is(err, store.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeNotFound, notFoundMsg)
	}
	return dErrors.Wrap(err, dErrors.CodeUnavailable, "catalog unavailable")
}

func joinIDs(ids []domain.ServiceID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(int64(id), 10)
	}
	return strings.Join(parts, ",")
}
