package main

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"lineacaptura/internal/capture"
	capturestore "lineacaptura/internal/capture/store"
	"lineacaptura/internal/catalog"
	catalogcache "lineacaptura/internal/catalog/cache"
	catalogstore "lineacaptura/internal/catalog/store"
	"lineacaptura/internal/flow"
	flowstore "lineacaptura/internal/flow/store"
	"lineacaptura/internal/platform/config"
	"lineacaptura/internal/platform/migrations"
	"lineacaptura/internal/platform/postgres"
	redisclient "lineacaptura/internal/platform/redis"
	ratelimit "lineacaptura/internal/ratelimit/middleware"
	"lineacaptura/internal/ratelimit/store/bucket"
	httptransport "lineacaptura/internal/transport/http"
	audit "lineacaptura/pkg/platform/audit"
	auditmetrics "lineacaptura/pkg/platform/audit/metrics"
	"lineacaptura/pkg/platform/audit/publisher"
	"lineacaptura/pkg/platform/audit/store/kafka"
	"lineacaptura/pkg/platform/audit/store/memory"
	auditpostgres "lineacaptura/pkg/platform/audit/store/postgres"
	"lineacaptura/pkg/platform/circuit"
	"lineacaptura/pkg/platform/tx"
)

// infra holds the optional backing services. A nil field selects the
// in-memory implementation of whatever depends on it.
type infra struct {
	db    *sql.DB
	redis *redisclient.Client
}

func openInfra(ctx context.Context, cfg config.Config, log *slog.Logger) (*infra, error) {
	in := &infra{}
	if cfg.Database.URL != "" {
		db, err := postgres.Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		in.db = db
		if cfg.Database.RunMigrations {
			if err := migrations.Apply(ctx, db, log); err != nil {
				in.Close()
				return nil, err
			}
		}
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}

	rc, err := redisclient.New(ctx, cfg.Redis)
	if err != nil {
		in.Close()
		return nil, err
	}
	if rc == nil {
		log.Warn("REDIS_URL not set, using in-memory sessions and catalog cache")
	}
	in.redis = rc
	return in, nil
}

func (in *infra) checks() map[string]httptransport.Check {
	checks := map[string]httptransport.Check{}
	if in.db != nil {
		checks["postgres"] = in.db.PingContext
	}
	if in.redis != nil {
		checks["redis"] = in.redis.Health
	}
	return checks
}

func (in *infra) Close() {
	if in.redis != nil {
		_ = in.redis.Close()
	}
	if in.db != nil {
		_ = in.db.Close()
	}
}

func newCatalogStore(cfg config.Config, in *infra, log *slog.Logger) (catalog.Store, error) {
	if in.db != nil {
		return catalogstore.NewPostgres(in.db), nil
	}
	if cfg.Catalog.SeedFile == "" {
		log.Warn("no catalog configured, the authority list will be empty")
		return catalogstore.NewInMemory(), nil
	}
	st, err := catalogstore.LoadSeedFile(cfg.Catalog.SeedFile)
	if err != nil {
		return nil, err
	}
	log.Info("catalog seed loaded", "file", cfg.Catalog.SeedFile)
	return st, nil
}

func newCatalogCache(in *infra) catalog.Cache {
	if in.redis != nil {
		return catalogcache.NewRedis(in.redis.Client)
	}
	return catalogcache.NewInMemory()
}

func newSessionStore(cfg config.Config, in *infra) flow.SessionStore {
	if in.redis != nil {
		return flowstore.NewRedis(in.redis.Client, cfg.Flow.SessionTTL)
	}
	return flowstore.NewInMemory(cfg.Flow.SessionTTL)
}

func newRateLimitStore(in *infra) ratelimit.Store {
	if in.redis != nil {
		return bucket.NewRedis(in.redis.Client)
	}
	return bucket.NewInMemoryBucketStore()
}

func newCaptureStore(in *infra) capture.Store {
	if in.db != nil {
		return capturestore.NewPostgres(in.db)
	}
	return capturestore.NewInMemory()
}

// auditTrail is the audit wiring: the async publisher over memory and,
// optionally, Kafka; plus the Postgres ledger written with each record.
type auditTrail struct {
	publisher *publisher.Publisher
	recent    *memory.InMemoryStore
	ledger    audit.Store
	tx        capture.Transactor
	sink      *kafka.Store
}

func openAudit(ctx context.Context, cfg config.Config, in *infra, reg prometheus.Registerer, log *slog.Logger) (*auditTrail, error) {
	m := auditmetrics.New(reg)
	t := &auditTrail{recent: memory.NewInMemoryStore()}
	sinks := audit.Fanout{t.recent}

	if len(cfg.Audit.Brokers) > 0 {
		sink, err := kafka.New(ctx, cfg.Audit.Brokers, cfg.Audit.Topic, cfg.Audit.CreateTopic,
			kafka.WithBreaker(circuit.New("audit-kafka")),
			kafka.WithMetrics(m),
			kafka.WithLogger(log),
		)
		if err != nil {
			return nil, err
		}
		t.sink = sink
		sinks = append(sinks, sink)
		log.Info("audit kafka sink enabled", "topic", cfg.Audit.Topic)
	}

	t.publisher = publisher.NewPublisher(sinks,
		publisher.WithAsyncBuffer(cfg.Audit.Buffer),
		publisher.WithMetrics(m),
		publisher.WithLogger(log),
	)
	if in.db != nil {
		t.ledger = auditpostgres.New(in.db)
		t.tx = tx.NewRunner(in.db)
	}
	return t, nil
}

// Close drains queued events before releasing the Kafka client.
func (t *auditTrail) Close() {
	t.publisher.Close()
	if t.sink != nil {
		t.sink.Close()
	}
}
