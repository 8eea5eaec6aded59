package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the complete runtime configuration, resolved once at start-up.
type Config struct {
	Server    Server
	Database  DatabaseConfig
	Redis     RedisConfig
	Catalog   CatalogConfig
	Flow      FlowConfig
	Authority AuthorityConfig
	Audit     AuditConfig
	RateLimit RateLimitConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr           string
	AdminToken     string
	Timezone       string
	LogLevel       string
	LogFormat      string
	RequestTimeout time.Duration
}

// DatabaseConfig selects Postgres storage. An empty URL selects in-memory stores.
type DatabaseConfig struct {
	URL           string
	MaxOpenConns  int
	MaxIdleConns  int
	RunMigrations bool
}

// RedisConfig selects Redis for sessions and the catalog cache. An empty URL
// selects in-memory implementations.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// CatalogConfig controls catalog caching and the development seed file.
type CatalogConfig struct {
	CacheTTL time.Duration
	SeedFile string
}

// FlowConfig controls the flow session cookie and its server-side lifetime.
type FlowConfig struct {
	SessionTTL   time.Duration
	CookieName   string
	CookieSecure bool
}

// AuthorityConfig configures the outbound tax-authority client.
type AuthorityConfig struct {
	Endpoint           string
	Timeout            time.Duration
	ConnectTimeout     time.Duration
	TLSVerify          bool
	ClientCertPath     string
	ClientCertType     string
	ClientCertPassword string
	ClientKeyPath      string
	ClientKeyPassword  string
	CACertPath         string
	HTTP2              bool
	Verbose            bool
	BearerToken        string
	AuthScheme         string
	APIKey             string
	SubscriptionKey    string
	SubscriptionQuery  bool
	CorrelationID      string
	AcceptLanguage     string
	APIMTrace          bool
	UserAgent          string
	JWT                JWTConfig
}

// JWTConfig configures the HS256 bearer credential minted per call.
type JWTConfig struct {
	Enabled  bool
	Secret   string
	Audience string
	Issuer   string
	Subject  string
	TTL      time.Duration
}

// AuditConfig selects the Kafka audit sink. No brokers keeps audit in memory.
type AuditConfig struct {
	Brokers     []string
	Topic       string
	CreateTopic bool
	Buffer      int
}

// RateLimitConfig bounds capture-line generation per client IP. Zero
// requests disables the limit.
type RateLimitConfig struct {
	GenerateRequests int
	GenerateWindow   time.Duration
}

// Defaults applied when the matching variable is unset.
const (
	DefaultAddr              = ":8080"
	DefaultTimezone          = "America/Mexico_City"
	DefaultCatalogTTL        = time.Hour
	DefaultSessionTTL        = 2 * time.Hour
	DefaultCookieName        = "lc_session"
	DefaultAuthorityTimeout  = 30 * time.Second
	DefaultConnectTimeout    = 10 * time.Second
	DefaultJWTAudience       = "www.sat.gob.mx"
	DefaultJWTTTL            = 300 * time.Second
	DefaultUserAgent         = "LineaCaptura/1.0"
	DefaultAuditTopic        = "lineacaptura.audit"
	DefaultRequestTimeout    = 45 * time.Second
	DefaultAuditBufferEvents = 256
	DefaultGenerateLimit     = 10
	DefaultGenerateWindow    = time.Minute
)

// FromEnv builds the Config from environment variables. A .env file in the
// working directory is loaded first when present; real environment variables win.
func FromEnv() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	e := &envReader{}
	cfg := Config{
		Server: Server{
			Addr:           e.str("LC_ADDR", DefaultAddr),
			AdminToken:     e.str("LC_ADMIN_TOKEN", ""),
			Timezone:       e.str("LC_TIMEZONE", DefaultTimezone),
			LogLevel:       e.str("LC_LOG_LEVEL", "info"),
			LogFormat:      e.str("LC_LOG_FORMAT", "json"),
			RequestTimeout: e.duration("LC_REQUEST_TIMEOUT", DefaultRequestTimeout),
		},
		Database: DatabaseConfig{
			URL:           e.str("DATABASE_URL", ""),
			MaxOpenConns:  e.integer("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:  e.integer("DB_MAX_IDLE_CONNS", 5),
			RunMigrations: e.boolean("DB_RUN_MIGRATIONS", true),
		},
		Redis: RedisConfig{
			URL:          e.str("REDIS_URL", ""),
			PoolSize:     e.integer("REDIS_POOL_SIZE", 10),
			MinIdleConns: e.integer("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  e.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  e.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: e.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Catalog: CatalogConfig{
			CacheTTL: e.duration("CATALOG_CACHE_TTL", DefaultCatalogTTL),
			SeedFile: e.str("CATALOG_SEED_FILE", ""),
		},
		Flow: FlowConfig{
			SessionTTL:   e.duration("FLOW_SESSION_TTL", DefaultSessionTTL),
			CookieName:   e.str("FLOW_COOKIE_NAME", DefaultCookieName),
			CookieSecure: e.boolean("FLOW_COOKIE_SECURE", false),
		},
		Authority: AuthorityConfig{
			Endpoint:           e.str("SAT_API_URL", ""),
			Timeout:            e.seconds(e.alias("SAT_TIMEOUT", "SAT_API_TIMEOUT"), DefaultAuthorityTimeout),
			ConnectTimeout:     e.seconds("SAT_CONNECT_TIMEOUT", DefaultConnectTimeout),
			TLSVerify:          e.boolean("SAT_TLS_VERIFY", true),
			ClientCertPath:     e.str("SAT_CLIENT_CERT_PATH", ""),
			ClientCertType:     strings.ToUpper(e.str("SAT_CLIENT_CERT_TYPE", "PEM")),
			ClientCertPassword: e.str("SAT_CLIENT_CERT_PASSWORD", ""),
			ClientKeyPath:      e.str("SAT_CLIENT_KEY_PATH", ""),
			ClientKeyPassword:  e.str("SAT_CLIENT_KEY_PASSWORD", ""),
			CACertPath:         e.str("SAT_CA_CERT_PATH", ""),
			HTTP2:              e.boolean("SAT_HTTP2", false),
			Verbose:            e.boolean(e.alias("SAT_VERBOSE", "SAT_CURL_VERBOSE"), false),
			BearerToken:        e.str(e.alias("SAT_TOKEN", "SAT_API_TOKEN"), ""),
			AuthScheme:         strings.ToUpper(e.str("SAT_AUTH_SCHEME", "BEARER")),
			APIKey:             e.str("SAT_API_KEY", ""),
			SubscriptionKey:    e.str("SAT_SUBSCRIPTION_KEY", ""),
			SubscriptionQuery:  e.boolean("SAT_SUBSCRIPTION_KEY_QUERY", true),
			CorrelationID:      e.str("SAT_CORRELATION_ID", ""),
			AcceptLanguage:     e.str("SAT_ACCEPT_LANGUAGE", ""),
			APIMTrace:          e.boolean("SAT_APIM_TRACE", false),
			UserAgent:          e.str("SAT_USER_AGENT", DefaultUserAgent),
			JWT: JWTConfig{
				Enabled:  e.boolean(e.alias("SAT_JWT_ENABLED", "SAT_JWT_ENABLE"), false),
				Secret:   e.str("SAT_JWT_SECRET", ""),
				Audience: e.str("SAT_JWT_AUD", DefaultJWTAudience),
				Issuer:   e.str("SAT_JWT_ISS", ""),
				Subject:  e.str("SAT_JWT_SUB", ""),
				TTL:      e.seconds("SAT_JWT_EXP_SECONDS", DefaultJWTTTL),
			},
		},
		Audit: AuditConfig{
			Brokers:     e.list("AUDIT_KAFKA_BROKERS"),
			Topic:       e.str("AUDIT_KAFKA_TOPIC", DefaultAuditTopic),
			CreateTopic: e.boolean("AUDIT_KAFKA_CREATE_TOPIC", false),
			Buffer:      e.integer("AUDIT_BUFFER", DefaultAuditBufferEvents),
		},
		RateLimit: RateLimitConfig{
			GenerateRequests: e.integer("LC_GENERATE_RATE_LIMIT", DefaultGenerateLimit),
			GenerateWindow:   e.duration("LC_GENERATE_RATE_WINDOW", DefaultGenerateWindow),
		},
	}
	if len(e.errs) > 0 {
		return Config{}, errors.Join(e.errs...)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var errs []error
	if _, err := time.LoadLocation(c.Server.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("LC_TIMEZONE: %w", err))
	}
	switch c.Authority.AuthScheme {
	case "BEARER", "PLAIN":
	default:
		errs = append(errs, fmt.Errorf("SAT_AUTH_SCHEME: unsupported scheme %q", c.Authority.AuthScheme))
	}
	switch c.Authority.ClientCertType {
	case "PEM", "P12":
	default:
		errs = append(errs, fmt.Errorf("SAT_CLIENT_CERT_TYPE: unsupported type %q", c.Authority.ClientCertType))
	}
	if c.RateLimit.GenerateRequests < 0 {
		errs = append(errs, errors.New("LC_GENERATE_RATE_LIMIT must not be negative"))
	}
	if c.Authority.JWT.Enabled && c.Authority.JWT.Secret == "" {
		errs = append(errs, errors.New("SAT_JWT_SECRET is required when SAT_JWT_ENABLED=true"))
	}
	return errors.Join(errs...)
}

// envReader collects parse errors so every bad variable is reported at once.
type envReader struct {
	errs []error
}

// alias returns key unless only the older name legacy is set.
func (e *envReader) alias(key, legacy string) string {
	if e.str(key, "") == "" && e.str(legacy, "") != "" {
		return legacy
	}
	return key
}

func (e *envReader) str(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (e *envReader) boolean(key string, def bool) bool {
	v := e.str(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return b
}

func (e *envReader) integer(key string, def int) int {
	v := e.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

// duration accepts Go duration syntax ("90s", "1h").
func (e *envReader) duration(key string, def time.Duration) time.Duration {
	v := e.str(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

// seconds accepts a whole number of seconds, as the authority variables do.
func (e *envReader) seconds(key string, def time.Duration) time.Duration {
	v := e.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		e.errs = append(e.errs, fmt.Errorf("%s: expected non-negative seconds, got %q", key, v))
		return def
	}
	return time.Duration(n) * time.Second
}

func (e *envReader) list(key string) []string {
	v := e.str(key, "")
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
