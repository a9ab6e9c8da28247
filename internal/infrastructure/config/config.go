package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	JWTSecret string `env:"JWT_SECRET"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`

	MainDomain         string `env:"MAIN_DOMAIN,          default=localhost"`
	MultiTenantEnabled bool   `env:"MULTI_TENANT_ENABLED, default=false"`
	AdminPathMusedock  string `env:"ADMIN_PATH_MUSEDOCK,  default=musedock"`
	AdminPathTenant    string `env:"ADMIN_PATH_TENANT,    default=admin"`

	Mongo     MongoConfig
	Redis     RedisConfig
	Session   SessionConfig
	Security  SecurityConfig
	RateLimit RateLimitConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=musedock"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,      default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,        default=0"`
	PoolSize int    `env:"REDIS_POOL_SIZE, default=0"`
}

type SessionConfig struct {
	CookieName  string        `env:"SESSION_COOKIE, default=musedock_session"`
	TTL         time.Duration `env:"SESSION_TTL,    default=2h"`
	Secure      bool          `env:"SESSION_SECURE, default=true"`
	RememberTTL time.Duration `env:"REMEMBER_TTL,   default=720h"`
	APITokenTTL time.Duration `env:"API_TOKEN_TTL,  default=24h"`
}

type SecurityConfig struct {
	WAFEnabled     bool     `env:"WAF_ENABLED,          default=true"`
	CSP            string   `env:"CSP"`
	TrustProxy     bool     `env:"TRUST_PROXY,          default=false"`
	CSRFExempt     []string `env:"CSRF_EXEMPT_PREFIXES"`
	AuditWorkers   int      `env:"AUDIT_WORKERS,        default=4"`
	ControllersDir string   `env:"CONTROLLERS_DIR"`
}

type RateLimitConfig struct {
	Enabled     bool     `env:"RATE_LIMIT_ENABLED,      default=true"`
	Backend     string   `env:"RATE_LIMIT_BACKEND,      default=mongo"`
	LoginRoutes []string `env:"RATE_LIMIT_LOGIN_ROUTES"`
	APIPrefixes []string `env:"RATE_LIMIT_API_PREFIXES"`
	HeavyPaths  []string `env:"RATE_LIMIT_HEAVY_PATHS"`
	Whitelist   []string `env:"IP_WHITELIST"`
	Blacklist   []string `env:"IP_BLACKLIST"`
}

// DefaultCSP is used when CSP is unset.
const DefaultCSP = "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; " +
	"img-src 'self' data: https:; font-src 'self' data:; frame-ancestors 'self'; base-uri 'self'; form-action 'self'"

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SuperadminBase is the superadmin panel prefix, e.g. "/musedock".
func (c *Config) SuperadminBase() string { return "/" + strings.Trim(c.AdminPathMusedock, "/") }

// TenantBase is the tenant admin panel prefix, e.g. "/admin".
func (c *Config) TenantBase() string { return "/" + strings.Trim(c.AdminPathTenant, "/") }

// APIBase is the prefix of the bearer-token API.
func (c *Config) APIBase() string { return "/api/v1" }

func (c *Config) applyDefaults() {
	if c.Security.CSP == "" {
		c.Security.CSP = DefaultCSP
	}
	if len(c.Security.CSRFExempt) == 0 {
		c.Security.CSRFExempt = []string{c.APIBase() + "/"}
	}
	if len(c.RateLimit.LoginRoutes) == 0 {
		c.RateLimit.LoginRoutes = []string{
			c.SuperadminBase() + "/login",
			c.TenantBase() + "/login",
			"/customer/login",
			c.APIBase() + "/auth/token",
		}
	}
	if len(c.RateLimit.APIPrefixes) == 0 {
		c.RateLimit.APIPrefixes = []string{"/api/"}
	}
	if len(c.RateLimit.HeavyPaths) == 0 {
		c.RateLimit.HeavyPaths = []string{"/export", "/import", "/backup", "/bulk"}
	}
}

func (c *Config) validate() error {
	if c.JWTSecret == "" && c.Env == "production" {
		return fmt.Errorf("load config: JWT_SECRET is required in production")
	}
	switch c.RateLimit.Backend {
	case "mongo", "redis":
	default:
		return fmt.Errorf("load config: RATE_LIMIT_BACKEND must be mongo or redis, got %q", c.RateLimit.Backend)
	}
	if c.SuperadminBase() == c.TenantBase() {
		return fmt.Errorf("load config: ADMIN_PATH_MUSEDOCK and ADMIN_PATH_TENANT must differ")
	}
	return nil
}
