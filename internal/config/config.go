package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
	DB          DBConfig          `mapstructure:"db"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Auth        AuthConfig        `mapstructure:"auth"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Bidding     BiddingConfig     `mapstructure:"bidding"`
	Commission  CommissionConfig  `mapstructure:"commission"`
	Risk        RiskConfig        `mapstructure:"risk"`
	Escrow      EscrowConfig      `mapstructure:"escrow"`
	Settlement  SettlementConfig  `mapstructure:"settlement"`
	Idempotency IdempotencyConfig `mapstructure:"idempotency"`
	Cron        CronConfig        `mapstructure:"cron"`
	Realtime    RealtimeConfig    `mapstructure:"realtime"`
	Audit       AuditConfig       `mapstructure:"audit"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	EnableSwagger   bool          `mapstructure:"enable_swagger"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`

	// SlowQueryThreshold is the duration above which gorm logs a query.
	SlowQueryThreshold time.Duration `mapstructure:"slow_query_threshold"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CacheConfig selects the backing store for the risk and commission caches.
// Backend is "memory" or "redis".
type CacheConfig struct {
	Backend   string `mapstructure:"backend"`
	MemoryLRU int    `mapstructure:"memory_lru_size"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
	Disabled  bool   `mapstructure:"disabled"`
}

type RateLimitConfig struct {
	PlaceBidLimit  int           `mapstructure:"place_bid_limit"`
	PlaceBidWindow time.Duration `mapstructure:"place_bid_window"`
}

type BiddingConfig struct {
	// SoftCloseWindow > 0 enables end-of-auction extension when a bid lands
	// inside the window.
	SoftCloseWindow time.Duration `mapstructure:"soft_close_window"`
	Extension       time.Duration `mapstructure:"extension"`
}

type CommissionConfig struct {
	CacheTTL              time.Duration `mapstructure:"cache_ttl"`
	DefaultBuyerPercent   float64       `mapstructure:"default_buyer_percent"`
	DefaultSellerPercent  float64       `mapstructure:"default_seller_percent"`
	DefaultPlatformFlatCt int64         `mapstructure:"default_platform_flat_cents"`
}

type RiskConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type EscrowConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type SettlementConfig struct {
	Currency string `mapstructure:"currency"`
}

type IdempotencyConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type CronConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	AuctionClose       string `mapstructure:"auction_close"`
	IdempotencyCleanup string `mapstructure:"idempotency_cleanup"`
}

type RealtimeConfig struct {
	// RedisChannel enables cross-instance fan-out of auction events when set
	// and redis is configured.
	RedisChannel string `mapstructure:"redis_channel"`
	ReadLimit    int64  `mapstructure:"read_limit"`
}

type AuditConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Agent   string `mapstructure:"agent"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("QB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.enable_swagger", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("db.slow_query_threshold", "200ms")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.memory_lru_size", 10000)
	v.SetDefault("cache.key_prefix", "qb:")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "quickbid")
	v.SetDefault("auth.disabled", false)

	v.SetDefault("rate_limit.place_bid_limit", 10)
	v.SetDefault("rate_limit.place_bid_window", "10s")

	// Soft close stays off unless configured.
	v.SetDefault("bidding.soft_close_window", "0s")
	v.SetDefault("bidding.extension", "2m")

	v.SetDefault("commission.cache_ttl", "5m")
	v.SetDefault("commission.default_buyer_percent", 10)
	v.SetDefault("commission.default_seller_percent", 3)
	v.SetDefault("commission.default_platform_flat_cents", 0)

	v.SetDefault("risk.cache_ttl", "30s")

	v.SetDefault("escrow.base_url", "")
	v.SetDefault("escrow.token", "")
	v.SetDefault("escrow.timeout", "10s")

	v.SetDefault("settlement.currency", "INR")
	v.SetDefault("idempotency.ttl", "24h")

	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.auction_close", "@every 15s")
	v.SetDefault("cron.idempotency_cleanup", "@every 1h")

	v.SetDefault("realtime.redis_channel", "")
	v.SetDefault("realtime.read_limit", 32768)

	v.SetDefault("audit.base_url", "")
	v.SetDefault("audit.api_key", "")
	v.SetDefault("audit.agent", "quickbid-engine")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
