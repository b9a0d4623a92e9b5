// Package config 提供 TOML 配置加载与环境变量覆盖
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，如 APP_PRICING_DEFAULT_PATHS 覆盖 pricing.default_paths
const EnvPrefix = "APP"

// Config 服务配置
type Config struct {
	ServiceName string `mapstructure:"service_name"`
	Version     string `mapstructure:"version"`
	// 环境：dev, staging, prod
	Environment string          `mapstructure:"environment"`
	HTTP        HTTPConfig      `mapstructure:"http"`
	GRPC        GRPCConfig      `mapstructure:"grpc"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Kafka       KafkaConfig     `mapstructure:"kafka"`
	Logger      LoggerConfig    `mapstructure:"logger"`
	Tracing     TracingConfig   `mapstructure:"tracing"`
	Metrics     MetricsConfig   `mapstructure:"metrics"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	Pricing     PricingConfig   `mapstructure:"pricing"`
	Outbox      OutboxConfig    `mapstructure:"outbox"`
}

// HTTPConfig HTTP 服务配置
type HTTPConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// 读写超时（秒）
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

// GRPCConfig gRPC 服务配置
type GRPCConfig struct {
	Host                 string `mapstructure:"host"`
	Port                 int    `mapstructure:"port"`
	MaxConcurrentStreams int    `mapstructure:"max_concurrent_streams"`
	// 连接空闲超时（秒）
	IdleTimeout int `mapstructure:"idle_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"`
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	// 连接最大生命周期（秒）
	ConnMaxLifetime int  `mapstructure:"conn_max_lifetime"`
	LogEnabled      bool `mapstructure:"log_enabled"`
	// 慢查询阈值（毫秒）
	SlowQueryThreshold int  `mapstructure:"slow_query_threshold"`
	AutoMigrate        bool `mapstructure:"auto_migrate"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	Password    string `mapstructure:"password"`
	DB          int    `mapstructure:"db"`
	MaxPoolSize int    `mapstructure:"max_pool_size"`
	// 超时（秒）
	ConnTimeout  int `mapstructure:"conn_timeout"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

// KafkaConfig Kafka 配置
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	// 写超时（秒）
	WriteTimeout int `mapstructure:"write_timeout"`
}

// LoggerConfig 日志配置
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
	WithCaller bool   `mapstructure:"with_caller"`
}

// TracingConfig 追踪配置
type TracingConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	CollectorEndpoint string  `mapstructure:"collector_endpoint"`
	SamplingRate      float64 `mapstructure:"sampling_rate"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

// 限流后端
const (
	RateLimitBackendRedis = "redis"
	RateLimitBackendLocal = "local"
)

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// redis 或 local，Redis 不可用时 HTTP 限流自动退回 local
	Backend string `mapstructure:"backend"`
	// 每秒请求数
	QPS   int `mapstructure:"qps"`
	Burst int `mapstructure:"burst"`
}

// PricingConfig 定价请求未指定时使用的模拟参数
type PricingConfig struct {
	DefaultPaths         int    `mapstructure:"default_paths"`
	DefaultExerciseDates int    `mapstructure:"default_exercise_dates"`
	DefaultSeed          int64  `mapstructure:"default_seed"`
	DefaultBasis         string `mapstructure:"default_basis"`
	DefaultBasisSize     int    `mapstructure:"default_basis_size"`
	Antithetic           bool   `mapstructure:"antithetic"`
	// 单次请求允许的最大路径数
	MaxPaths    int `mapstructure:"max_paths"`
	MaxBatch    int `mapstructure:"max_batch"`
	Parallelism int `mapstructure:"parallelism"`
	// 结果缓存时间（秒），0 表示不缓存
	CacheTTL    int    `mapstructure:"cache_ttl"`
	EventsTopic string `mapstructure:"events_topic"`
}

// OutboxConfig 发件箱投递配置
type OutboxConfig struct {
	// 轮询间隔（秒）
	PollInterval int `mapstructure:"poll_interval"`
	BatchSize    int `mapstructure:"batch_size"`
	MaxRetries   int `mapstructure:"max_retries"`
	// 已投递消息保留天数
	RetentionDays int `mapstructure:"retention_days"`
}

// Load 从 TOML 文件加载配置，文件必须存在
func Load(configPath string) (*Config, error) {
	return load(configPath, true)
}

// LoadWithDefaults 从 TOML 文件加载配置，文件缺失时只使用默认值与环境变量
func LoadWithDefaults(configPath string) (*Config, error) {
	return load(configPath, false)
}

func load(configPath string, required bool) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil && required {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required")
	}
	if c.Environment == "" {
		c.Environment = "dev"
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTP.Port)
	}
	if c.GRPC.Port <= 0 || c.GRPC.Port > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.GRPC.Port)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database DSN is required for %s driver", c.Database.Driver)
	}
	p := c.Pricing
	if p.DefaultPaths < 1 || p.DefaultExerciseDates < 1 {
		return fmt.Errorf("invalid pricing defaults: paths=%d dates=%d", p.DefaultPaths, p.DefaultExerciseDates)
	}
	if p.MaxPaths < p.DefaultPaths {
		return fmt.Errorf("pricing.max_paths %d below default_paths %d", p.MaxPaths, p.DefaultPaths)
	}
	if p.Antithetic && p.DefaultPaths%2 != 0 {
		return fmt.Errorf("pricing.default_paths %d must be even with antithetic sampling", p.DefaultPaths)
	}
	if c.RateLimit.Enabled && (c.RateLimit.QPS <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("invalid rate limit: qps=%d burst=%d", c.RateLimit.QPS, c.RateLimit.Burst)
	}
	switch c.RateLimit.Backend {
	case "", RateLimitBackendRedis, RateLimitBackendLocal:
	default:
		return fmt.Errorf("unknown rate_limit.backend %q", c.RateLimit.Backend)
	}
	return nil
}

// HTTPAddr HTTP 监听地址
func (c *Config) HTTPAddr() string { return fmt.Sprintf("%s:%d", c.HTTP.Host, c.HTTP.Port) }

// GRPCAddr gRPC 监听地址
func (c *Config) GRPCAddr() string { return fmt.Sprintf("%s:%d", c.GRPC.Host, c.GRPC.Port) }

// RedisAddr Redis 地址
func (c *Config) RedisAddr() string { return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port) }

func setDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "pricing")
	v.SetDefault("version", "dev")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", 30)
	v.SetDefault("http.write_timeout", 60)

	v.SetDefault("grpc.host", "0.0.0.0")
	v.SetDefault("grpc.port", 50051)
	v.SetDefault("grpc.max_concurrent_streams", 1000)
	v.SetDefault("grpc.idle_timeout", 300)

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 300)
	v.SetDefault("database.log_enabled", false)
	v.SetDefault("database.slow_query_threshold", 1000)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.max_pool_size", 10)
	v.SetDefault("redis.conn_timeout", 5)
	v.SetDefault("redis.read_timeout", 3)
	v.SetDefault("redis.write_timeout", 3)

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.write_timeout", 10)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stdout")
	v.SetDefault("logger.file_path", "logs/pricing.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 10)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.with_caller", true)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.collector_endpoint", "localhost:4317")
	v.SetDefault("tracing.sampling_rate", 1.0)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.backend", RateLimitBackendRedis)
	v.SetDefault("rate_limit.qps", 50)
	v.SetDefault("rate_limit.burst", 100)

	v.SetDefault("pricing.default_paths", 20000)
	v.SetDefault("pricing.default_exercise_dates", 50)
	v.SetDefault("pricing.default_seed", 42)
	v.SetDefault("pricing.default_basis", "LAGUERRE")
	v.SetDefault("pricing.default_basis_size", 3)
	v.SetDefault("pricing.antithetic", false)
	v.SetDefault("pricing.max_paths", 200000)
	v.SetDefault("pricing.max_batch", 32)
	v.SetDefault("pricing.parallelism", 4)
	v.SetDefault("pricing.cache_ttl", 900)
	v.SetDefault("pricing.events_topic", "pricing-events")

	v.SetDefault("outbox.poll_interval", 2)
	v.SetDefault("outbox.batch_size", 100)
	v.SetDefault("outbox.max_retries", 5)
	v.SetDefault("outbox.retention_days", 7)
}

// GetEnv 获取环境变量，支持默认值
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
