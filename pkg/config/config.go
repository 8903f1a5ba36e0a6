// Package config 提供 TOML 配置加载、环境变量覆盖、配置热更与校验
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"github.com/wyfcoding/quotebook/pkg/logger"
)

// timestampLayout 与报价时间格式一致，默认报表时刻在加载时即校验
const timestampLayout = "2006-01-02T15:04:05.000Z"

// Config 服务配置
type Config struct {
	// 服务配置
	Server ServerConfig `mapstructure:"server"`
	// 报价簿业务配置
	QuoteBook QuoteBookConfig `mapstructure:"quotebook"`
	// 数据库配置（quotebook.source.driver = mysql 时使用）
	Database DatabaseConfig `mapstructure:"database"`
	// Redis 配置
	Redis RedisConfig `mapstructure:"redis"`
	// Kafka 配置
	Kafka KafkaConfig `mapstructure:"kafka"`
	// 日志配置
	Logger logger.Config `mapstructure:"logger"`
	// 指标配置
	Metrics MetricsConfig `mapstructure:"metrics"`
	// 限流配置
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	// 熔断配置
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// ServerConfig 服务基础配置
type ServerConfig struct {
	// 服务名称
	Name string `mapstructure:"name"`
	// 环境：dev, staging, prod
	Environment string `mapstructure:"environment"`
	// HTTP 服务配置
	HTTP HTTPConfig `mapstructure:"http"`
	// gRPC 服务配置
	GRPC GRPCConfig `mapstructure:"grpc"`
}

// HTTPConfig HTTP 服务配置
type HTTPConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// 读超时（秒）
	ReadTimeout int `mapstructure:"read_timeout"`
	// 写超时（秒）
	WriteTimeout int `mapstructure:"write_timeout"`
}

// GRPCConfig gRPC 服务配置
type GRPCConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// 最大并发流数
	MaxConcurrentStreams int `mapstructure:"max_concurrent_streams"`
}

// QuoteBookConfig 报价簿配置
type QuoteBookConfig struct {
	// 每侧返回的最优报价条数
	ResultLimit int `mapstructure:"result_limit"`
	// 时间窗边界策略：inclusive, exclusive
	WindowBoundary string `mapstructure:"window_boundary"`
	// 默认报表的交易标的
	DefaultSymbol string `mapstructure:"default_symbol"`
	// 默认报表的查询时刻
	DefaultPointInTime string `mapstructure:"default_point_in_time"`
	// 周期重建间隔（秒），0 表示关闭
	RefreshInterval int `mapstructure:"refresh_interval"`
	// 数据来源
	Source SourceConfig `mapstructure:"source"`
	// 加载重试
	Retry RetryConfig `mapstructure:"retry"`
	// 事件
	Events EventsConfig `mapstructure:"events"`
}

// SourceConfig 报价来源配置
type SourceConfig struct {
	// 驱动：csv, mysql
	Driver string `mapstructure:"driver"`
	// CSV 文件路径
	Path string `mapstructure:"path"`
}

// RetryConfig 加载重试配置
type RetryConfig struct {
	// 最大尝试次数
	MaxAttempts int `mapstructure:"max_attempts"`
	// 初始退避（毫秒）
	InitialInterval int `mapstructure:"initial_interval"`
	// 最大退避（毫秒）
	MaxInterval int `mapstructure:"max_interval"`
}

// EventsConfig 快照事件配置
type EventsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// 快照重建完成事件 topic
	SnapshotTopic string `mapstructure:"snapshot_topic"`
	// 重建请求 topic
	RebuildTopic string `mapstructure:"rebuild_topic"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// 驱动：mysql
	Driver string `mapstructure:"driver"`
	// 数据源名称
	DSN string `mapstructure:"dsn"`
	// 最大连接数
	MaxOpenConns int `mapstructure:"max_open_conns"`
	// 最大空闲连接数
	MaxIdleConns int `mapstructure:"max_idle_conns"`
	// 连接最大生命周期（秒）
	ConnMaxLifetime int `mapstructure:"conn_max_lifetime"`
	// 是否启用 SQL 日志
	LogEnabled bool `mapstructure:"log_enabled"`
	// 慢查询阈值（毫秒）
	SlowQueryThreshold int `mapstructure:"slow_query_threshold"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// 最大连接数
	MaxPoolSize int `mapstructure:"max_pool_size"`
	// 连接超时（秒）
	ConnTimeout int `mapstructure:"conn_timeout"`
	// 读超时（秒）
	ReadTimeout int `mapstructure:"read_timeout"`
	// 写超时（秒）
	WriteTimeout int `mapstructure:"write_timeout"`
}

// KafkaConfig Kafka 配置
type KafkaConfig struct {
	// Broker 地址列表
	Brokers []string `mapstructure:"brokers"`
	// Consumer Group ID
	GroupID string `mapstructure:"group_id"`
	// 消费者超时（秒）
	SessionTimeout int `mapstructure:"session_timeout"`
	// 生产者最大重试次数
	MaxRetries int `mapstructure:"max_retries"`
	// 生产者重试退避（毫秒）
	RetryBackoff int `mapstructure:"retry_backoff"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Prometheus 监听端口
	Port int `mapstructure:"port"`
	// 指标路径
	Path string `mapstructure:"path"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// 后端：local, redis
	Backend string `mapstructure:"backend"`
	QPS     int    `mapstructure:"qps"`
	Burst   int    `mapstructure:"burst"`
}

// CircuitBreakerConfig 熔断配置
type CircuitBreakerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// 半开状态允许的最大请求数
	MaxRequests uint32 `mapstructure:"max_requests"`
	// 打开状态持续时间（毫秒）
	Timeout int `mapstructure:"timeout"`
	// 连续失败多少次后打开
	ConsecutiveFailures uint32 `mapstructure:"consecutive_failures"`
}

// Load 从 TOML 文件加载配置，支持默认值与环境变量覆盖
func Load(configPath string) (*Config, error) {
	v, err := newViper(configPath)
	if err != nil {
		return nil, err
	}
	return decode(v)
}

// Watch 加载配置并监听文件变化，变化后的有效配置通过 onChange 回调
// 变化后的配置若校验失败则忽略并记录日志
func Watch(configPath string, onChange func(*Config)) (*Config, error) {
	v, err := newViper(configPath)
	if err != nil {
		return nil, err
	}
	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		next, err := decode(v)
		if err != nil {
			logger.Get().Warn("ignoring invalid config change", "file", e.Name, "error", err)
			return
		}
		logger.Get().Info("config reloaded", "file", e.Name, "op", e.Op.String())
		onChange(next)
	})
	v.WatchConfig()

	return cfg, nil
}

func newViper(configPath string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// 环境变量覆盖，例如 APP_QUOTEBOOK_RESULT_LIMIT
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v, nil
}

func decode(v *viper.Viper) (*Config, error) {
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
	if c.Server.Name == "" {
		return fmt.Errorf("server.name is required")
	}
	if c.Server.Environment == "" {
		c.Server.Environment = "dev"
	}
	if c.Server.HTTP.Port <= 0 || c.Server.HTTP.Port > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTP.Port)
	}
	if c.Server.GRPC.Port < 0 || c.Server.GRPC.Port > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.Server.GRPC.Port)
	}
	if c.Server.GRPC.MaxConcurrentStreams < 0 {
		return fmt.Errorf("server.grpc.max_concurrent_streams must be non-negative, got %d", c.Server.GRPC.MaxConcurrentStreams)
	}
	if c.QuoteBook.ResultLimit < 0 {
		return fmt.Errorf("quotebook.result_limit must be non-negative, got %d", c.QuoteBook.ResultLimit)
	}
	if _, err := time.Parse(timestampLayout, c.QuoteBook.DefaultPointInTime); err != nil {
		return fmt.Errorf("quotebook.default_point_in_time must match %s, got %q", timestampLayout, c.QuoteBook.DefaultPointInTime)
	}
	switch strings.ToLower(c.QuoteBook.WindowBoundary) {
	case "", "inclusive", "exclusive":
	default:
		return fmt.Errorf("quotebook.window_boundary must be inclusive or exclusive, got %q", c.QuoteBook.WindowBoundary)
	}
	if c.QuoteBook.RefreshInterval < 0 {
		return fmt.Errorf("quotebook.refresh_interval must be non-negative")
	}
	switch c.QuoteBook.Source.Driver {
	case "csv":
		if c.QuoteBook.Source.Path == "" {
			return fmt.Errorf("quotebook.source.path is required for csv driver")
		}
	case "mysql":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for mysql driver")
		}
	default:
		return fmt.Errorf("unsupported quotebook.source.driver: %q", c.QuoteBook.Source.Driver)
	}
	if c.QuoteBook.Events.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when quotebook.events.enabled")
	}
	if c.RateLimit.Enabled && (c.RateLimit.QPS <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("ratelimit.qps and ratelimit.burst must be positive")
	}
	return nil
}

// RefreshEvery 周期重建间隔
func (c QuoteBookConfig) RefreshEvery() time.Duration {
	return time.Duration(c.RefreshInterval) * time.Second
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.name", "quotebook")
	v.SetDefault("server.environment", "dev")
	v.SetDefault("server.http.host", "0.0.0.0")
	v.SetDefault("server.http.port", 8080)
	v.SetDefault("server.http.read_timeout", 30)
	v.SetDefault("server.http.write_timeout", 30)
	v.SetDefault("server.grpc.host", "0.0.0.0")
	v.SetDefault("server.grpc.port", 50051)
	v.SetDefault("server.grpc.max_concurrent_streams", 1000)

	v.SetDefault("quotebook.result_limit", 5)
	v.SetDefault("quotebook.window_boundary", "inclusive")
	v.SetDefault("quotebook.default_symbol", "AAPL")
	v.SetDefault("quotebook.default_point_in_time", "2021-02-18T10:08:52.868Z")
	v.SetDefault("quotebook.refresh_interval", 0)
	v.SetDefault("quotebook.source.driver", "csv")
	v.SetDefault("quotebook.source.path", "data/quotes_2021-02-18.csv")
	v.SetDefault("quotebook.retry.max_attempts", 3)
	v.SetDefault("quotebook.retry.initial_interval", 200)
	v.SetDefault("quotebook.retry.max_interval", 5000)
	v.SetDefault("quotebook.events.enabled", false)
	v.SetDefault("quotebook.events.snapshot_topic", "quotebook.snapshot.rebuilt")
	v.SetDefault("quotebook.events.rebuild_topic", "quotebook.snapshot.rebuild")

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 300)
	v.SetDefault("database.log_enabled", false)
	v.SetDefault("database.slow_query_threshold", 1000)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.max_pool_size", 10)
	v.SetDefault("redis.conn_timeout", 5)
	v.SetDefault("redis.read_timeout", 3)
	v.SetDefault("redis.write_timeout", 3)

	v.SetDefault("kafka.group_id", "quotebook-group")
	v.SetDefault("kafka.session_timeout", 10)
	v.SetDefault("kafka.max_retries", 3)
	v.SetDefault("kafka.retry_backoff", 100)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stdout")
	v.SetDefault("logger.file_path", "logs/quotebook.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 10)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.with_caller", false)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9091)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("ratelimit.enabled", false)
	v.SetDefault("ratelimit.backend", "local")
	v.SetDefault("ratelimit.qps", 100)
	v.SetDefault("ratelimit.burst", 200)

	v.SetDefault("circuit_breaker.enabled", true)
	v.SetDefault("circuit_breaker.max_requests", 1)
	v.SetDefault("circuit_breaker.timeout", 30000)
	v.SetDefault("circuit_breaker.consecutive_failures", 5)
}
