// Package config 提供 TOML 配置加载、环境变量覆盖与校验
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/wyfcoding/runtracker/pkg/logger"
)

// Config 基础配置结构
type Config struct {
	// 服务信息
	Service ServiceConfig `mapstructure:"service"`
	// HTTP 服务配置
	HTTP HTTPConfig `mapstructure:"http"`
	// gRPC 服务配置（健康检查）
	GRPC GRPCConfig `mapstructure:"grpc"`
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
	// 序列配置
	Runs RunsConfig `mapstructure:"runs"`
}

// ServiceConfig 服务信息
type ServiceConfig struct {
	// 服务名称
	Name string `mapstructure:"name"`
	// 服务版本
	Version string `mapstructure:"version"`
	// 环境：dev, staging, prod
	Environment string `mapstructure:"environment"`
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

// Addr 监听地址
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GRPCConfig gRPC 服务配置
type GRPCConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
}

// Addr 监听地址
func (c GRPCConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RedisConfig Redis 配置，Host 为空时不启用
type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	MaxPoolSize  int    `mapstructure:"max_pool_size"`
	ConnTimeout  int    `mapstructure:"conn_timeout"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

// Enabled 是否配置了 Redis
func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

// KafkaConfig Kafka 配置，Brokers 为空时不启用
type KafkaConfig struct {
	Brokers        []string `mapstructure:"brokers"`
	GroupID        string   `mapstructure:"group_id"`
	SessionTimeout int      `mapstructure:"session_timeout"`
	MaxRetries     int      `mapstructure:"max_retries"`
	// 重试退避（毫秒）
	RetryBackoff int `mapstructure:"retry_backoff"`
}

// Enabled 是否配置了 Kafka
func (c KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

// RateLimitConfig 基于 Redis 的 HTTP 限流
type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Rate    int  `mapstructure:"rate"`
	// 周期（秒）
	Period int `mapstructure:"period"`
	Burst  int `mapstructure:"burst"`
}

// RunsConfig 序列相关配置
type RunsConfig struct {
	// 默认最小价格变动单位
	DefaultTickSize string `mapstructure:"default_tick_size"`
	// 查询结果缓存时间（秒），0 表示不缓存
	CacheTTL int `mapstructure:"cache_ttl"`
	// 命令消费 topic
	CommandTopic string `mapstructure:"command_topic"`
	// 领域事件 topic
	EventTopic string `mapstructure:"event_topic"`
	// 死信 topic
	DeadLetterTopic string `mapstructure:"dead_letter_topic"`
}

// TickSize 解析默认最小变动单位
func (c RunsConfig) TickSize() (decimal.Decimal, error) {
	return decimal.NewFromString(c.DefaultTickSize)
}

// Load 从 TOML 文件加载配置，文件必须存在，支持环境变量覆盖
func Load(configPath string) (*Config, error) {
	v := newViper(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return decode(v)
}

// LoadWithDefaults 从 TOML 文件加载配置，文件不存在时只使用默认值与环境变量
func LoadWithDefaults(configPath string) (*Config, error) {
	v := newViper(configPath)
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}
	return decode(v)
}

func newViper(configPath string) *viper.Viper {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	}
	v.SetConfigType("toml")

	// 环境变量：APP_HTTP_PORT 覆盖 http.port
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
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
	if c.Service.Name == "" {
		return fmt.Errorf("service.name is required")
	}
	if c.Service.Environment == "" {
		c.Service.Environment = "dev"
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTP.Port)
	}
	if c.GRPC.Enabled && (c.GRPC.Port <= 0 || c.GRPC.Port > 65535) {
		return fmt.Errorf("invalid gRPC port: %d", c.GRPC.Port)
	}
	tick, err := c.Runs.TickSize()
	if err != nil {
		return fmt.Errorf("invalid runs.default_tick_size %q: %w", c.Runs.DefaultTickSize, err)
	}
	if !tick.IsPositive() {
		return fmt.Errorf("runs.default_tick_size must be positive, got %s", tick)
	}
	if c.Runs.CacheTTL < 0 {
		return fmt.Errorf("runs.cache_ttl must not be negative")
	}
	if c.RateLimit.Enabled {
		if !c.Redis.Enabled() {
			return fmt.Errorf("ratelimit requires redis")
		}
		if c.RateLimit.Rate <= 0 || c.RateLimit.Period <= 0 {
			return fmt.Errorf("invalid ratelimit: rate=%d period=%d", c.RateLimit.Rate, c.RateLimit.Period)
		}
	}
	return nil
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("service.name", "runtracker")
	v.SetDefault("service.version", "dev")
	v.SetDefault("service.environment", "dev")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", 30)
	v.SetDefault("http.write_timeout", 30)

	v.SetDefault("grpc.enabled", true)
	v.SetDefault("grpc.host", "0.0.0.0")
	v.SetDefault("grpc.port", 50051)

	v.SetDefault("redis.host", "")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.max_pool_size", 10)
	v.SetDefault("redis.conn_timeout", 5)
	v.SetDefault("redis.read_timeout", 3)
	v.SetDefault("redis.write_timeout", 3)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.group_id", "runtracker")
	v.SetDefault("kafka.session_timeout", 10)
	v.SetDefault("kafka.max_retries", 3)
	v.SetDefault("kafka.retry_backoff", 100)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stdout")
	v.SetDefault("logger.file_path", "logs/runtracker.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 10)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.with_caller", false)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("ratelimit.enabled", false)
	v.SetDefault("ratelimit.rate", 100)
	v.SetDefault("ratelimit.period", 1)
	v.SetDefault("ratelimit.burst", 100)

	v.SetDefault("runs.default_tick_size", "0.01")
	v.SetDefault("runs.cache_ttl", 60)
	v.SetDefault("runs.command_topic", "runtracker.commands")
	v.SetDefault("runs.event_topic", "runtracker.events")
	v.SetDefault("runs.dead_letter_topic", "runtracker.commands.dlq")
}
