package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
	Admin     AdminConfig     `mapstructure:"admin"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Mail      MailConfig      `mapstructure:"mail"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Site      SiteConfig      `mapstructure:"site"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Intake    IntakeConfig    `mapstructure:"intake"`
	Cache     CacheConfig     `mapstructure:"cache"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // debug, release, test
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	EnableSwagger   bool          `mapstructure:"enable_swagger"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // postgres, sqlite
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	LogLevel        string        `mapstructure:"log_level"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// AdminConfig 管理后台账号（密码为 bcrypt 哈希）
type AdminConfig struct {
	Username     string `mapstructure:"username"`
	PasswordHash string `mapstructure:"password_hash"`
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type MailConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Host       string        `mapstructure:"host"`
	Port       int           `mapstructure:"port"`
	Username   string        `mapstructure:"username"`
	Password   string        `mapstructure:"password"`
	UseTLS     bool          `mapstructure:"use_tls"`
	From       string        `mapstructure:"from"`
	AdminEmail string        `mapstructure:"admin_email"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type StorageConfig struct {
	Backend string   `mapstructure:"backend"` // fs, s3
	FS      FSConfig `mapstructure:"fs"`
	S3      S3Config `mapstructure:"s3"`
}

type FSConfig struct {
	BaseDir string `mapstructure:"base_dir"`
}

type S3Config struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

// SiteConfig 站点元信息，替代模板全局上下文
type SiteConfig struct {
	Title       string `mapstructure:"title"`
	Description string `mapstructure:"description"`
	Keywords    string `mapstructure:"keywords"`
	Author      string `mapstructure:"author"`
	Image       string `mapstructure:"image"`
	URL         string `mapstructure:"url"`
}

type SentryConfig struct {
	DSN              string  `mapstructure:"dsn"`
	Environment      string  `mapstructure:"environment"`
	TracesSampleRate float64 `mapstructure:"traces_sample_rate"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	Endpoint    string  `mapstructure:"endpoint"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// RateLimitConfig 表单提交接口的每 IP 限流
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"`
	Burst   int     `mapstructure:"burst"`
}

type IntakeConfig struct {
	MaxUploadBytes     int64    `mapstructure:"max_upload_bytes"`
	DisposableDomains  []string `mapstructure:"disposable_domains"`
	MinMessageLength   int      `mapstructure:"min_message_length"`
	AllowedResumeTypes []string `mapstructure:"allowed_resume_types"`
}

type CacheConfig struct {
	HomeTTL       time.Duration `mapstructure:"home_ttl"`
	CategoriesTTL time.Duration `mapstructure:"categories_ttl"`
	PageTTL       time.Duration `mapstructure:"page_ttl"`
}

// Load 读取配置文件与环境变量（前缀 EIP_）
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("EIP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// 没有配置文件时只使用默认值和环境变量
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验必要配置项
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	switch c.Storage.Backend {
	case "fs", "s3":
	default:
		return fmt.Errorf("unsupported storage backend %q", c.Storage.Backend)
	}
	if c.Server.Mode == "release" && c.JWT.Secret == "change-me" {
		return fmt.Errorf("jwt.secret must be set in release mode")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.enable_swagger", true)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "eip.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.prefix", "eip:")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", true)

	v.SetDefault("admin.username", "admin")
	v.SetDefault("jwt.secret", "change-me")
	v.SetDefault("jwt.issuer", "eip-site")
	v.SetDefault("jwt.ttl", 12*time.Hour)

	v.SetDefault("mail.enabled", false)
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.use_tls", true)
	v.SetDefault("mail.from", "noreply@eipethiopia.org")
	v.SetDefault("mail.admin_email", "info@eipethiopia.org")
	v.SetDefault("mail.timeout", 10*time.Second)

	v.SetDefault("storage.backend", "fs")
	v.SetDefault("storage.fs.base_dir", "media")
	v.SetDefault("storage.s3.region", "us-east-1")

	v.SetDefault("site.title", "EIP Ethiopia")
	v.SetDefault("site.description", "Empowering Ethiopian communities through sustainable development initiatives")
	v.SetDefault("site.keywords", "EIP Ethiopia, non-profit, development, Ethiopia, charity, community development, sustainable development")
	v.SetDefault("site.author", "EIP Ethiopia")
	v.SetDefault("site.image", "images/og-image.jpg")
	v.SetDefault("site.url", "http://localhost:8080")

	v.SetDefault("sentry.environment", "development")
	v.SetDefault("sentry.traces_sample_rate", 0.0)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "eip-site")
	v.SetDefault("tracing.endpoint", "localhost:4318")
	v.SetDefault("tracing.insecure", true)
	v.SetDefault("tracing.sample_ratio", 1.0)

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.rps", 0.5)
	v.SetDefault("ratelimit.burst", 5)

	v.SetDefault("intake.max_upload_bytes", 5*1024*1024)
	v.SetDefault("intake.min_message_length", 10)
	v.SetDefault("intake.disposable_domains", []string{
		"tempmail.com", "throwaway.com", "mailinator.com",
		"guerrillamail.com", "10minutemail.com", "yopmail.com",
	})
	v.SetDefault("intake.allowed_resume_types", []string{".pdf", ".doc", ".docx"})

	v.SetDefault("cache.home_ttl", 15*time.Minute)
	v.SetDefault("cache.categories_ttl", time.Hour)
	v.SetDefault("cache.page_ttl", 5*time.Minute)
}
