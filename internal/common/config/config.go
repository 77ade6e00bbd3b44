package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// Config 应用配置
type Config struct {
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database"`
	Storage   StorageConfig   `json:"storage"`
	Auth      AuthConfig      `json:"auth"`
	RateLimit RateLimitConfig `json:"rate_limit"`
	Consul    ConsulConfig    `json:"consul"`
	Jaeger    JaegerConfig    `json:"jaeger"`
	Log       LogConfig       `json:"log"`
}

// ServerConfig 服务配置
type ServerConfig struct {
	Name     string `json:"name"`      // 服务名称
	Host     string `json:"host"`      // 服务地址
	HTTPPort int    `json:"http_port"` // HTTP端口
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver   string `json:"driver"`   // 数据库驱动
	Host     string `json:"host"`     // 数据库地址
	Port     int    `json:"port"`     // 数据库端口
	User     string `json:"user"`     // 用户名
	Password string `json:"password"` // 密码
	Database string `json:"database"` // 数据库名
	MaxIdle  int    `json:"max_idle"` // 最大空闲连接
	MaxOpen  int    `json:"max_open"` // 最大打开连接
}

// StorageConfig 对象存储配置（车辆图片）
type StorageConfig struct {
	Type            string `json:"type"`              // s3 / filesystem / memory
	Bucket          string `json:"bucket"`            // S3 bucket
	Region          string `json:"region"`            // S3 region
	Endpoint        string `json:"endpoint"`          // 自定义 S3 endpoint（MinIO 等），可为空
	AccessKeyID     string `json:"access_key_id"`     // 静态凭证；为空时走默认凭证链
	SecretAccessKey string `json:"secret_access_key"` //
	PublicBaseURL   string `json:"public_base_url"`   // 对外可访问的 URL 前缀
	FSRoot          string `json:"fs_root"`           // filesystem 类型的根目录
}

// AuthConfig 鉴权配置
type AuthConfig struct {
	Enabled       bool     `json:"enabled"`        // 是否开启鉴权
	JWTSecret     string   `json:"jwt_secret"`     // HS256 密钥
	Issuer        string   `json:"issuer"`         // iss 校验，空则不校验
	Audience      string   `json:"audience"`       // aud 校验，空则不校验
	TokenTTLMin   int      `json:"token_ttl_min"`  // access token 有效期（分钟）
	PublicPaths   []string `json:"public_paths"`   // 无需鉴权的路径（精确匹配）
	LoginPath     string   `json:"login_path"`     // 未登录页面请求重定向目标
	SeedGuest     bool     `json:"seed_guest"`     // 启动时确保 guest 账号存在
	GuestEmail    string   `json:"guest_email"`    // 固定 guest 账号（普通数据行，无特殊逻辑）
	GuestPassword string   `json:"guest_password"` //
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled    bool  `json:"enabled"`     // 是否开启限流
	Capacity   int64 `json:"capacity"`    // 令牌桶容量
	RefillRate int64 `json:"refill_rate"` // 每秒补充令牌数
}

// ConsulConfig Consul配置
type ConsulConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// JaegerConfig Jaeger配置
type JaegerConfig struct {
	Endpoint string  `json:"endpoint"`
	Sampler  float64 `json:"sampler"` // 采样率 0.0-1.0
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
	Output string `json:"output"` // stdout, file
	Path   string `json:"path"`   // 日志文件路径
}

// LoadConfig 加载配置。配置句柄由调用方持有并向下传递，不做包级缓存。
func LoadConfig(configPath string) (*Config, error) {
	// 如果配置文件不存在，使用默认配置
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		logrus.Warnf("Config file not found: %s, using default config", configPath)
		return defaultConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// defaultConfig 默认配置（开发环境）
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Name:     "inventory-service",
			Host:     "0.0.0.0",
			HTTPPort: 8080,
		},
		Database: DatabaseConfig{
			Driver:   "mysql",
			Host:     "localhost",
			Port:     3306,
			User:     "root",
			Password: "root",
			Database: "inventoryapp",
			MaxIdle:  10,
			MaxOpen:  100,
		},
		Storage: StorageConfig{
			Type:          "filesystem",
			FSRoot:        "data/uploads",
			PublicBaseURL: "http://localhost:8080/uploads",
		},
		Auth: AuthConfig{
			Enabled:     true,
			JWTSecret:   "dev-secret-change-me",
			Issuer:      "inventoryapp",
			Audience:    "inventoryapp",
			TokenTTLMin: 24 * 60,
			PublicPaths: []string{"/healthz", "/login", "/api/login"},
			LoginPath:   "/login",
			SeedGuest:   true,
			// 演示用的固定 guest 账号；线上请在配置里覆盖或关闭 seed_guest。
			GuestEmail:    "guest@inventoryapp.com",
			GuestPassword: "GuestViewOnly2024!",
		},
		RateLimit: RateLimitConfig{
			Enabled:    true,
			Capacity:   100,
			RefillRate: 50,
		},
		Consul: ConsulConfig{
			Host: "localhost",
			Port: 8500,
		},
		Jaeger: JaegerConfig{
			Endpoint: "http://localhost:14268/api/traces",
			Sampler:  1.0,
		},
		Log: LogConfig{
			Level:  "debug",
			Format: "text",
			Output: "stdout",
			Path:   "logs/app.log",
		},
	}
}
