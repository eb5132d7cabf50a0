package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// Config 应用配置
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Consul   ConsulConfig   `json:"consul"`
	Jaeger   JaegerConfig   `json:"jaeger"`
	Log      LogConfig      `json:"log"`
	Auth     AuthConfig     `json:"auth"`
	Remote   RemoteConfig   `json:"remote"`
	Audit    AuditConfig    `json:"audit"`
	Import   ImportConfig   `json:"import"`
}

// ServerConfig 服务配置
type ServerConfig struct {
	Name     string `json:"name"`      // 服务名称
	Host     string `json:"host"`      // 服务地址
	HTTPPort int    `json:"http_port"` // HTTP端口
}

// DatabaseConfig 本地持久化缓存所用 MySQL 配置
type DatabaseConfig struct {
	Enabled  bool   `json:"enabled"`  // 关闭时退化为纯内存缓存
	Host     string `json:"host"`     // 数据库地址
	Port     int    `json:"port"`     // 数据库端口
	User     string `json:"user"`     // 用户名
	Password string `json:"password"` // 密码
	Database string `json:"database"` // 数据库名
	MaxIdle  int    `json:"max_idle"` // 最大空闲连接
	MaxOpen  int    `json:"max_open"` // 最大打开连接
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
	Driver string `json:"driver"` // logrus, zap
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
	Output string `json:"output"` // stdout, file
	Path   string `json:"path"`   // 日志文件路径
}

// AuthConfig 会话令牌（HS256 JWT）配置
type AuthConfig struct {
	Enabled     bool     `json:"enabled"`
	JWTSecret   string   `json:"jwt_secret"`
	Issuer      string   `json:"issuer"`
	Audience    string   `json:"audience"`
	PublicPaths []string `json:"public_paths"` // 免鉴权路径（/healthz 等）
}

// RemoteConfig 远端持久化 API（事实源）配置。
// ConsulService 非空时优先从 Consul catalog 解析地址，BaseURL 作为兜底。
type RemoteConfig struct {
	BaseURL        string `json:"base_url"`
	ConsulService  string `json:"consul_service"`
	TimeoutSeconds int    `json:"timeout_seconds"` // 单次调用超时；超时即终态失败，不重试
	BreakerMaxFail int    `json:"breaker_max_fail"`
	BreakerResetMS int    `json:"breaker_reset_ms"`
}

// AuditConfig 审计接收端配置
type AuditConfig struct {
	Endpoint       string `json:"endpoint"`        // 为空则只打本地日志
	TimeoutSeconds int    `json:"timeout_seconds"` // 投递超时
	RatePerSecond  int64  `json:"rate_per_second"` // 令牌桶速率（防止刷爆接收端）
	Burst          int64  `json:"burst"`
}

// ImportConfig 批量导入配置
type ImportConfig struct {
	MaxUploadsPerMinute int `json:"max_uploads_per_minute"` // 预览上传滑动窗口限制
}

var (
	globalConfig *Config
	configOnce   sync.Once
)

// LoadConfig 加载配置
func LoadConfig(configPath string) (*Config, error) {
	var err error
	configOnce.Do(func() {
		globalConfig = &Config{}
		// 如果配置文件不存在，使用默认配置
		if _, err = os.Stat(configPath); os.IsNotExist(err) {
			logrus.Warnf("Config file not found: %s, using default config", configPath)
			globalConfig = defaultConfig()
			err = nil
			return
		}

		data, readErr := os.ReadFile(configPath)
		if readErr != nil {
			err = fmt.Errorf("failed to read config file: %w", readErr)
			return
		}

		if unmarshalErr := json.Unmarshal(data, globalConfig); unmarshalErr != nil {
			err = fmt.Errorf("failed to parse config file: %w", unmarshalErr)
			return
		}
	})

	if err != nil {
		return nil, err
	}

	return globalConfig, nil
}

// GetConfig 获取全局配置
func GetConfig() *Config {
	if globalConfig == nil {
		return defaultConfig()
	}
	return globalConfig
}

// defaultConfig 默认配置（开发环境）
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Name:     "console-service",
			Host:     "0.0.0.0",
			HTTPPort: 8080,
		},
		Database: DatabaseConfig{
			Enabled:  false,
			Host:     "localhost",
			Port:     3306,
			User:     "root",
			Password: "root",
			Database: "tallerdrive",
			MaxIdle:  10,
			MaxOpen:  100,
		},
		Consul: ConsulConfig{
			Host: "localhost",
			Port: 8500,
		},
		Jaeger: JaegerConfig{
			Endpoint: "localhost:6831",
			Sampler:  1.0,
		},
		Log: LogConfig{
			Driver: "logrus",
			Level:  "debug",
			Format: "text",
			Output: "stdout",
			Path:   "logs/app.log",
		},
		Auth: AuthConfig{
			Enabled:     false,
			PublicPaths: []string{"/healthz"},
		},
		Remote: RemoteConfig{
			BaseURL:        "http://localhost:9090",
			TimeoutSeconds: 10,
			BreakerMaxFail: 5,
			BreakerResetMS: 10_000,
		},
		Audit: AuditConfig{
			TimeoutSeconds: 5,
			RatePerSecond:  20,
			Burst:          50,
		},
		Import: ImportConfig{
			MaxUploadsPerMinute: 6,
		},
	}
}
