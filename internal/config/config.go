package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ==================== 配置结构 ====================

// Config 全局配置
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	AI        AIConfig
	Storage   StorageConfig
	Retention RetentionConfig
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Port string
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string

	MaxIdleConns int
	MaxOpenConns int
	LogSQL       bool
}

// DSN 拼接 Postgres 连接串
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode)
}

// JWTConfig 鉴权配置
type JWTConfig struct {
	SecretKey string
	TokenTTL  time.Duration // 原型里会话有效期为 7 天
	Issuer    string
}

// AIConfig 生成服务配置
type AIConfig struct {
	APIKey         string
	Models         []string // 按优先级排序的模型列表
	RelayURL       string   // 中转端点，留空则直连
	ProxyURL       string   // 可选的出口代理
	AttemptTimeout time.Duration
	Temperature    float32
}

// StorageConfig 媒体归档配置（可选功能）
type StorageConfig struct {
	Provider  string // "s3" 或留空禁用
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	CDNDomain string
	BasePath  string
}

// Enabled 是否启用媒体归档
func (c StorageConfig) Enabled() bool {
	return c.Provider != ""
}

// RetentionConfig 日志保留策略
type RetentionConfig struct {
	LogDays int
}

// ==================== 加载 ====================

// defaultModels 模型回退顺序：先快再强
var defaultModels = []string{"gemini-2.0-flash", "gemini-1.5-flash", "gemini-1.5-pro"}

// Load 加载配置，.env 文件不存在时直接读环境变量
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("未找到 .env 文件，使用环境变量")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "douyin_copy"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),

			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
			LogSQL:       getEnvAsBool("DB_LOG_SQL", false),
		},
		JWT: JWTConfig{
			SecretKey: getEnv("JWT_SECRET", "douyin-copy-secret-change-in-production"),
			TokenTTL:  getEnvAsDuration("JWT_TTL", 7*24*time.Hour),
			Issuer:    getEnv("JWT_ISSUER", "douyin-copy"),
		},
		AI: AIConfig{
			APIKey:         getEnv("GEMINI_API_KEY", ""),
			Models:         getEnvAsList("GEMINI_MODELS", defaultModels),
			RelayURL:       getEnv("RELAY_URL", ""),
			ProxyURL:       getEnv("AI_PROXY_URL", ""),
			AttemptTimeout: getEnvAsDuration("GEN_ATTEMPT_TIMEOUT", 60*time.Second),
			Temperature:    0.7,
		},
		Storage: StorageConfig{
			Provider:  getEnv("STORAGE_PROVIDER", ""),
			Bucket:    getEnv("STORAGE_BUCKET", ""),
			Region:    getEnv("STORAGE_REGION", "us-east-1"),
			AccessKey: getEnv("STORAGE_ACCESS_KEY", ""),
			SecretKey: getEnv("STORAGE_SECRET_KEY", ""),
			CDNDomain: getEnv("STORAGE_CDN_DOMAIN", ""),
			BasePath:  getEnv("STORAGE_BASE_PATH", "media"),
		},
		Retention: RetentionConfig{
			LogDays: getEnvAsInt("LOG_RETENTION_DAYS", 90),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 配置校验：凭证缺失属于致命配置错误，启动即失败
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT 不能为空")
	}
	if c.AI.APIKey == "" && c.AI.RelayURL == "" {
		return fmt.Errorf("GEMINI_API_KEY 与 RELAY_URL 至少需要配置一个")
	}
	if len(c.AI.Models) == 0 {
		return fmt.Errorf("GEMINI_MODELS 不能为空")
	}
	if c.Storage.Enabled() && c.Storage.Bucket == "" {
		return fmt.Errorf("启用媒体归档时 STORAGE_BUCKET 不能为空")
	}
	return nil
}

// ==================== 环境变量工具 ====================

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvAsList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if s := strings.TrimSpace(item); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
