// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Log      LogConfig      `mapstructure:"log"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Quota    QuotaConfig    `mapstructure:"quota"`
	Chat     ChatConfig     `mapstructure:"chat"`
	Gemini   GeminiConfig   `mapstructure:"gemini"`
	Pricing  PricingConfig  `mapstructure:"pricing"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// MySQLConfig 存储 MySQL 数据库的配置。
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// JWTConfig 存储管理端 JWT 相关的配置。
type JWTConfig struct {
	Secret                 string `mapstructure:"secret"`
	AccessTokenExpireHours int    `mapstructure:"access_token_expire_hours"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// AdminConfig 存储启动时引导写入的管理员账号。
type AdminConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// QuotaConfig 存储各套餐的每日请求限额。
type QuotaConfig struct {
	FreeDailyLimit int `mapstructure:"free_daily_limit"`
	ProDailyLimit  int `mapstructure:"pro_daily_limit"`
}

// ChatConfig 存储对话编排相关的配置。
type ChatConfig struct {
	MaxHistory        int `mapstructure:"max_history"`
	MaxQuestionLength int `mapstructure:"max_question_length"`
	LowQuotaThreshold int `mapstructure:"low_quota_threshold"`
	ChunkLimit        int `mapstructure:"chunk_limit"`
}

// GeminiConfig 存储生成后端相关的配置。
type GeminiConfig struct {
	APIKey             string                 `mapstructure:"api_key"`
	BaseURL            string                 `mapstructure:"base_url"`
	Model              string                 `mapstructure:"model"`
	TimeoutSeconds     int                    `mapstructure:"timeout_seconds"`
	MaxRetries         int                    `mapstructure:"max_retries"`
	BaseBackoffSeconds int                    `mapstructure:"base_backoff_seconds"`
	MaxMessageLength   int                    `mapstructure:"max_message_length"`
	Personality        string                 `mapstructure:"personality"`
	Generation         GeminiGenerationConfig `mapstructure:"generation"`
}

// GeminiGenerationConfig 配置生成相关参数（可选）。
type GeminiGenerationConfig struct {
	Temperature     float64 `mapstructure:"temperature"`
	TopP            float64 `mapstructure:"top_p"`
	TopK            int     `mapstructure:"top_k"`
	MaxOutputTokens int     `mapstructure:"max_output_tokens"`
}

// PricingConfig 存储升级菜单展示用的价格（购买本身由管理员线下处理）。
type PricingConfig struct {
	Pro30     int `mapstructure:"pro_30"`
	Pro90     int `mapstructure:"pro_90"`
	Premium30 int `mapstructure:"premium_30"`
	Premium90 int `mapstructure:"premium_90"`
	VIP       int `mapstructure:"vip"`
}

// Timeout 返回单次后端调用的超时时间。
func (g GeminiConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSeconds) * time.Second
}

// BaseBackoff 返回首次重试前的退避时间。
func (g GeminiConfig) BaseBackoff() time.Duration {
	return time.Duration(g.BaseBackoffSeconds) * time.Second
}

// Init 初始化配置加载，从指定的路径读取 YAML 文件并解析到 Conf 变量中。
func Init(configPath string) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	// 未显式配置时的兜底默认值
	viper.SetDefault("quota.free_daily_limit", 10)
	viper.SetDefault("quota.pro_daily_limit", 20)
	viper.SetDefault("chat.max_history", 10)
	viper.SetDefault("chat.max_question_length", 2000)
	viper.SetDefault("chat.low_quota_threshold", 3)
	viper.SetDefault("chat.chunk_limit", 4096)
	viper.SetDefault("gemini.timeout_seconds", 30)
	viper.SetDefault("gemini.max_retries", 3)
	viper.SetDefault("gemini.base_backoff_seconds", 2)
	viper.SetDefault("gemini.max_message_length", 4000)

	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Errorf("读取配置文件失败: %w", err))
	}

	if err := viper.Unmarshal(&Conf); err != nil {
		panic(fmt.Errorf("无法将配置解析到结构体中: %w", err))
	}
}
