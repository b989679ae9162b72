// Package config 加载 stockdesk 的运行配置。
//
// 配置优先级: 默认值 -> YAML 文件 -> 环境变量（.env 由 godotenv 在 main 中预先加载）。
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 是 stockdesk 的完整配置结构
type Config struct {
	LLM          LLMConfig          `yaml:"llm"`
	Checkpoint   CheckpointConfig   `yaml:"checkpoint"`
	Conversation ConversationConfig `yaml:"conversation"`
	Redis        RedisConfig        `yaml:"redis"`
	Log          LogConfig          `yaml:"log"`
	Graph        GraphConfig        `yaml:"graph"`
	Tracing      TracingConfig      `yaml:"tracing"`
	UI           UIConfig           `yaml:"ui"`
}

// LLMConfig 聊天模型配置
type LLMConfig struct {
	// Provider: openai, gemini
	Provider string `yaml:"provider"`
	APIKey   string `yaml:"api_key"`
	// BaseURL 为空时使用 OpenAI 官方地址
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// CheckpointConfig 图执行检查点存储配置
type CheckpointConfig struct {
	// Backend: memory, sqlite, redis
	Backend    string        `yaml:"backend"`
	SQLitePath string        `yaml:"sqlite_path"`
	TTL        time.Duration `yaml:"ttl"`
}

// ConversationConfig 对话线程存储配置
type ConversationConfig struct {
	// Backend: memory, redis
	Backend         string        `yaml:"backend"`
	MaxMessages     int           `yaml:"max_messages"`
	MaxToolResponse int           `yaml:"max_tool_response"`
	TTL             time.Duration `yaml:"ttl"`
}

// RedisConfig Redis 连接配置
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	PoolSize  int    `yaml:"pool_size"`
	KeyPrefix string `yaml:"key_prefix"`
}

// LogConfig 日志配置
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `yaml:"level"`
	// Format: console, json
	Format      string   `yaml:"format"`
	OutputPaths []string `yaml:"output_paths"`
}

// GraphConfig 图编排配置
type GraphConfig struct {
	Name        string `yaml:"name"`
	MaxRunSteps int    `yaml:"max_run_steps"`
	// MermaidPath 为空时不导出流程图
	MermaidPath string `yaml:"mermaid_path"`
}

// TracingConfig CozeLoop 追踪配置，两项都设置时才启用
type TracingConfig struct {
	CozeLoopAPIToken    string `yaml:"cozeloop_api_token"`
	CozeLoopWorkspaceID string `yaml:"cozeloop_workspace_id"`
}

// UIConfig 终端交互配置
type UIConfig struct {
	// Prompt: tui, line
	Prompt   string `yaml:"prompt"`
	Markdown bool   `yaml:"markdown"`
}

// Enabled reports whether CozeLoop tracing credentials are present.
func (c TracingConfig) Enabled() bool {
	return c.CozeLoopAPIToken != "" && c.CozeLoopWorkspaceID != ""
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider: "openai",
			Model:    "gpt-4.1-nano",
		},
		Checkpoint: CheckpointConfig{
			Backend:    "memory",
			SQLitePath: "./data/checkpoints.db",
			TTL:        24 * time.Hour,
		},
		Conversation: ConversationConfig{
			Backend:         "memory",
			MaxMessages:     40,
			MaxToolResponse: 2000,
			TTL:             24 * time.Hour,
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			PoolSize:  10,
			KeyPrefix: "stockdesk:",
		},
		Log: LogConfig{
			Level:       "info",
			Format:      "console",
			OutputPaths: []string{"stderr"},
		},
		Graph: GraphConfig{
			Name:        "stock_hitl",
			MaxRunSteps: 25,
			MermaidPath: "graph.mmd",
		},
		UI: UIConfig{
			Prompt:   "tui",
			Markdown: true,
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file at path
// and environment variables, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv 用环境变量覆盖配置，变量名沿用 .env 中的约定
func (c *Config) applyEnv() {
	c.LLM.Provider = getEnvString("LLM_PROVIDER", c.LLM.Provider)
	switch strings.ToLower(c.LLM.Provider) {
	case "gemini":
		c.LLM.APIKey = getEnvString("GEMINI_API_KEY", c.LLM.APIKey)
		c.LLM.Model = getEnvString("GEMINI_MODEL", c.LLM.Model)
	default:
		c.LLM.APIKey = getEnvString("OPENAI_API_KEY", c.LLM.APIKey)
		c.LLM.APIKey = getEnvString("API_KEY", c.LLM.APIKey)
		c.LLM.BaseURL = getEnvString("BASE_URL", c.LLM.BaseURL)
		c.LLM.Model = getEnvString("MODEL", c.LLM.Model)
	}

	c.Checkpoint.Backend = getEnvString("CHECKPOINT_BACKEND", c.Checkpoint.Backend)
	c.Checkpoint.SQLitePath = getEnvString("SQLITE_PATH", c.Checkpoint.SQLitePath)
	c.Conversation.Backend = getEnvString("CONVERSATION_BACKEND", c.Conversation.Backend)

	c.Redis.Addr = getEnvString("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnvString("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvInt("REDIS_DB", c.Redis.DB)
	c.Redis.PoolSize = getEnvInt("REDIS_POOL_SIZE", c.Redis.PoolSize)

	c.Log.Level = getEnvString("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnvString("LOG_FORMAT", c.Log.Format)

	c.Tracing.CozeLoopAPIToken = getEnvString("COZE_LOOP_API_TOKEN", c.Tracing.CozeLoopAPIToken)
	c.Tracing.CozeLoopWorkspaceID = getEnvString("COZELOOP_WORKSPACE_ID", c.Tracing.CozeLoopWorkspaceID)
}

// Validate checks enumerated settings and limits.
func (c *Config) Validate() error {
	var errs []error

	switch c.LLM.Provider {
	case "openai", "gemini":
	default:
		errs = append(errs, fmt.Errorf("unknown llm provider %q", c.LLM.Provider))
	}
	switch c.Checkpoint.Backend {
	case "memory", "sqlite", "redis":
	default:
		errs = append(errs, fmt.Errorf("unknown checkpoint backend %q", c.Checkpoint.Backend))
	}
	if c.Checkpoint.Backend == "sqlite" && c.Checkpoint.SQLitePath == "" {
		errs = append(errs, errors.New("checkpoint.sqlite_path is required for the sqlite backend"))
	}
	switch c.Conversation.Backend {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("unknown conversation backend %q", c.Conversation.Backend))
	}
	switch c.UI.Prompt {
	case "tui", "line":
	default:
		errs = append(errs, fmt.Errorf("unknown ui prompt %q", c.UI.Prompt))
	}
	if c.Graph.MaxRunSteps <= 0 {
		errs = append(errs, errors.New("graph.max_run_steps must be positive"))
	}

	return errors.Join(errs...)
}

// UsesRedis reports whether any store needs a Redis connection.
func (c *Config) UsesRedis() bool {
	return c.Checkpoint.Backend == "redis" || c.Conversation.Backend == "redis"
}

// getEnvString reads a string from environment variable
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvInt reads an int from environment variable
func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}
