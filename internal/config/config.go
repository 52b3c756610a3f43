// Package config holds the askdb settings and loads them from viper (flags,
// ASKDB_* environment variables and askdb.yaml) or directly from YAML.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/askdb/askdb/internal/model"
)

// Config is the complete askdb configuration.
type Config struct {
	DataDir   string          `mapstructure:"data_dir" yaml:"data_dir"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	LLM       LLMConfig       `mapstructure:"llm" yaml:"llm"`
	Embedding EmbeddingConfig `mapstructure:"embedding" yaml:"embedding"`
	RAG       RAGConfig       `mapstructure:"rag" yaml:"rag"`
	Database  DatabaseConfig  `mapstructure:"database" yaml:"database"`
	Security  SecurityConfig  `mapstructure:"security" yaml:"security"`
	Prompt    PromptConfig    `mapstructure:"prompt" yaml:"prompt"`
	Auth      AuthConfig      `mapstructure:"auth" yaml:"auth"`
	MCP       MCPConfig       `mapstructure:"mcp" yaml:"mcp"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
}

// ServerConfig controls the HTTP server behavior.
type ServerConfig struct {
	Host               string        `mapstructure:"host" yaml:"host"`
	Port               int           `mapstructure:"port" yaml:"port"`
	CORSOrigins        []string      `mapstructure:"cors_origins" yaml:"cors_origins"`
	RateLimitPerMinute int           `mapstructure:"rate_limit_per_minute" yaml:"rate_limit_per_minute"`
	MaxBodySize        string        `mapstructure:"max_body_size" yaml:"max_body_size"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// LLMConfig points at the Ollama generation model.
type LLMConfig struct {
	BaseURL     string        `mapstructure:"base_url" yaml:"base_url"`
	Model       string        `mapstructure:"model" yaml:"model"`
	Temperature float64       `mapstructure:"temperature" yaml:"temperature"`
	NumPredict  int           `mapstructure:"num_predict" yaml:"num_predict"`
	NumCtx      int           `mapstructure:"num_ctx" yaml:"num_ctx"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// EmbeddingConfig selects the embedding engine.
type EmbeddingConfig struct {
	Provider       string `mapstructure:"provider" yaml:"provider"`
	OllamaEndpoint string `mapstructure:"ollama_endpoint" yaml:"ollama_endpoint"`
	OllamaModel    string `mapstructure:"ollama_model" yaml:"ollama_model"`
	GenAIAPIKey    string `mapstructure:"genai_api_key" yaml:"genai_api_key"`
	GenAIModel     string `mapstructure:"genai_model" yaml:"genai_model"`
	TaskType       string `mapstructure:"task_type" yaml:"task_type"`
}

// RAGConfig locates the schema corpus and the built index.
type RAGConfig struct {
	IndexDir  string  `mapstructure:"index_dir" yaml:"index_dir"`
	SchemaDir string  `mapstructure:"schema_dir" yaml:"schema_dir"`
	TopK      int     `mapstructure:"top_k" yaml:"top_k"`
	MinScore  float64 `mapstructure:"min_score" yaml:"min_score"`
}

// DatabaseConfig is the query database connection.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver" yaml:"driver"`
	DSN             string        `mapstructure:"dsn" yaml:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" yaml:"conn_max_idle_time"`
	QueryTimeout    time.Duration `mapstructure:"query_timeout" yaml:"query_timeout"`
}

// SecurityConfig bounds what a query may return.
type SecurityConfig struct {
	MaxResults int `mapstructure:"max_results" yaml:"max_results"`
}

// PromptConfig overrides the built-in generation rules.
type PromptConfig struct {
	RulesFile string `mapstructure:"rules_file" yaml:"rules_file"`
}

// AuthConfig gates the reviewer endpoints. An empty secret leaves them open.
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTExpiry time.Duration `mapstructure:"jwt_expiry" yaml:"jwt_expiry"`
}

// MCPConfig controls the MCP (Model Context Protocol) server.
type MCPConfig struct {
	Transport string `mapstructure:"transport" yaml:"transport"`
	Addr      string `mapstructure:"addr" yaml:"addr"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Default returns a Config pre-filled with the defaults.
func Default() *Config {
	pool := model.DefaultPoolConfig()
	return &Config{
		DataDir: "data",
		Server: ServerConfig{
			Host:               "0.0.0.0",
			Port:               5000,
			CORSOrigins:        []string{"*"},
			RateLimitPerMinute: 30,
			MaxBodySize:        "1MB",
			ShutdownTimeout:    30 * time.Second,
		},
		LLM: LLMConfig{
			BaseURL:     "http://localhost:11434",
			Model:       "qwen2.5-coder:7b",
			Temperature: 0.1,
			NumPredict:  800,
			NumCtx:      8192,
			Timeout:     120 * time.Second,
		},
		Embedding: EmbeddingConfig{
			Provider:       "ollama",
			OllamaEndpoint: "http://localhost:11434",
			OllamaModel:    "all-minilm",
			GenAIModel:     "gemini-embedding-001",
			TaskType:       "SEMANTIC_SIMILARITY",
		},
		RAG: RAGConfig{
			IndexDir:  "data/vectorstore",
			SchemaDir: "data/schema",
			TopK:      5,
			MinScore:  0.3,
		},
		Database: DatabaseConfig{
			Driver:          "mssql",
			MaxOpenConns:    pool.MaxOpenConns,
			MaxIdleConns:    pool.MaxIdleConns,
			ConnMaxLifetime: pool.ConnMaxLifetime,
			ConnMaxIdleTime: pool.ConnMaxIdleTime,
			QueryTimeout:    30 * time.Second,
		},
		Security: SecurityConfig{MaxResults: 1000},
		Auth:     AuthConfig{JWTExpiry: 24 * time.Hour},
		MCP:      MCPConfig{Transport: "stdio", Addr: ":8081"},
		Logging:  LoggingConfig{Level: "info", Format: "text"},
	}
}

// SetDefaults registers every key of Default with v. Viper only resolves
// environment variables for keys it knows about, so this must run before
// Load.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("data_dir", d.DataDir)

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.cors_origins", d.Server.CORSOrigins)
	v.SetDefault("server.rate_limit_per_minute", d.Server.RateLimitPerMinute)
	v.SetDefault("server.max_body_size", d.Server.MaxBodySize)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

	v.SetDefault("llm.base_url", d.LLM.BaseURL)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.temperature", d.LLM.Temperature)
	v.SetDefault("llm.num_predict", d.LLM.NumPredict)
	v.SetDefault("llm.num_ctx", d.LLM.NumCtx)
	v.SetDefault("llm.timeout", d.LLM.Timeout)

	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.ollama_endpoint", d.Embedding.OllamaEndpoint)
	v.SetDefault("embedding.ollama_model", d.Embedding.OllamaModel)
	v.SetDefault("embedding.genai_api_key", d.Embedding.GenAIAPIKey)
	v.SetDefault("embedding.genai_model", d.Embedding.GenAIModel)
	v.SetDefault("embedding.task_type", d.Embedding.TaskType)

	v.SetDefault("rag.index_dir", d.RAG.IndexDir)
	v.SetDefault("rag.schema_dir", d.RAG.SchemaDir)
	v.SetDefault("rag.top_k", d.RAG.TopK)
	v.SetDefault("rag.min_score", d.RAG.MinScore)

	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.dsn", d.Database.DSN)
	v.SetDefault("database.max_open_conns", d.Database.MaxOpenConns)
	v.SetDefault("database.max_idle_conns", d.Database.MaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", d.Database.ConnMaxLifetime)
	v.SetDefault("database.conn_max_idle_time", d.Database.ConnMaxIdleTime)
	v.SetDefault("database.query_timeout", d.Database.QueryTimeout)

	v.SetDefault("security.max_results", d.Security.MaxResults)
	v.SetDefault("prompt.rules_file", d.Prompt.RulesFile)
	v.SetDefault("auth.jwt_secret", d.Auth.JWTSecret)
	v.SetDefault("auth.jwt_expiry", d.Auth.JWTExpiry)
	v.SetDefault("mcp.transport", d.MCP.Transport)
	v.SetDefault("mcp.addr", d.MCP.Addr)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}

// Load decodes the effective settings held by v and validates them.
func Load(v *viper.Viper) (*Config, error) {
	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	var problems []string
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.RateLimitPerMinute < 0 {
		problems = append(problems, "server.rate_limit_per_minute must not be negative")
	}
	if _, err := ParseSize(c.Server.MaxBodySize); err != nil {
		problems = append(problems, "server.max_body_size: "+err.Error())
	}
	if c.RAG.TopK <= 0 {
		problems = append(problems, "rag.top_k must be positive")
	}
	if c.RAG.MinScore < -1 || c.RAG.MinScore > 1 {
		problems = append(problems, "rag.min_score must be within [-1, 1]")
	}
	if c.Security.MaxResults <= 0 {
		problems = append(problems, "security.max_results must be positive")
	}
	switch c.Embedding.Provider {
	case "", "ollama", "genai":
	default:
		problems = append(problems, fmt.Sprintf("embedding.provider %q is not one of ollama, genai", c.Embedding.Provider))
	}
	switch c.MCP.Transport {
	case "stdio", "http":
	default:
		problems = append(problems, fmt.Sprintf("mcp.transport %q is not one of stdio, http", c.MCP.Transport))
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q is not one of text, json", c.Logging.Format))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// ParseSize parses a byte size such as "512", "64KB" or "10MB".
func ParseSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	mult := int64(1)
	for _, u := range []struct {
		suffix string
		mult   int64
	}{{"GB", 1 << 30}, {"MB", 1 << 20}, {"KB", 1 << 10}, {"B", 1}} {
		if strings.HasSuffix(s, u.suffix) {
			s = strings.TrimSpace(strings.TrimSuffix(s, u.suffix))
			mult = u.mult
			break
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	return n * mult, nil
}
