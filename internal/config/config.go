package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		OrchestratorPort   string
		HealthAgentPort    string
		InsuranceAgentPort string
		DoctorServerPort   string
		RateLimitPerMinute int
		AllowedOrigins     []string
	}
	Orchestrator struct {
		HealthAgentURL    string
		InsuranceAgentURL string
		MCPServerURL      string
		AgentTimeout      time.Duration
		ClassifierTimeout time.Duration
	}
	LLM struct {
		Provider    string
		APIKey      string
		Model       string
		BaseURL     string
		Region      string
		Temperature float64
		MaxTokens   int
	}
	Database struct {
		URL string
	}
	Redis struct {
		URL string
	}
	Cache struct {
		ClassificationTTL time.Duration
	}
	HealthAgent struct {
		DefaultState string
		MCPTimeout   time.Duration
	}
	Insurance struct {
		PolicyDir string
		TopK      int
	}
	Seed struct {
		PolicyURLs []string
	}
	LogLevel string
}

// Load reads config.yaml (optional), then the environment. Nested keys map to
// env names with "_" (e.g. LLM_MODEL); the legacy service variables are bound
// explicitly.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	bindLegacyEnv(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config

	cfg.Server.OrchestratorPort = v.GetString("server.orchestrator_port")
	cfg.Server.HealthAgentPort = v.GetString("server.health_agent_port")
	cfg.Server.InsuranceAgentPort = v.GetString("server.insurance_agent_port")
	cfg.Server.DoctorServerPort = v.GetString("server.doctor_server_port")
	cfg.Server.RateLimitPerMinute = v.GetInt("server.rate_limit_per_minute")
	cfg.Server.AllowedOrigins = splitList(v.GetStringSlice("server.allowed_origins"))

	cfg.Orchestrator.HealthAgentURL = strings.TrimRight(v.GetString("orchestrator.health_agent_url"), "/")
	cfg.Orchestrator.InsuranceAgentURL = v.GetString("orchestrator.insurance_agent_url")
	cfg.Orchestrator.MCPServerURL = strings.TrimRight(v.GetString("orchestrator.mcp_server_url"), "/")
	cfg.Orchestrator.AgentTimeout = v.GetDuration("orchestrator.agent_timeout")
	cfg.Orchestrator.ClassifierTimeout = v.GetDuration("orchestrator.classifier_timeout")

	cfg.LLM.Provider = strings.ToLower(v.GetString("llm.provider"))
	cfg.LLM.APIKey = v.GetString("llm.api_key")
	cfg.LLM.Model = v.GetString("llm.model")
	cfg.LLM.BaseURL = v.GetString("llm.base_url")
	cfg.LLM.Region = v.GetString("llm.region")
	cfg.LLM.Temperature = v.GetFloat64("llm.temperature")
	cfg.LLM.MaxTokens = v.GetInt("llm.max_tokens")

	cfg.Database.URL = v.GetString("database.url")
	cfg.Redis.URL = v.GetString("redis.url")
	cfg.Cache.ClassificationTTL = v.GetDuration("cache.classification_ttl")

	cfg.HealthAgent.DefaultState = strings.ToUpper(v.GetString("health_agent.default_state"))
	cfg.HealthAgent.MCPTimeout = v.GetDuration("health_agent.mcp_timeout")

	cfg.Insurance.PolicyDir = v.GetString("insurance.policy_dir")
	cfg.Insurance.TopK = v.GetInt("insurance.top_k")

	cfg.Seed.PolicyURLs = splitList(v.GetStringSlice("seed.policy_urls"))
	cfg.LogLevel = v.GetString("log_level")

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.orchestrator_port", "7500")
	v.SetDefault("server.health_agent_port", "7000")
	v.SetDefault("server.insurance_agent_port", "7001")
	v.SetDefault("server.doctor_server_port", "8333")
	v.SetDefault("server.rate_limit_per_minute", 60)
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("orchestrator.health_agent_url", "http://server:7000")
	v.SetDefault("orchestrator.insurance_agent_url", "ws://insurance-server:7001")
	v.SetDefault("orchestrator.mcp_server_url", "http://mcpserver:8333")
	v.SetDefault("orchestrator.agent_timeout", 30*time.Second)
	v.SetDefault("orchestrator.classifier_timeout", 15*time.Second)

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("llm.max_tokens", 512)
	v.SetDefault("llm.region", "us-east-1")

	v.SetDefault("database.url", "")
	v.SetDefault("redis.url", "")
	v.SetDefault("cache.classification_ttl", 10*time.Minute)

	v.SetDefault("health_agent.default_state", "GA")
	v.SetDefault("health_agent.mcp_timeout", 10*time.Second)

	v.SetDefault("insurance.policy_dir", "./policies")
	v.SetDefault("insurance.top_k", 4)

	v.SetDefault("seed.policy_urls", []string{})
	v.SetDefault("log_level", "info")
}

// bindLegacyEnv keeps the variable names used by the docker deployment working.
func bindLegacyEnv(v *viper.Viper) {
	v.BindEnv("llm.api_key", "LLM_API_KEY", "OPENAI_API_KEY")
	v.BindEnv("orchestrator.health_agent_url", "ORCHESTRATOR_HEALTH_AGENT_URL", "FASTAPI_SERVER_URL")
	v.BindEnv("orchestrator.insurance_agent_url", "ORCHESTRATOR_INSURANCE_AGENT_URL", "INSURANCE_SERVER_URL")
	v.BindEnv("orchestrator.mcp_server_url", "ORCHESTRATOR_MCP_SERVER_URL", "MCP_SERVER_URL")
	v.BindEnv("database.url", "DATABASE_URL")
	v.BindEnv("redis.url", "REDIS_URL")
	v.BindEnv("log_level", "LOG_LEVEL")
}

// splitList accepts both YAML lists and comma separated env values.
func splitList(items []string) []string {
	var out []string
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// ValidateLLM reports a provider that needs an API key but has none.
func (c *Config) ValidateLLM() error {
	switch c.LLM.Provider {
	case "none", "bedrock":
		return nil
	case "", "openai", "gemini":
		if c.LLM.APIKey == "" {
			return fmt.Errorf("an API key is required for llm provider %q (set OPENAI_API_KEY or LLM_API_KEY)", c.LLM.Provider)
		}
		return nil
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
}

// LLMEnabled reports whether a model should be constructed at all.
func (c *Config) LLMEnabled() bool {
	return c.ValidateLLM() == nil && c.LLM.Provider != "none"
}
