package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env            string        `mapstructure:"ENV"`
	Port           string        `mapstructure:"PORT"`
	AdminKey       string        `mapstructure:"ADMIN_KEY"`
	CORSAllowed    string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`

	// Optional run ledger. Empty disables it.
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// Salesforce collaborator. Empty domain selects the mock fetcher.
	SFDomain        string `mapstructure:"SF_DOMAIN"`
	SFClientID      string `mapstructure:"SF_CLIENT_ID"`
	SFClientSecret  string `mapstructure:"SF_CLIENT_SECRET"`
	SFUsername      string `mapstructure:"SF_USERNAME"`
	SFPassword      string `mapstructure:"SF_PASSWORD"`
	SFSecurityToken string `mapstructure:"SF_SECURITY_TOKEN"`

	// LLM collaborator. Empty API key selects the mock completer.
	LLMBaseURL    string        `mapstructure:"LLM_BASE_URL"`
	LLMAPIKey     string        `mapstructure:"LLM_API_KEY"`
	LLMModel      string        `mapstructure:"LLM_MODEL"`
	LLMMaxTokens  int           `mapstructure:"LLM_MAX_TOKENS"`
	LLMTimeout    time.Duration `mapstructure:"LLM_TIMEOUT"`
	LLMMaxRetries int           `mapstructure:"LLM_MAX_RETRIES"`

	InsightsBatchSize   int `mapstructure:"INSIGHTS_BATCH_SIZE"`
	InsightsParallelism int `mapstructure:"INSIGHTS_PARALLELISM"`
}

func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("REQUEST_TIMEOUT", "60s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("LLM_MODEL", "gpt-4o-mini")
	v.SetDefault("LLM_MAX_TOKENS", 2048)
	v.SetDefault("LLM_TIMEOUT", "45s")
	v.SetDefault("LLM_MAX_RETRIES", 3)
	v.SetDefault("INSIGHTS_BATCH_SIZE", 50)
	v.SetDefault("INSIGHTS_PARALLELISM", 4)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
