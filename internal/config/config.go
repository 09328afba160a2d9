package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	DatabaseURL string   `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32    `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	// Upload bounds.
	MaxUploadMB int `mapstructure:"MAX_UPLOAD_MB"`

	// OCR backend (pdf/jpg/png extraction). Disabled deployments still
	// accept plain-text documents.
	OCREnabled bool   `mapstructure:"OCR_ENABLED"`
	OCRURL     string `mapstructure:"OCR_URL"`

	// NER model backends. The general tagger covers the broad clinical
	// vocabulary; the biomedical tagger specializes in diseases and
	// chemicals. Both are optional; the entity stage skips when neither
	// is reachable.
	NERGeneralURL    string `mapstructure:"NER_GENERAL_URL"`
	NERBiomedicalURL string `mapstructure:"NER_BIOMEDICAL_URL"`

	// Ontology linking.
	LinkingEnabled          bool    `mapstructure:"LINKING_ENABLED"`
	EmbeddingURL            string  `mapstructure:"EMBEDDING_URL"`
	EmbeddingModel          string  `mapstructure:"EMBEDDING_MODEL"`
	LinkConditionThreshold  float64 `mapstructure:"LINK_CONDITION_THRESHOLD"`
	LinkMedicationThreshold float64 `mapstructure:"LINK_MEDICATION_THRESHOLD"`

	// Optional LLM layer (narrative enhancement, flag rationale).
	LLMEnabled bool          `mapstructure:"LLM_ENABLED"`
	LLMURL     string        `mapstructure:"LLM_URL"`
	LLMModel   string        `mapstructure:"LLM_MODEL"`
	LLMAPIKey  string        `mapstructure:"LLM_API_KEY"`
	LLMTimeout time.Duration `mapstructure:"LLM_TIMEOUT"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("MAX_UPLOAD_MB", 16)
	v.SetDefault("OCR_ENABLED", true)
	v.SetDefault("LINKING_ENABLED", true)
	v.SetDefault("LINK_CONDITION_THRESHOLD", 0.80)
	v.SetDefault("LINK_MEDICATION_THRESHOLD", 0.85)
	v.SetDefault("LLM_ENABLED", false)
	v.SetDefault("LLM_TIMEOUT", 180*time.Second)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("MAX_UPLOAD_MB")
	v.BindEnv("OCR_ENABLED")
	v.BindEnv("OCR_URL")
	v.BindEnv("NER_GENERAL_URL")
	v.BindEnv("NER_BIOMEDICAL_URL")
	v.BindEnv("LINKING_ENABLED")
	v.BindEnv("EMBEDDING_URL")
	v.BindEnv("EMBEDDING_MODEL")
	v.BindEnv("LINK_CONDITION_THRESHOLD")
	v.BindEnv("LINK_MEDICATION_THRESHOLD")
	v.BindEnv("LLM_ENABLED")
	v.BindEnv("LLM_URL")
	v.BindEnv("LLM_MODEL")
	v.BindEnv("LLM_API_KEY")
	v.BindEnv("LLM_TIMEOUT")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.OCREnabled && cfg.OCRURL == "" {
		log.Println("WARNING: OCR_ENABLED is set but OCR_URL is empty; image and PDF uploads will fail extraction.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is internally consistent. Optional
// stages may be disabled, but an enabled stage must name its backend so a
// misconfigured deployment fails at startup instead of degrading every run.
func (c *Config) Validate() error {
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("MAX_UPLOAD_MB must be positive, got %d", c.MaxUploadMB)
	}
	if c.LinkingEnabled && c.EmbeddingURL == "" {
		return fmt.Errorf("EMBEDDING_URL is required when LINKING_ENABLED is true")
	}
	if c.LLMEnabled {
		if c.LLMURL == "" {
			return fmt.Errorf("LLM_URL is required when LLM_ENABLED is true")
		}
		if c.LLMModel == "" {
			return fmt.Errorf("LLM_MODEL is required when LLM_ENABLED is true")
		}
	}
	if c.LinkConditionThreshold < 0 || c.LinkConditionThreshold > 1 {
		return fmt.Errorf("LINK_CONDITION_THRESHOLD must be in [0,1], got %v", c.LinkConditionThreshold)
	}
	if c.LinkMedicationThreshold < 0 || c.LinkMedicationThreshold > 1 {
		return fmt.Errorf("LINK_MEDICATION_THRESHOLD must be in [0,1], got %v", c.LinkMedicationThreshold)
	}
	if c.LLMTimeout < 0 {
		return fmt.Errorf("LLM_TIMEOUT must not be negative")
	}
	return nil
}
