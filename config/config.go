// Package config handles loading and validation of application configuration
// from environment variables and potentially configuration files.
package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/CompraLens/compralens-backend/logger"
	"github.com/spf13/viper"
)

// Environment represents the application's running environment (development or production).
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Environment    Environment `mapstructure:"ENVIRONMENT" yaml:"environment"`
	Port           string      `mapstructure:"PORT" yaml:"port"`
	AllowedOrigins []string    `mapstructure:"ALLOWED_ORIGINS" yaml:"allowed_origins"`
	Version        string      `mapstructure:"VERSION" yaml:"version"`
	// TrustedProxies is a list of CIDR ranges or IPs of trusted reverse proxies.
	// If empty, X-Forwarded-For headers are ignored entirely (safe default).
	TrustedProxies []string `mapstructure:"TRUSTED_PROXIES" yaml:"trusted_proxies"`
}

// AWSConfig holds credentials and resource names for the AWS services the
// pipeline depends on (Textract, Comprehend, Bedrock agents, S3).
type AWSConfig struct {
	Region          string `mapstructure:"REGION" yaml:"region"`
	AccessKeyID     string `mapstructure:"ACCESS_KEY_ID" yaml:"access_key_id"`
	SecretAccessKey string `mapstructure:"SECRET_ACCESS_KEY" yaml:"secret_access_key"`
	SessionToken    string `mapstructure:"SESSION_TOKEN" yaml:"session_token"`
	BucketName      string `mapstructure:"BUCKET_NAME" yaml:"bucket_name"`
}

// AgentConfig identifies the Bedrock supervisor agent used for the
// conversational endpoint.
type AgentConfig struct {
	SupervisorAgentID string `mapstructure:"SUPERVISOR_AGENT_ID" yaml:"supervisor_agent_id"`
	SupervisorAliasID string `mapstructure:"SUPERVISOR_ALIAS_ID" yaml:"supervisor_alias_id"`
	// TimeoutSeconds bounds a single agent invocation
	TimeoutSeconds int `mapstructure:"TIMEOUT_SECONDS" yaml:"timeout_seconds"`
}

// ProcessingConfig holds tunables for the document pipeline.
type ProcessingConfig struct {
	// MaxUploadSizeMB caps the size of a single uploaded file
	MaxUploadSizeMB int `mapstructure:"MAX_UPLOAD_SIZE_MB" yaml:"max_upload_size_mb"`
	// MaxFilesPerBatch caps how many files one processing run accepts
	MaxFilesPerBatch int `mapstructure:"MAX_FILES_PER_BATCH" yaml:"max_files_per_batch"`
	// TextractPollSeconds is the wait between async job status checks
	TextractPollSeconds int `mapstructure:"TEXTRACT_POLL_SECONDS" yaml:"textract_poll_seconds"`
	// CategoryRulesPath optionally points to a YAML file overriding the
	// built-in product category keyword rules
	CategoryRulesPath string `mapstructure:"CATEGORY_RULES_PATH" yaml:"category_rules_path"`
}

// Config aggregates all application configuration sections.
type Config struct {
	Server     ServerConfig     `mapstructure:"SERVER" yaml:"server"`
	AWS        AWSConfig        `mapstructure:"AWS" yaml:"aws"`
	Agent      AgentConfig      `mapstructure:"AGENT" yaml:"agent"`
	Processing ProcessingConfig `mapstructure:"PROCESSING" yaml:"processing"`
}

// IsDevelopment returns true if the application is running in development environment.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == EnvDevelopment
}

// IsProduction returns true if the application is running in production environment.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == EnvProduction
}

// bindEnvVars binds multiple environment variables to config keys.
// Format: []{configKey, envVar}
func bindEnvVars(v *viper.Viper, bindings [][2]string) error {
	for _, b := range bindings {
		if err := v.BindEnv(b[0], b[1]); err != nil {
			return fmt.Errorf("failed to bind %s: %w", b[0], err)
		}
	}
	return nil
}

// LoadConfig loads configuration from environment variables using Viper,
// sets default values, binds environment variables to config struct fields,
// unmarshals the configuration, and validates it.
func LoadConfig() (*Config, error) {
	v := viper.New()
	log := logger.GetLogger()

	v.SetDefault("SERVER.ENVIRONMENT", EnvDevelopment)
	v.SetDefault("SERVER.PORT", "8080")
	v.SetDefault("SERVER.ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("SERVER.TRUSTED_PROXIES", []string{}) // Empty = trust no one (safe default)
	v.SetDefault("AWS.REGION", "us-east-1")
	v.SetDefault("AGENT.TIMEOUT_SECONDS", 60)
	v.SetDefault("PROCESSING.MAX_UPLOAD_SIZE_MB", 25)
	v.SetDefault("PROCESSING.MAX_FILES_PER_BATCH", 10)
	v.SetDefault("PROCESSING.TEXTRACT_POLL_SECONDS", 5)
	v.SetDefault("LOG_LEVEL", "info")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Bind environment variables
	envBindings := [][2]string{
		// Server config
		{"SERVER.ENVIRONMENT", "SERVER_ENVIRONMENT"},
		{"SERVER.PORT", "PORT"},
		{"SERVER.ALLOWED_ORIGINS", "ALLOWED_ORIGINS"},
		{"SERVER.TRUSTED_PROXIES", "TRUSTED_PROXIES"},
		// AWS config
		{"AWS.REGION", "AWS_REGION"},
		{"AWS.ACCESS_KEY_ID", "AWS_ACCESS_KEY_ID"},
		{"AWS.SECRET_ACCESS_KEY", "AWS_SECRET_ACCESS_KEY"},
		{"AWS.SESSION_TOKEN", "AWS_SESSION_TOKEN"},
		{"AWS.BUCKET_NAME", "BUCKET_NAME"},
		// Agent config
		{"AGENT.SUPERVISOR_AGENT_ID", "SUPERVISOR_AGENT_ID"},
		{"AGENT.SUPERVISOR_ALIAS_ID", "SUPERVISOR_ALIAS_ID"},
		{"AGENT.TIMEOUT_SECONDS", "AGENT_TIMEOUT_SECONDS"},
		// Processing config
		{"PROCESSING.MAX_UPLOAD_SIZE_MB", "MAX_UPLOAD_SIZE_MB"},
		{"PROCESSING.MAX_FILES_PER_BATCH", "MAX_FILES_PER_BATCH"},
		{"PROCESSING.TEXTRACT_POLL_SECONDS", "TEXTRACT_POLL_SECONDS"},
		{"PROCESSING.CATEGORY_RULES_PATH", "CATEGORY_RULES_PATH"},
	}

	if err := bindEnvVars(v, envBindings); err != nil {
		return nil, err
	}

	env := v.GetString("SERVER.ENVIRONMENT")
	log.Infow("Configuration loaded",
		"environment", env,
		"server_port", v.GetString("SERVER.PORT"),
		"aws_region", v.GetString("AWS.REGION"),
		"bucket_name", v.GetString("AWS.BUCKET_NAME"),
		"allowed_origins", v.GetString("SERVER.ALLOWED_ORIGINS"),
		"trusted_proxies", v.GetStringSlice("SERVER.TRUSTED_PROXIES"),
	)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal failed: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	log.Info("Configuration validated successfully")
	return &cfg, nil
}

// validateConfig checks if the loaded configuration values are valid.
func validateConfig(cfg *Config) error {
	log := logger.GetLogger()

	// Validate Server Config
	if cfg.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	// Validate AllowedOrigins format if not wildcard
	if !containsWildcard(cfg.Server.AllowedOrigins) {
		for _, origin := range cfg.Server.AllowedOrigins {
			if _, err := url.ParseRequestURI(origin); err != nil {
				return fmt.Errorf("invalid allowed origin '%s': %w", origin, err)
			}
		}
	}

	// Validate AWS Config
	if cfg.AWS.Region == "" {
		return fmt.Errorf("AWS region is required")
	}
	if cfg.AWS.BucketName == "" {
		if cfg.IsProduction() {
			return fmt.Errorf("S3 bucket name is required in production")
		}
		log.Warn("S3 bucket name is not set. Asynchronous PDF analysis will be unavailable.")
	}
	if cfg.AWS.AccessKeyID == "" || cfg.AWS.SecretAccessKey == "" {
		// The default credential chain (instance profile, SSO, env) may still
		// resolve credentials, so this is not fatal.
		log.Warn("Static AWS credentials are not set, falling back to the default credential chain.")
	}

	// Validate Agent Config
	if cfg.Agent.SupervisorAgentID == "" || cfg.Agent.SupervisorAliasID == "" {
		if cfg.IsProduction() {
			return fmt.Errorf("supervisor agent ID and alias ID are required in production")
		}
		log.Warn("Supervisor agent is not configured. Chat responses will use the fallback message.")
	}
	if cfg.Agent.TimeoutSeconds <= 0 {
		return fmt.Errorf("agent timeout must be positive")
	}

	// Validate Processing Config
	if cfg.Processing.MaxUploadSizeMB <= 0 {
		return fmt.Errorf("max upload size must be positive")
	}
	if cfg.Processing.MaxFilesPerBatch <= 0 {
		return fmt.Errorf("max files per batch must be positive")
	}
	if cfg.Processing.TextractPollSeconds <= 0 {
		return fmt.Errorf("textract poll interval must be positive")
	}

	return nil
}

// containsWildcard checks if the list of allowed origins contains the wildcard "*".
func containsWildcard(origins []string) bool {
	for _, origin := range origins {
		if origin == "*" {
			return true
		}
	}
	return false
}
