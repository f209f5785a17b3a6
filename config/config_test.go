package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name        string
		envVars     map[string]string
		expectError bool
		check       func(t *testing.T, cfg *Config)
	}{
		{
			name:    "defaults only",
			envVars: map[string]string{},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, EnvDevelopment, cfg.Server.Environment)
				assert.Equal(t, "8080", cfg.Server.Port)
				assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
				assert.Equal(t, "us-east-1", cfg.AWS.Region)
				assert.Equal(t, 60, cfg.Agent.TimeoutSeconds)
				assert.Equal(t, 25, cfg.Processing.MaxUploadSizeMB)
				assert.Equal(t, 10, cfg.Processing.MaxFilesPerBatch)
				assert.Equal(t, 5, cfg.Processing.TextractPollSeconds)
			},
		},
		{
			name: "environment overrides",
			envVars: map[string]string{
				"PORT":                "9090",
				"AWS_REGION":          "eu-west-1",
				"BUCKET_NAME":         "compralens-docs",
				"SUPERVISOR_AGENT_ID": "AGENT123",
				"SUPERVISOR_ALIAS_ID": "ALIAS456",
				"MAX_FILES_PER_BATCH": "3",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "9090", cfg.Server.Port)
				assert.Equal(t, "eu-west-1", cfg.AWS.Region)
				assert.Equal(t, "compralens-docs", cfg.AWS.BucketName)
				assert.Equal(t, "AGENT123", cfg.Agent.SupervisorAgentID)
				assert.Equal(t, "ALIAS456", cfg.Agent.SupervisorAliasID)
				assert.Equal(t, 3, cfg.Processing.MaxFilesPerBatch)
			},
		},
		{
			name: "production requires bucket",
			envVars: map[string]string{
				"SERVER_ENVIRONMENT":  "production",
				"SUPERVISOR_AGENT_ID": "AGENT123",
				"SUPERVISOR_ALIAS_ID": "ALIAS456",
			},
			expectError: true,
		},
		{
			name: "production requires supervisor agent",
			envVars: map[string]string{
				"SERVER_ENVIRONMENT": "production",
				"BUCKET_NAME":        "compralens-docs",
			},
			expectError: true,
		},
		{
			name: "production fully configured",
			envVars: map[string]string{
				"SERVER_ENVIRONMENT":  "production",
				"BUCKET_NAME":         "compralens-docs",
				"SUPERVISOR_AGENT_ID": "AGENT123",
				"SUPERVISOR_ALIAS_ID": "ALIAS456",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.IsProduction())
				assert.False(t, cfg.IsDevelopment())
			},
		},
		{
			name: "invalid allowed origin",
			envVars: map[string]string{
				"ALLOWED_ORIGINS": "not a url",
			},
			expectError: true,
		},
		{
			name: "non-positive agent timeout",
			envVars: map[string]string{
				"AGENT_TIMEOUT_SECONDS": "0",
			},
			expectError: true,
		},
		{
			name: "non-positive upload size",
			envVars: map[string]string{
				"MAX_UPLOAD_SIZE_MB": "-1",
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			for key, value := range tt.envVars {
				os.Setenv(key, value)
			}

			cfg, err := LoadConfig()
			if tt.expectError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, cfg)
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server: ServerConfig{
				Environment:    EnvDevelopment,
				Port:           "8080",
				AllowedOrigins: []string{"https://app.compralens.pe"},
			},
			AWS:   AWSConfig{Region: "us-east-1"},
			Agent: AgentConfig{TimeoutSeconds: 60},
			Processing: ProcessingConfig{
				MaxUploadSizeMB:     25,
				MaxFilesPerBatch:    10,
				TextractPollSeconds: 5,
			},
		}
	}

	t.Run("valid development config", func(t *testing.T) {
		assert.NoError(t, validateConfig(valid()))
	})

	t.Run("missing port", func(t *testing.T) {
		cfg := valid()
		cfg.Server.Port = ""
		assert.Error(t, validateConfig(cfg))
	})

	t.Run("missing region", func(t *testing.T) {
		cfg := valid()
		cfg.AWS.Region = ""
		assert.Error(t, validateConfig(cfg))
	})

	t.Run("wildcard skips origin parsing", func(t *testing.T) {
		cfg := valid()
		cfg.Server.AllowedOrigins = []string{"*", "not a url"}
		assert.NoError(t, validateConfig(cfg))
	})

	t.Run("zero poll interval", func(t *testing.T) {
		cfg := valid()
		cfg.Processing.TextractPollSeconds = 0
		assert.Error(t, validateConfig(cfg))
	})
}

func TestContainsWildcard(t *testing.T) {
	assert.True(t, containsWildcard([]string{"https://a.example.com", "*"}))
	assert.False(t, containsWildcard([]string{"https://a.example.com"}))
	assert.False(t, containsWildcard(nil))
}
