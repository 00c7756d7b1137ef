package config

import (
	"testing"
	"time"

	"mcq-worker/internal/domain"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseViper() *viper.Viper {
	v := viper.New()
	v.Set("redis.address", "localhost:6379")
	v.Set("llm.api_key", "test-key")
	v.Set("registry.secret", "s3cret")
	return v
}

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := FromViper(baseViper())
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Worker.Concurrency)
	assert.Equal(t, 30*time.Minute, cfg.Worker.ClaimTTL)
	assert.NotEmpty(t, cfg.Worker.ID)
	assert.Equal(t, "pubsub", cfg.Transport.Kind)
	assert.Equal(t, "mcq_jobs", cfg.Transport.Channel)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "https://api.groq.com/openai/v1", cfg.LLM.BaseURL)
	assert.Equal(t, "llama-3.1-8b-instant", cfg.LLM.Model)
	assert.InDelta(t, 0.3, cfg.LLM.Temperature, 1e-9)
	assert.Equal(t, 2000, cfg.LLM.MaxTokens)
	assert.Equal(t, 45*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, int64(50<<20), cfg.Source.MaxBytes)
	assert.Equal(t, "http", cfg.Registry.Kind)
	assert.Equal(t, "secret", cfg.Registry.Auth)
	assert.Equal(t, 10*time.Second, cfg.Registry.ProgressTimeout)
	assert.Equal(t, 30*time.Second, cfg.Registry.ResultTimeout)
	assert.Equal(t, 2000, cfg.Preprocess.MaxChars)
	assert.Equal(t, 1000, cfg.Preprocess.Window)
	assert.Equal(t, 24*time.Hour, cfg.Progress.TTL)
	assert.Equal(t, 8090, cfg.Health.Port)
}

func TestFromViper_LegacyEnvAliases(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "groq-key")
	t.Setenv("BACKEND_URL", "http://backend:3000/")
	t.Setenv("AI_WORKER_SECRET", "from-env")
	t.Setenv("CONCURRENT_JOBS", "4")
	t.Setenv("REDIS_URL", "redis://cache:6379/1")

	cfg, err := FromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "groq-key", cfg.LLM.APIKey)
	assert.Equal(t, "http://backend:3000", cfg.Registry.BaseURL)
	assert.Equal(t, "from-env", cfg.Registry.Secret)
	assert.Equal(t, 4, cfg.Worker.Concurrency)
	assert.Equal(t, "redis://cache:6379/1", cfg.Redis.URL)
}

func TestFromViper_GeminiProvider(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "gemini-key")
	v := viper.New()
	v.Set("redis.address", "localhost:6379")
	v.Set("registry.secret", "s3cret")
	v.Set("llm.provider", "googleai")

	cfg, err := FromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "googleai", cfg.LLM.Provider)
	assert.Equal(t, "gemini-key", cfg.LLM.APIKey)
	assert.Equal(t, DefaultGeminiModel, cfg.LLM.Model)
}

func TestFromViper_MissingCredentialsFailFast(t *testing.T) {
	v := viper.New()
	v.Set("redis.address", "localhost:6379")

	cfg, err := FromViper(v)
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Equal(t, domain.ErrConfig, domain.CodeOf(err))
	assert.Contains(t, err.Error(), "llm.api_key")
	assert.Contains(t, err.Error(), "registry.secret")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(v *viper.Viper)
		wantErr string
	}{
		{
			name:    "unknown transport",
			mutate:  func(v *viper.Viper) { v.Set("transport.kind", "kafka") },
			wantErr: "unsupported transport.kind",
		},
		{
			name: "sqs needs queue url",
			mutate: func(v *viper.Viper) {
				v.Set("transport.kind", "sqs")
			},
			wantErr: "transport.sqs.queue_url",
		},
		{
			name:    "zero concurrency",
			mutate:  func(v *viper.Viper) { v.Set("worker.concurrency", 0) },
			wantErr: "worker.concurrency",
		},
		{
			name: "oauth2 needs client settings",
			mutate: func(v *viper.Viper) {
				v.Set("registry.auth", "oauth2")
			},
			wantErr: "registry.oauth2",
		},
		{
			name: "sql registry needs db",
			mutate: func(v *viper.Viper) {
				v.Set("registry.kind", "sql")
			},
			wantErr: "db.host",
		},
		{
			name:    "window too large",
			mutate:  func(v *viper.Viper) { v.Set("preprocess.window", 1500) },
			wantErr: "preprocess.max_chars",
		},
		{
			name: "googleai needs key",
			mutate: func(v *viper.Viper) {
				v.Set("llm.provider", "googleai")
				v.Set("llm.api_key", "")
			},
			wantErr: "llm.api_key is required for provider googleai",
		},
		{
			name: "provider none needs no key",
			mutate: func(v *viper.Viper) {
				v.Set("llm.provider", "none")
				v.Set("llm.api_key", "")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := baseViper()
			tt.mutate(v)
			_, err := FromViper(v)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetDSN(t *testing.T) {
	cfg := &Config{DB: DBConfig{Host: "db", Port: 1521, User: "u", Password: "p", DBName: "FREEPDB1"}}
	assert.Equal(t, "oracle://u:p@db:1521/FREEPDB1", cfg.GetDSN())

	cfg.DB.Password = "p@ss/w:rd?"
	assert.Equal(t, "oracle://u:p%40ss%2Fw%3Ard%3F@db:1521/FREEPDB1", cfg.GetDSN())
}
