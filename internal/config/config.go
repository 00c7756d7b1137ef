package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"mcq-worker/internal/domain"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultGeminiModel replaces the default llm.model for provider googleai.
const DefaultGeminiModel = "gemini-1.5-flash"

// Config is built once at process start and passed to every component.
// It is never re-read.
type Config struct {
	Worker     WorkerConfig
	Transport  TransportConfig
	Redis      RedisConfig
	LLM        LLMConfig
	Source     SourceConfig
	Registry   RegistryConfig
	DB         DBConfig
	Health     HealthConfig
	Logger     LoggerConfig
	Preprocess PreprocessConfig
	Progress   ProgressConfig
}

type WorkerConfig struct {
	ID          string
	Concurrency int
	ClaimTTL    time.Duration
}

type TransportConfig struct {
	Kind         string // pubsub | list | sqs
	Channel      string
	Queue        string
	BlockTimeout time.Duration
	SQS          SQSConfig
}

type SQSConfig struct {
	QueueURL          string
	Region            string
	WaitTimeSeconds   int32
	VisibilityTimeout int32
}

type RedisConfig struct {
	Address  string
	URL      string
	Password string
	DB       int
}

// Enabled reports whether a redis endpoint is configured.
func (r RedisConfig) Enabled() bool {
	return r.Address != "" || r.URL != ""
}

type LLMConfig struct {
	Provider          string // openai | ollama | none
	BaseURL           string
	APIKey            string
	Model             string
	Temperature       float64
	MaxTokens         int
	Timeout           time.Duration
	RequestsPerMinute int
}

type SourceConfig struct {
	HTTPTimeout time.Duration
	MaxBytes    int64
	RetryMax    int
	S3          S3Config
}

type S3Config struct {
	Bucket       string
	Region       string
	Endpoint     string
	UsePathStyle bool
}

type RegistryConfig struct {
	Kind            string // http | sql
	BaseURL         string
	Secret          string
	Auth            string // secret | jwt | oauth2
	TokenTTL        time.Duration
	RetryMax        int
	ProgressTimeout time.Duration
	ResultTimeout   time.Duration
	OAuth2          OAuth2Config
}

type OAuth2Config struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

type HealthConfig struct {
	Port int
}

type LoggerConfig struct {
	Level string
	Env   string
}

type PreprocessConfig struct {
	MaxChars int
	Window   int
}

type ProgressConfig struct {
	TTL time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("worker.concurrency", 2)
	v.SetDefault("worker.claim_ttl", "30m")
	v.SetDefault("transport.kind", "pubsub")
	v.SetDefault("transport.channel", "mcq_jobs")
	v.SetDefault("transport.queue", "mcq-generation")
	v.SetDefault("transport.block_timeout", "5s")
	v.SetDefault("transport.sqs.wait_time_seconds", 20)
	v.SetDefault("transport.sqs.visibility_timeout", 300)
	v.SetDefault("redis.db", 0)
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("llm.model", "llama-3.1-8b-instant")
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.max_tokens", 2000)
	v.SetDefault("llm.timeout", "45s")
	v.SetDefault("llm.requests_per_minute", 30)
	v.SetDefault("source.http_timeout", "30s")
	v.SetDefault("source.max_bytes", 50<<20)
	v.SetDefault("source.retry_max", 3)
	v.SetDefault("registry.kind", "http")
	v.SetDefault("registry.base_url", "http://localhost:3000")
	v.SetDefault("registry.auth", "secret")
	v.SetDefault("registry.token_ttl", "5m")
	v.SetDefault("registry.retry_max", 3)
	v.SetDefault("registry.progress_timeout", "10s")
	v.SetDefault("registry.result_timeout", "30s")
	v.SetDefault("db.port", 1521)
	v.SetDefault("health.port", 8090)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.env", "development")
	v.SetDefault("preprocess.max_chars", 2000)
	v.SetDefault("preprocess.window", 1000)
	v.SetDefault("progress.ttl", "24h")
}

// legacyEnv maps config keys to the environment variable names used by the
// backend deployment, in addition to the derived KEY_NAME form.
var legacyEnv = map[string][]string{
	"llm.api_key":        {"GROQ_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY"},
	"llm.model":          {"DEFAULT_MODEL"},
	"redis.url":          {"REDIS_URL"},
	"registry.base_url":  {"BACKEND_URL", "BACKEND_API_URL"},
	"registry.secret":    {"AI_WORKER_SECRET", "INTERNAL_SECRET"},
	"worker.concurrency": {"CONCURRENT_JOBS"},
	"worker.id":          {"WORKER_ID"},
}

func bindEnv(v *viper.Viper) error {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, aliases := range legacyEnv {
		names := append([]string{key, strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, aliases...)
		if err := v.BindEnv(names...); err != nil {
			return fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}
	return nil
}

// LoadConfig reads .env and config.yaml (both optional) and the environment,
// and returns a validated Config.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if os.Getenv("ENV") == "test" {
		v.AddConfigPath("../../config")
		v.AddConfigPath("../../")
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("./configs")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if configFile := v.ConfigFileUsed(); configFile != "" {
		absPath, _ := filepath.Abs(configFile)
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", absPath)
	}

	return FromViper(v)
}

// FromViper builds and validates a Config from an already populated viper
// instance. Defaults and environment bindings are applied here.
func FromViper(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	if err := bindEnv(v); err != nil {
		return nil, err
	}
	if strings.EqualFold(v.GetString("llm.provider"), "googleai") {
		v.SetDefault("llm.model", DefaultGeminiModel)
	}

	cfg := &Config{
		Worker: WorkerConfig{
			ID:          v.GetString("worker.id"),
			Concurrency: v.GetInt("worker.concurrency"),
			ClaimTTL:    v.GetDuration("worker.claim_ttl"),
		},
		Transport: TransportConfig{
			Kind:         strings.ToLower(v.GetString("transport.kind")),
			Channel:      v.GetString("transport.channel"),
			Queue:        v.GetString("transport.queue"),
			BlockTimeout: v.GetDuration("transport.block_timeout"),
			SQS: SQSConfig{
				QueueURL:          v.GetString("transport.sqs.queue_url"),
				Region:            v.GetString("transport.sqs.region"),
				WaitTimeSeconds:   v.GetInt32("transport.sqs.wait_time_seconds"),
				VisibilityTimeout: v.GetInt32("transport.sqs.visibility_timeout"),
			},
		},
		Redis: RedisConfig{
			Address:  v.GetString("redis.address"),
			URL:      v.GetString("redis.url"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		LLM: LLMConfig{
			Provider:          strings.ToLower(v.GetString("llm.provider")),
			BaseURL:           v.GetString("llm.base_url"),
			APIKey:            v.GetString("llm.api_key"),
			Model:             v.GetString("llm.model"),
			Temperature:       v.GetFloat64("llm.temperature"),
			MaxTokens:         v.GetInt("llm.max_tokens"),
			Timeout:           v.GetDuration("llm.timeout"),
			RequestsPerMinute: v.GetInt("llm.requests_per_minute"),
		},
		Source: SourceConfig{
			HTTPTimeout: v.GetDuration("source.http_timeout"),
			MaxBytes:    v.GetInt64("source.max_bytes"),
			RetryMax:    v.GetInt("source.retry_max"),
			S3: S3Config{
				Bucket:       v.GetString("source.s3.bucket"),
				Region:       v.GetString("source.s3.region"),
				Endpoint:     v.GetString("source.s3.endpoint"),
				UsePathStyle: v.GetBool("source.s3.use_path_style"),
			},
		},
		Registry: RegistryConfig{
			Kind:            strings.ToLower(v.GetString("registry.kind")),
			BaseURL:         strings.TrimRight(v.GetString("registry.base_url"), "/"),
			Secret:          v.GetString("registry.secret"),
			Auth:            strings.ToLower(v.GetString("registry.auth")),
			TokenTTL:        v.GetDuration("registry.token_ttl"),
			RetryMax:        v.GetInt("registry.retry_max"),
			ProgressTimeout: v.GetDuration("registry.progress_timeout"),
			ResultTimeout:   v.GetDuration("registry.result_timeout"),
			OAuth2: OAuth2Config{
				ClientID:     v.GetString("registry.oauth2.client_id"),
				ClientSecret: v.GetString("registry.oauth2.client_secret"),
				TokenURL:     v.GetString("registry.oauth2.token_url"),
				Scopes:       v.GetStringSlice("registry.oauth2.scopes"),
			},
		},
		DB: DBConfig{
			Host:     v.GetString("db.host"),
			Port:     v.GetInt("db.port"),
			User:     v.GetString("db.user"),
			Password: v.GetString("db.password"),
			DBName:   v.GetString("db.name"),
		},
		Health: HealthConfig{
			Port: v.GetInt("health.port"),
		},
		Logger: LoggerConfig{
			Level: v.GetString("logger.level"),
			Env:   v.GetString("logger.env"),
		},
		Preprocess: PreprocessConfig{
			MaxChars: v.GetInt("preprocess.max_chars"),
			Window:   v.GetInt("preprocess.window"),
		},
		Progress: ProgressConfig{
			TTL: v.GetDuration("progress.ttl"),
		},
	}

	if cfg.Worker.ID == "" {
		cfg.Worker.ID = defaultWorkerID()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultWorkerID() string {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "worker"
	}
	return hostname + ":" + strconv.Itoa(os.Getpid())
}

// Validate reports every missing or inconsistent setting at once.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.Worker.Concurrency < 1 {
		add("worker.concurrency must be at least 1")
	}
	if c.Worker.ClaimTTL <= 0 {
		add("worker.claim_ttl must be positive")
	}

	switch c.Transport.Kind {
	case "pubsub":
		if c.Transport.Channel == "" {
			add("transport.channel is required for pubsub transport")
		}
		if !c.Redis.Enabled() {
			add("redis.address or redis.url is required for pubsub transport")
		}
	case "list":
		if c.Transport.Queue == "" {
			add("transport.queue is required for list transport")
		}
		if !c.Redis.Enabled() {
			add("redis.address or redis.url is required for list transport")
		}
	case "sqs":
		if c.Transport.SQS.QueueURL == "" {
			add("transport.sqs.queue_url is required for sqs transport")
		}
	default:
		add("unsupported transport.kind %q", c.Transport.Kind)
	}

	switch c.LLM.Provider {
	case "openai", "googleai":
		if c.LLM.APIKey == "" {
			add("llm.api_key is required for provider %s", c.LLM.Provider)
		}
	case "ollama":
		if c.LLM.BaseURL == "" {
			add("llm.base_url is required for provider ollama")
		}
	case "none":
	default:
		add("unsupported llm.provider %q", c.LLM.Provider)
	}
	if c.LLM.Provider != "none" {
		if c.LLM.Model == "" {
			add("llm.model is required")
		}
		if c.LLM.MaxTokens <= 0 {
			add("llm.max_tokens must be positive")
		}
		if c.LLM.Timeout <= 0 {
			add("llm.timeout must be positive")
		}
	}

	switch c.Registry.Kind {
	case "http":
		if c.Registry.BaseURL == "" {
			add("registry.base_url is required for http registry")
		}
		switch c.Registry.Auth {
		case "secret", "jwt":
			if c.Registry.Secret == "" {
				add("registry.secret is required for %s auth", c.Registry.Auth)
			}
		case "oauth2":
			if c.Registry.OAuth2.ClientID == "" || c.Registry.OAuth2.ClientSecret == "" || c.Registry.OAuth2.TokenURL == "" {
				add("registry.oauth2.client_id, client_secret and token_url are required for oauth2 auth")
			}
		default:
			add("unsupported registry.auth %q", c.Registry.Auth)
		}
	case "sql":
		if c.DB.Host == "" || c.DB.User == "" || c.DB.DBName == "" {
			add("db.host, db.user and db.name are required for sql registry")
		}
	default:
		add("unsupported registry.kind %q", c.Registry.Kind)
	}

	if c.Source.MaxBytes <= 0 {
		add("source.max_bytes must be positive")
	}
	if c.Preprocess.Window <= 0 || c.Preprocess.MaxChars < 2*c.Preprocess.Window {
		add("preprocess.max_chars must be at least twice preprocess.window")
	}

	if len(problems) > 0 {
		return domain.NewError(domain.ErrConfig, "invalid configuration: "+strings.Join(problems, "; "), nil)
	}
	return nil
}

// GetDSN returns the go-ora connection URL of the SQL registry database.
func (c *Config) GetDSN() string {
	dsn := url.URL{
		Scheme: "oracle",
		User:   url.UserPassword(c.DB.User, c.DB.Password),
		Host:   net.JoinHostPort(c.DB.Host, strconv.Itoa(c.DB.Port)),
		Path:   "/" + c.DB.DBName,
	}
	return dsn.String()
}
