package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server     ServerConfig
	Redis      RedisConfig
	JWT        JWTConfig
	RateLimit  RateLimitConfig
	OpenAI     OpenAIConfig
	Groq       GroqConfig
	Media      MediaConfig
	OCR        OCRConfig
	R2         R2Config
	Core       CoreConfig
	Billing    BillingConfig
	Extraction ExtractionConfig
	Zitadel    ZitadelConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration int // hours
}

type RateLimitConfig struct {
	SubmitPerHour int
	UploadPerHour int
}

type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	ImageModel string
}

type GroqConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	WhisperModel   string
	TimeoutSeconds int
}

type MediaConfig struct {
	ServiceURL string
	Timeout    int // seconds
}

type OCRConfig struct {
	ServiceURL string
	Timeout    int // seconds
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
}

type CoreConfig struct {
	ServiceURL string
	Timeout    int // seconds
}

type BillingConfig struct {
	ServiceURL string
	Timeout    int // seconds
}

type ExtractionConfig struct {
	NormalizeMaxAttempts   int
	NormalizeTimeoutSec    int // per attempt
	ImageTimeoutSec        int
	HandoffTTLMinutes      int
	MaxAudioDurationSec    int
	PhotoOCRMinChars       int
	PhotoOCRMinLines       int
}

type ZitadelConfig struct {
	Domain   string
	ClientID string
	Issuer   string
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("OPENAI_API_KEY")
	readSecret("GROQ_API_KEY")
	readSecret("R2_ACCOUNT_ID")
	readSecret("R2_ACCESS_KEY_ID")
	readSecret("R2_SECRET_ACCESS_KEY")
	readSecret("ZITADEL_CLIENT_ID")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("jwt.secret", "JWT_SECRET")
	_ = viper.BindEnv("jwt.expiration", "JWT_EXPIRATION")
	_ = viper.BindEnv("openai.api_key", "OPENAI_API_KEY")
	_ = viper.BindEnv("openai.base_url", "OPENAI_BASE_URL")
	_ = viper.BindEnv("openai.model", "OPENAI_MODEL")
	_ = viper.BindEnv("openai.image_model", "OPENAI_IMAGE_MODEL")
	_ = viper.BindEnv("groq.api_key", "GROQ_API_KEY")
	_ = viper.BindEnv("groq.base_url", "GROQ_BASE_URL")
	_ = viper.BindEnv("groq.model", "GROQ_MODEL")
	_ = viper.BindEnv("groq.whisper_model", "GROQ_WHISPER_MODEL")
	_ = viper.BindEnv("media.service_url", "MEDIA_SERVICE_URL")
	_ = viper.BindEnv("media.timeout", "MEDIA_SERVICE_TIMEOUT")
	_ = viper.BindEnv("ocr.service_url", "OCR_SERVICE_URL")
	_ = viper.BindEnv("ocr.timeout", "OCR_SERVICE_TIMEOUT")
	_ = viper.BindEnv("r2.account_id", "R2_ACCOUNT_ID")
	_ = viper.BindEnv("r2.access_key_id", "R2_ACCESS_KEY_ID")
	_ = viper.BindEnv("r2.secret_access_key", "R2_SECRET_ACCESS_KEY")
	_ = viper.BindEnv("r2.bucket_name", "R2_BUCKET_NAME")
	_ = viper.BindEnv("r2.public_url", "R2_PUBLIC_URL")
	_ = viper.BindEnv("core.service_url", "CORE_SERVICE_URL")
	_ = viper.BindEnv("core.timeout", "CORE_SERVICE_TIMEOUT")
	_ = viper.BindEnv("billing.service_url", "BILLING_SERVICE_URL")
	_ = viper.BindEnv("billing.timeout", "BILLING_SERVICE_TIMEOUT")
	_ = viper.BindEnv("zitadel.domain", "ZITADEL_DOMAIN")
	_ = viper.BindEnv("zitadel.client_id", "ZITADEL_CLIENT_ID")
	_ = viper.BindEnv("zitadel.issuer", "ZITADEL_ISSUER")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("jwt.expiration", 24)
	viper.SetDefault("ratelimit.submit_per_hour", 20)
	viper.SetDefault("ratelimit.upload_per_hour", 60)

	// OpenAI defaults
	viper.SetDefault("openai.base_url", "https://api.openai.com/v1")
	viper.SetDefault("openai.model", "gpt-4o-mini")
	viper.SetDefault("openai.image_model", "dall-e-3")

	// Groq defaults
	viper.SetDefault("groq.base_url", "https://api.groq.com/openai/v1")
	viper.SetDefault("groq.model", "llama-3.3-70b-versatile")
	viper.SetDefault("groq.whisper_model", "whisper-large-v3-turbo")
	viper.SetDefault("groq.timeout", 120)

	// Sidecar service defaults
	viper.SetDefault("media.service_url", "http://localhost:8084")
	viper.SetDefault("media.timeout", 300)
	viper.SetDefault("ocr.service_url", "http://localhost:8085")
	viper.SetDefault("ocr.timeout", 60)
	viper.SetDefault("core.service_url", "http://localhost:8081")
	viper.SetDefault("core.timeout", 30)
	viper.SetDefault("billing.service_url", "http://localhost:8082")
	viper.SetDefault("billing.timeout", 15)

	// Extraction pipeline defaults
	viper.SetDefault("extraction.normalize_max_attempts", 3)
	viper.SetDefault("extraction.normalize_timeout", 90)
	viper.SetDefault("extraction.image_timeout", 120)
	viper.SetDefault("extraction.handoff_ttl_minutes", 30)
	viper.SetDefault("extraction.max_audio_duration", 900)
	viper.SetDefault("extraction.photo_ocr_min_chars", 80)
	viper.SetDefault("extraction.photo_ocr_min_lines", 3)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:     viper.GetString("server.port"),
			Env:      viper.GetString("server.env"),
			LogLevel: viper.GetString("server.log_level"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:     viper.GetString("jwt.secret"),
			Expiration: viper.GetInt("jwt.expiration"),
		},
		RateLimit: RateLimitConfig{
			SubmitPerHour: viper.GetInt("ratelimit.submit_per_hour"),
			UploadPerHour: viper.GetInt("ratelimit.upload_per_hour"),
		},
		OpenAI: OpenAIConfig{
			APIKey:     viper.GetString("openai.api_key"),
			BaseURL:    viper.GetString("openai.base_url"),
			Model:      viper.GetString("openai.model"),
			ImageModel: viper.GetString("openai.image_model"),
		},
		Groq: GroqConfig{
			APIKey:         viper.GetString("groq.api_key"),
			BaseURL:        viper.GetString("groq.base_url"),
			Model:          viper.GetString("groq.model"),
			WhisperModel:   viper.GetString("groq.whisper_model"),
			TimeoutSeconds: viper.GetInt("groq.timeout"),
		},
		Media: MediaConfig{
			ServiceURL: viper.GetString("media.service_url"),
			Timeout:    viper.GetInt("media.timeout"),
		},
		OCR: OCRConfig{
			ServiceURL: viper.GetString("ocr.service_url"),
			Timeout:    viper.GetInt("ocr.timeout"),
		},
		R2: R2Config{
			AccountID:       viper.GetString("r2.account_id"),
			AccessKeyID:     viper.GetString("r2.access_key_id"),
			SecretAccessKey: viper.GetString("r2.secret_access_key"),
			BucketName:      viper.GetString("r2.bucket_name"),
			PublicURL:       viper.GetString("r2.public_url"),
		},
		Core: CoreConfig{
			ServiceURL: viper.GetString("core.service_url"),
			Timeout:    viper.GetInt("core.timeout"),
		},
		Billing: BillingConfig{
			ServiceURL: viper.GetString("billing.service_url"),
			Timeout:    viper.GetInt("billing.timeout"),
		},
		Extraction: ExtractionConfig{
			NormalizeMaxAttempts: viper.GetInt("extraction.normalize_max_attempts"),
			NormalizeTimeoutSec:  viper.GetInt("extraction.normalize_timeout"),
			ImageTimeoutSec:      viper.GetInt("extraction.image_timeout"),
			HandoffTTLMinutes:    viper.GetInt("extraction.handoff_ttl_minutes"),
			MaxAudioDurationSec:  viper.GetInt("extraction.max_audio_duration"),
			PhotoOCRMinChars:     viper.GetInt("extraction.photo_ocr_min_chars"),
			PhotoOCRMinLines:     viper.GetInt("extraction.photo_ocr_min_lines"),
		},
		Zitadel: ZitadelConfig{
			Domain:   viper.GetString("zitadel.domain"),
			ClientID: viper.GetString("zitadel.client_id"),
			Issuer:   viper.GetString("zitadel.issuer"),
		},
	}

	return cfg, nil
}
