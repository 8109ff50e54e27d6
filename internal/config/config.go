package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Supported object storage backends.
const (
	StorageProviderMinio      = "minio"
	StorageProviderCloudinary = "cloudinary"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName     string
	AppEnv      string
	AppPort     string
	DatabaseURL string
	RedisURL    string
	NATSURL     string
	ChannelBase string
	JWTSecret   string
	CORSOrigins string

	StorageProvider   string
	StorageEndpoint   string
	StorageCredential string
	StorageUseSSL     bool

	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	CloudinaryFolder    string

	LLMGatewayEndpoint string
	LLMAPIKey          string
	LLMModel           string
	LLMVisionModel     string
	LLMMaxTokens       int
	LLMTemperature     float32

	MaxPageImages   int
	OCRCacheTTL     time.Duration
	PDFTextLayer    bool
	UploadMaxSizeMB int
	LLMRateLimit    int
	LLMRateWindow   time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// StorageKeys splits the storage credential into access and secret keys.
// The credential is expected as "<access_key>:<secret_key>".
func (c Config) StorageKeys() (string, string, error) {
	access, secret, ok := strings.Cut(c.StorageCredential, ":")
	if !ok || strings.TrimSpace(access) == "" || strings.TrimSpace(secret) == "" {
		return "", "", fmt.Errorf("storage credential must be formatted as access:secret")
	}
	return strings.TrimSpace(access), strings.TrimSpace(secret), nil
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("EXAMPILOT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "ExamPilot API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("channel.base", "exampilot")
	v.SetDefault("cors.allow_origins", "*")
	v.SetDefault("storage.provider", StorageProviderMinio)
	v.SetDefault("storage.use_ssl", false)
	v.SetDefault("cloudinary.folder", "exampilot")
	v.SetDefault("llm.model", "google/gemini-2.5-flash")
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("pipeline.max_page_images", 5)
	v.SetDefault("pipeline.ocr_cache_ttl", "0s")
	v.SetDefault("pipeline.pdf_text_layer", false)
	v.SetDefault("upload.max_size_mb", 20)
	v.SetDefault("ratelimit.llm_max", 10)
	v.SetDefault("ratelimit.llm_window", "1m")

	cacheTTL, err := parseDuration(v.GetString("pipeline.ocr_cache_ttl"), 0)
	if err != nil {
		return Config{}, fmt.Errorf("invalid ocr cache ttl: %w", err)
	}

	rateWindow, err := parseDuration(v.GetString("ratelimit.llm_window"), time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid llm rate limit window: %w", err)
	}

	cfg := Config{
		AppName:             v.GetString("app.name"),
		AppEnv:              v.GetString("app.env"),
		AppPort:             v.GetString("app.port"),
		DatabaseURL:         v.GetString("database.url"),
		RedisURL:            v.GetString("redis.url"),
		NATSURL:             v.GetString("nats.url"),
		ChannelBase:         v.GetString("channel.base"),
		JWTSecret:           v.GetString("jwt.secret"),
		CORSOrigins:         v.GetString("cors.allow_origins"),
		StorageProvider:     strings.ToLower(strings.TrimSpace(v.GetString("storage.provider"))),
		StorageEndpoint:     v.GetString("storage.endpoint"),
		StorageCredential:   v.GetString("storage.credential"),
		StorageUseSSL:       v.GetBool("storage.use_ssl"),
		CloudinaryCloudName: v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:    v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret: v.GetString("cloudinary.api_secret"),
		CloudinaryFolder:    v.GetString("cloudinary.folder"),
		LLMGatewayEndpoint:  v.GetString("llm.gateway_endpoint"),
		LLMAPIKey:           v.GetString("llm.api_key"),
		LLMModel:            v.GetString("llm.model"),
		LLMVisionModel:      v.GetString("llm.vision_model"),
		LLMMaxTokens:        v.GetInt("llm.max_tokens"),
		LLMTemperature:      float32(v.GetFloat64("llm.temperature")),
		MaxPageImages:       v.GetInt("pipeline.max_page_images"),
		OCRCacheTTL:         cacheTTL,
		PDFTextLayer:        v.GetBool("pipeline.pdf_text_layer"),
		UploadMaxSizeMB:     v.GetInt("upload.max_size_mb"),
		LLMRateLimit:        v.GetInt("ratelimit.llm_max"),
		LLMRateWindow:       rateWindow,
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.LLMAPIKey == "" {
		return Config{}, fmt.Errorf("llm api key must be provided")
	}

	switch cfg.StorageProvider {
	case StorageProviderMinio:
		if cfg.StorageEndpoint == "" {
			return Config{}, fmt.Errorf("storage endpoint must be provided")
		}
		if _, _, err := cfg.StorageKeys(); err != nil {
			return Config{}, err
		}
	case StorageProviderCloudinary:
	default:
		return Config{}, fmt.Errorf("unsupported storage provider %q", cfg.StorageProvider)
	}

	if cfg.LLMVisionModel == "" {
		cfg.LLMVisionModel = cfg.LLMModel
	}

	if cfg.MaxPageImages <= 0 {
		cfg.MaxPageImages = 5
	}

	if cfg.UploadMaxSizeMB <= 0 {
		cfg.UploadMaxSizeMB = 20
	}

	return cfg, nil
}

func parseDuration(value string, fallback time.Duration) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	return time.ParseDuration(value)
}
