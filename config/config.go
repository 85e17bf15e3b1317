// Package config はアプリケーション設定の読み込みを提供する。
package config

import (
	"os"
	"strconv"
	"time"
)

// DefaultPlatformBaseURL は決済プラットフォームのサンドボックス環境URL。
// 本番環境では https://api.mangopay.com を設定する。
const DefaultPlatformBaseURL = "https://api.sandbox.mangopay.com"

// Config はアプリケーション設定を表す。
type Config struct {
	Port               string
	DatabaseURL        string
	KMSKeyName         string
	GoogleCloudProject string
	LogLevel           string

	OtelEnabled      bool
	OtelEndpoint     string
	OtelServiceName  string
	OtelSamplingRate float64

	// 決済プラットフォーム（値は検証せずそのまま利用する）
	PlatformBaseURL  string
	PlatformClientID string

	HTTPTimeout time.Duration
	HostRuntime string

	// サンドボックスサーバー
	SandboxPublicURL string
	SandboxSealKey   string
}

// Load は環境変数から設定を読み込む。
func Load() *Config {
	port := getEnv("PORT", "8080")
	return &Config{
		Port:               port,
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		KMSKeyName:         os.Getenv("KMS_KEY_NAME"),
		GoogleCloudProject: os.Getenv("GOOGLE_CLOUD_PROJECT"),
		LogLevel:           getEnv("LOG_LEVEL", "INFO"),
		OtelEnabled:        getEnvBool("OTEL_ENABLED", false),
		OtelEndpoint:       getEnv("OTEL_ENDPOINT", "localhost:4317"),
		OtelServiceName:    getEnv("OTEL_SERVICE_NAME", "card-registration-kit"),
		OtelSamplingRate:   getEnvFloat("OTEL_SAMPLING_RATE", 1.0),
		PlatformBaseURL:    getEnv("PAYMENT_PLATFORM_BASE_URL", DefaultPlatformBaseURL),
		PlatformClientID:   os.Getenv("PAYMENT_PLATFORM_CLIENT_ID"),
		HTTPTimeout:        getEnvDuration("HTTP_TIMEOUT", 30*time.Second),
		HostRuntime:        getEnv("HOST_RUNTIME", "native"),
		SandboxPublicURL:   getEnv("SANDBOX_PUBLIC_URL", "http://localhost:"+port),
		SandboxSealKey:     os.Getenv("SANDBOX_SEAL_KEY"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	val, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultVal
	}
	return val
}

func getEnvFloat(key string, defaultVal float64) float64 {
	val, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultVal
	}
	return val
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultVal
	}
	return val
}
