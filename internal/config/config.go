package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StorageProviderAzure = "azure"
	StorageProviderGCS   = "gcs"
	StorageProviderLocal = "local"
)

type Config struct {
	HTTPPort string
	LogLevel string

	BackendBaseURL        string
	BackendTimeout        time.Duration
	BackendBreakerEnabled bool
	ProxyForwardStatus    bool

	StorageProvider  string
	ContainerName    string
	UploadMaxBytes   int64
	FormMaxFileBytes int64

	AzureStorageAccountName      string
	AzureStorageAccountKey       string
	AzureStorageConnectionString string
	AzureStorageEndpoint         string

	GCPProjectID       string
	GCPCredentialsFile string

	LocalStoragePath string

	NATSURL     string
	NATSSubject string

	APIRateLimitRPS   float64
	APIRateLimitBurst int
	APIMaxInFlight    int
	APIQueueWait      time.Duration
}

func Load() Config {
	return Config{
		HTTPPort: mustEnv("HTTP_PORT", "3000"),
		LogLevel: mustEnv("LOG_LEVEL", "info"),

		BackendBaseURL:        strings.TrimRight(mustEnv("NEXT_PUBLIC_API_URL", "http://backend:8000"), "/"),
		BackendTimeout:        mustEnvDuration("BACKEND_TIMEOUT", 30*time.Second),
		BackendBreakerEnabled: mustEnvBool("BACKEND_BREAKER_ENABLED", true),
		ProxyForwardStatus:    mustEnvBool("PROXY_FORWARD_STATUS", false),

		StorageProvider:  strings.ToLower(mustEnv("STORAGE_PROVIDER", StorageProviderAzure)),
		ContainerName:    mustEnv("AZURE_STORAGE_CONTAINER_NAME", "hipaadocs"),
		UploadMaxBytes:   mustEnvInt64("UPLOAD_MAX_BYTES", 50<<20),
		FormMaxFileBytes: mustEnvInt64("FORM_MAX_FILE_BYTES", 10<<20),

		AzureStorageAccountName:      mustEnv("AZURE_STORAGE_ACCOUNT_NAME", ""),
		AzureStorageAccountKey:       mustEnv("AZURE_STORAGE_ACCOUNT_KEY", ""),
		AzureStorageConnectionString: mustEnv("AZURE_STORAGE_CONNECTION_STRING", ""),
		AzureStorageEndpoint:         mustEnv("AZURE_STORAGE_ENDPOINT", ""),

		GCPProjectID:       mustEnv("GCP_PROJECT_ID", ""),
		GCPCredentialsFile: mustEnv("GCP_CREDENTIALS_FILE", ""),

		LocalStoragePath: mustEnv("LOCAL_STORAGE_PATH", "./data/blobs"),

		NATSURL:     mustEnv("NATS_URL", ""),
		NATSSubject: mustEnv("NATS_SUBJECT", "documents.uploaded"),

		APIRateLimitRPS:   mustEnvFloat("API_RATE_LIMIT_RPS", 0),
		APIRateLimitBurst: mustEnvInt("API_RATE_LIMIT_BURST", 20),
		APIMaxInFlight:    mustEnvInt("API_MAX_IN_FLIGHT", 0),
		APIQueueWait:      mustEnvDuration("API_QUEUE_WAIT", 250*time.Millisecond),
	}
}

func mustEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func mustEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
