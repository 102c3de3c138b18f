package environments

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Gateway  GatewayConfig
	Dispatch DispatchConfig
	Auth     AuthConfig
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type CacheConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// GatewayConfig points at the external Evolution API service.
type GatewayConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

type DispatchConfig struct {
	ScanInterval time.Duration
	BatchSize    int
	Timezone     string
	AutoStart    bool
}

type AuthConfig struct {
	JobsAPIKey       string
	DispatcherAPIKey string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: GetEnv("SERVER_PORT", "8080"),
		},
		Database: DatabaseConfig{
			Host:     GetEnv("DB_HOST", "localhost"),
			Port:     GetEnv("DB_PORT", "3306"),
			User:     GetEnv("DB_USER", "evodispatch"),
			Password: GetEnv("DB_PASSWORD", "evodispatch123"),
			DBName:   GetEnv("DB_NAME", "evo_dispatch"),
		},
		Cache: CacheConfig{
			Host:     GetEnv("CACHE_HOST", "localhost"),
			Port:     GetEnv("CACHE_PORT", "6379"),
			Password: GetEnv("CACHE_PASSWORD", ""),
			DB:       GetEnvAsInt("CACHE_DB", 0),
		},
		Gateway: GatewayConfig{
			URL:     GetEnv("EVOLUTION_API_URL", "https://evo.autozapi.com"),
			APIKey:  GetEnv("EVOLUTION_API_KEY", ""),
			Timeout: time.Duration(GetEnvAsInt("EVOLUTION_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		Dispatch: DispatchConfig{
			ScanInterval: GetEnvAsDuration("DISPATCH_SCAN_INTERVAL", 30*time.Second),
			BatchSize:    GetEnvAsInt("DISPATCH_BATCH_SIZE", 50),
			Timezone:     GetEnv("DISPATCH_TIMEZONE", "America/Sao_Paulo"),
			AutoStart:    GetEnvAsBool("AUTO_START_DISPATCHER", true),
		},
		Auth: AuthConfig{
			JobsAPIKey:       GetEnv("JOBS_API_KEY", ""),
			DispatcherAPIKey: GetEnv("DISPATCHER_API_KEY", ""),
		},
	}
}

func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func GetEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func GetEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
