package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Storage drivers.
const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

// ServerConfig holds server configuration
type ServerConfig struct {
	Port             string
	Env              string
	ShutdownTimeout  time.Duration
	CORSAllowOrigins []string
}

// MongoConfig holds document store configuration
type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

// StorageConfig selects the backend and its schema rules.
type StorageConfig struct {
	Driver           string
	SchemaValidation bool
	Mongo            MongoConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
}

// Config holds all configuration
type Config struct {
	ServiceName string
	Server      ServerConfig
	Storage     StorageConfig
	Log         LogConfig
}

// Load reads the optional env files, then builds the configuration from the environment.
func Load(envFiles ...string) (*Config, error) {
	// .env files are optional
	_ = godotenv.Load(envFiles...)

	cfg := &Config{
		ServiceName: getEnv("SERVICE_NAME", "medmanage"),
		Server: ServerConfig{
			Port:             getEnv("SERVER_PORT", getEnv("PORT", "5001")),
			Env:              getEnv("APP_ENV", "development"),
			ShutdownTimeout:  getEnvAsDuration("SHUTDOWN_TIMEOUT", 5*time.Second),
			CORSAllowOrigins: getEnvAsList("CORS_ALLOW_ORIGINS", []string{"*"}),
		},
		Storage: StorageConfig{
			Driver:           strings.ToLower(getEnv("STORAGE_DRIVER", DriverMongo)),
			SchemaValidation: getEnvAsBool("SCHEMA_VALIDATION", true),
			Mongo: MongoConfig{
				URI:            getEnv("MONGO_URI", "mongodb://localhost:27017"),
				Database:       getEnv("MONGO_DATABASE", "medmanage"),
				ConnectTimeout: getEnvAsDuration("MONGO_CONNECT_TIMEOUT", 10*time.Second),
			},
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if port, err := strconv.Atoi(cfg.Server.Port); err != nil || port < 1 || port > 65535 {
		return nil, fmt.Errorf("invalid server port %q", cfg.Server.Port)
	}
	return cfg, nil
}

// LogFields returns the configuration as zap fields, without secrets.
func (c *Config) LogFields() []zap.Field {
	return []zap.Field{
		zap.String("service", c.ServiceName),
		zap.String("environment", c.Server.Env),
		zap.String("server_port", c.Server.Port),
		zap.String("storage_driver", c.Storage.Driver),
		zap.String("mongo_database", c.Storage.Mongo.Database),
		zap.Bool("schema_validation", c.Storage.SchemaValidation),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
