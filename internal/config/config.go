package config

import "os"

// Upload limits enforced by the input router before any processing.
const (
	// MaxUploadBytes is the hard ceiling for uploaded documents.
	MaxUploadBytes = 16 << 20 // 16 MiB

	// MinContentChars is the minimum extracted text length considered usable.
	MinContentChars = 100
)

// AllowedUploadExtensions is the document type allow-list.
var AllowedUploadExtensions = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".txt":  true,
	".md":   true,
}

// ServerConfig holds the process-level configuration, all env-driven.
type ServerConfig struct {
	Port         string
	MongoURI     string
	MongoDB      string
	RedisAddr    string
	ExtractorURL string // external document extraction service; empty = local text only
	CORSOrigins  string
	LogLevel     string

	// LTI outcomes credentials for LMS grade passback.
	LTIConsumerKey    string
	LTIConsumerSecret string
}

// Load reads the server configuration from the environment.
func Load() *ServerConfig {
	return &ServerConfig{
		Port:              getEnvOrDefault("PORT", "5000"),
		MongoURI:          getEnvOrDefault("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:           getEnvOrDefault("MONGO_DB", "oppatalent"),
		RedisAddr:         getEnvOrDefault("REDIS_URI", "localhost:6379"),
		ExtractorURL:      os.Getenv("EXTRACTOR_URL"),
		CORSOrigins:       getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*"),
		LogLevel:          getEnvOrDefault("LOG_LEVEL", "info"),
		LTIConsumerKey:    os.Getenv("CANVAS_CONSUMER_KEY"),
		LTIConsumerSecret: os.Getenv("CANVAS_CONSUMER_SECRET"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
