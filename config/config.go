package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
type Config struct {
	Port          string
	PublicBaseURL string // Used to build absolute URLs for stored media

	LogLevel string
	LogFile  string

	// DBDriver is "mysql" in production; "sqlite" is handy for local runs.
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	SQLitePath string

	RedisHost         string
	RedisPort         string
	RedisPassword     string
	RedisDB           int
	NarrationCacheTTL time.Duration

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioRegion    string
	MinioUseSSL    bool

	// JWTSecret verifies bearer tokens issued by the auth provider.
	JWTSecret string

	OpenAIAPIKey    string
	OpenAIBaseURL   string
	VisionModel     string
	ChatModel       string
	TranscribeModel string
	SpeechModel     string

	ElevenLabsAPIKey  string
	ElevenLabsBaseURL string
	ElevenLabsVoiceID string
	ElevenLabsModel   string

	PromptDir string

	PlayerLoadTimeout      time.Duration
	PlayerProgressInterval time.Duration
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("15s", "100ms").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() does not override variables that are already set.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on existing environment variables and defaults.")
	}

	port := getEnv("PORT", "8080")

	return &Config{
		Port:          port,
		PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:"+port), "/"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),

		DBDriver:   getEnv("DB_DRIVER", "mysql"),
		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"), // no hardcoded default for the password
		DBName:     getEnv("DB_NAME", "artlens"),
		SQLitePath: getEnv("SQLITE_PATH", filepath.Join("data", "artlens.db")),

		RedisHost:         getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:         getEnv("REDIS_PORT", "6379"),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisDB:           getEnvInt("REDIS_DB", 0),
		NarrationCacheTTL: getEnvDuration("NARRATION_CACHE_TTL", 7*24*time.Hour),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "127.0.0.1:9000"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getEnv("MINIO_BUCKET", "artlens"),
		MinioRegion:    getEnv("MINIO_REGION", "us-east-1"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		JWTSecret: os.Getenv("JWT_SECRET"),

		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", ""),
		VisionModel:     getEnv("OPENAI_VISION_MODEL", "gpt-4o"),
		ChatModel:       getEnv("OPENAI_CHAT_MODEL", "gpt-4"),
		TranscribeModel: getEnv("OPENAI_TRANSCRIBE_MODEL", "whisper-1"),
		SpeechModel:     getEnv("OPENAI_SPEECH_MODEL", "tts-1"),

		ElevenLabsAPIKey:  os.Getenv("ELEVENLABS_API_KEY"),
		ElevenLabsBaseURL: getEnv("ELEVENLABS_BASE_URL", "https://api.elevenlabs.io"),
		ElevenLabsVoiceID: getEnv("ELEVENLABS_VOICE_ID", "EXAVITQu4vr4xnSDxMaL"), // Bella, English
		ElevenLabsModel:   getEnv("ELEVENLABS_MODEL", "eleven_multilingual_v2"),

		PromptDir: getEnv("PROMPT_DIR", ""),

		PlayerLoadTimeout:      getEnvDuration("PLAYER_LOAD_TIMEOUT", 15*time.Second),
		PlayerProgressInterval: getEnvDuration("PLAYER_PROGRESS_INTERVAL", 100*time.Millisecond),
	}
}

// StorageEnabled reports whether MinIO credentials were provided.
func (c *Config) StorageEnabled() bool {
	return c.MinioAccessKey != "" && c.MinioSecretKey != ""
}
