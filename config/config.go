package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment  string
	Domains      []string
	CertCacheDir string
	HTTPPort     string
	HTTPSPort    string

	StoreDriver string
	DatabaseURL string
	BadgerPath  string
	StorageDir  string
	LogDir      string

	LLMProvider   string
	GeminiAPIKey  string
	GeminiAPIURL  string
	GeminiModel   string
	OpenAIAPIKey  string
	OpenAIModel   string
	LocalLLMURL   string
	LocalLLMModel string

	TTSProvider       string
	ElevenLabsAPIKey  string
	ElevenLabsVoiceID string
	OpenAITTSVoice    string

	IngestWorkers            int
	ExecutionRetention       time.Duration
	ExecutionCleanupInterval time.Duration
}

var isTest bool

func init() {
	isTest = os.Getenv("GO_ENVIRONMENT") == "test"
	if !isTest {
		err := godotenv.Load()
		if err != nil {
			log.Println("Warning: Error loading .env file:", err)
		}
	}
}

func Load() Config {
	geminiModel := getEnv("GEMINI_MODEL", "gemini-2.5-flash")
	return Config{
		Environment:  getEnv("ENVIRONMENT", "development"),
		Domains:      []string{getEnv("DOMAIN", "example.com")},
		CertCacheDir: getEnv("CERT_CACHE_DIR", "certs"),
		HTTPPort:     getEnv("HTTP_PORT", "8000"),
		HTTPSPort:    getEnv("HTTPS_PORT", "443"),

		StoreDriver: getEnv("STORE_DRIVER", "badger"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		BadgerPath:  getEnv("BADGER_PATH", "data/badger"),
		StorageDir:  getEnv("STORAGE_DIR", "data"),
		LogDir:      getEnv("LOG_DIR", "logs/pipeline"),

		LLMProvider:  getEnv("LLM_PROVIDER", "gemini"),
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiAPIURL: getEnv("GEMINI_API_URL",
			"https://generativelanguage.googleapis.com/v1beta/models/"+geminiModel+":generateContent"),
		GeminiModel:   geminiModel,
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		LocalLLMURL:   getEnv("LOCAL_LLM_URL", "http://localhost:11434/v1"),
		LocalLLMModel: getEnv("LOCAL_LLM_MODEL", "llama3.1"),

		TTSProvider:       getEnv("TTS_PROVIDER", "openai"),
		ElevenLabsAPIKey:  getEnv("ELEVENLABS_API_KEY", ""),
		ElevenLabsVoiceID: getEnv("ELEVENLABS_VOICE_ID", "21m00Tcm4TlvDq8ikWAM"),
		OpenAITTSVoice:    getEnv("OPENAI_TTS_VOICE", "alloy"),

		IngestWorkers:            getEnvAsInt("INGEST_WORKERS", 4),
		ExecutionRetention:       getEnvAsDuration("EXECUTION_RETENTION", 24*time.Hour),
		ExecutionCleanupInterval: getEnvAsDuration("EXECUTION_CLEANUP_INTERVAL", time.Hour),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go duration strings ("90m") or a plain number of seconds.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	if d, err := time.ParseDuration(strValue); err == nil {
		return d
	}
	if seconds, err := strconv.Atoi(strValue); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return fallback
}
