package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port            string
	CORSAllowOrigin []string
	Env             string
	APIToken        string
	DatabaseURL     string
	SnapshotPath    string
	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string
	RetainAudio     bool

	OpenAIAPIKey       string
	OpenAIBaseURL      string
	TranscriptionModel string
	ChatModel          string
	OpenAITimeout      time.Duration
	CredentialsFile    string
	EncryptionSecret   string

	RateLimits       RateLimits
	RateLimitRedis   string
	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration

	FFmpegPath    string
	InputFormat   string
	InputDevice   string
	ChunkInterval time.Duration

	TemplatesFile         string
	ReminderCheckInterval time.Duration
	SQSQueueURL           string
}

// RateLimits holds per-operation request budgets for a 60 second window.
type RateLimits struct {
	Transcribe       int
	TranscribeChunk  int
	Enhance          int
	ExtractReminders int
	API              int
}

// Load reads configuration from the optional TOML file, local env files and
// environment variables. Environment variables win.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	fc := loadFile(filePath())

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is empty in production; meetings are kept in the local snapshot")
	}

	dataDir := getEnv("DATA_DIR", orDefault(fc.DataDir, "./data"))

	return Config{
		Port:            getEnv("PORT", orDefault(fc.Port, "8787")),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173,app://meetnotes")),
		Env:             env,
		APIToken:        getEnv("API_TOKEN", ""),
		DatabaseURL:     dbURL,
		SnapshotPath:    getEnv("SNAPSHOT_PATH", joinPath(dataDir, "meetings.json")),
		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", orDefault(fc.ObjectStore, "local"))),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", joinPath(dataDir, "recordings")),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", fc.S3Bucket),
		S3Prefix:        getEnv("S3_PREFIX", orDefault(fc.S3Prefix, "recordings/")),
		SSEKMSKeyID:     getEnv("SSE_KMS_KEY_ID", ""),
		RetainAudio:     getEnvBool("RETAIN_AUDIO", fc.RetainAudio),

		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", fc.OpenAIAPIKey),
		OpenAIBaseURL:      getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		TranscriptionModel: getEnv("TRANSCRIPTION_MODEL", orDefault(fc.TranscriptionModel, "whisper-1")),
		ChatModel:          getEnv("LLM_MODEL", orDefault(fc.ChatModel, "gpt-4o-mini")),
		OpenAITimeout:      time.Duration(getEnvInt("OPENAI_TIMEOUT_SECONDS", 120)) * time.Second,
		CredentialsFile:    getEnv("CREDENTIALS_FILE", joinPath(dataDir, "credentials.enc")),
		EncryptionSecret:   getEnv("MEETNOTES_ENCRYPTION_KEY", ""),

		RateLimits: RateLimits{
			Transcribe:       getEnvInt("RATE_LIMIT_TRANSCRIBE", orDefaultInt(fc.RateLimits.Transcribe, 10)),
			TranscribeChunk:  getEnvInt("RATE_LIMIT_TRANSCRIBE_CHUNK", orDefaultInt(fc.RateLimits.TranscribeChunk, 20)),
			Enhance:          getEnvInt("RATE_LIMIT_ENHANCE", orDefaultInt(fc.RateLimits.Enhance, 10)),
			ExtractReminders: getEnvInt("RATE_LIMIT_EXTRACT_REMINDERS", orDefaultInt(fc.RateLimits.ExtractReminders, 10)),
			API:              getEnvInt("RATE_LIMIT_API", orDefaultInt(fc.RateLimits.API, 300)),
		},
		RateLimitRedis:   getEnv("RATE_LIMIT_REDIS_URL", ""),
		RetryMaxAttempts: getEnvInt("LLM_RETRY_MAX_ATTEMPTS", 3),
		RetryBaseDelay:   getEnvDuration("LLM_RETRY_BASE_DELAY", 500*time.Millisecond),
		RetryMaxDelay:    getEnvDuration("LLM_RETRY_MAX_DELAY", 8*time.Second),

		FFmpegPath:    getEnv("FFMPEG_PATH", orDefault(fc.FFmpegPath, "ffmpeg")),
		InputFormat:   getEnv("AUDIO_INPUT_FORMAT", orDefault(fc.InputFormat, defaultInputFormat())),
		InputDevice:   getEnv("AUDIO_INPUT_DEVICE", orDefault(fc.InputDevice, defaultInputDevice())),
		ChunkInterval: getEnvDuration("CHUNK_INTERVAL", 10*time.Second),

		TemplatesFile:         getEnv("TEMPLATES_FILE", fc.TemplatesFile),
		ReminderCheckInterval: getEnvDuration("REMINDER_CHECK_INTERVAL", time.Minute),
		SQSQueueURL:           strings.TrimSpace(getEnv("MN_SQS_QUEUE_URL", "")),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("config env %s invalid int: %v", key, err)
		return def
	}
	return val
}

func getEnvBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("config env %s invalid bool: %v", key, err)
		return def
	}
	return val
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("config env %s invalid duration: %v", key, err)
		return def
	}
	return val
}

func orDefault(val, def string) string {
	if strings.TrimSpace(val) != "" {
		return val
	}
	return def
}

func orDefaultInt(val, def int) int {
	if val > 0 {
		return val
	}
	return def
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}
