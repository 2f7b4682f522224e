package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	ListenAddr string
	DBPath     string
	PhotoPath  string
	LogLevel   string
	LogFile    string
	LogFormat  string

	AdvisorBackend string
	GeminiAPIKey   string
	GeminiModel    string
	GeminiBaseURL  string
	ClaudeAPIKey   string
	ClaudeModel    string
	OpenAIAPIKey   string
	OpenAIModel    string
	OpenAIBaseURL  string
	OllamaHost     string
	OllamaModel    string
	RelayURL       string
	// APIKeyParam names an SSM parameter holding the API key for the selected
	// backend. When set it takes precedence over the *_API_KEY variables.
	APIKeyParam string

	CameraSnapshotURL string
	SessionTTL        time.Duration
	NodeID            int64
}

func Load() *Config {
	return &Config{
		ListenAddr:        getEnv("LISTEN_ADDR", ":8080"),
		DBPath:            getEnv("DB_PATH", "/data/skintell.db"),
		PhotoPath:         getEnv("PHOTO_LOCAL_PATH", "/data/photos"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFile:           getEnv("LOG_FILE", ""),
		LogFormat:         getEnv("LOG_FORMAT", "json"),
		AdvisorBackend:    getEnv("ADVISOR_BACKEND", "gemini"),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GeminiModel:       getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		GeminiBaseURL:     getEnv("GEMINI_BASE_URL", ""),
		ClaudeAPIKey:      getEnv("CLAUDE_API_KEY", ""),
		ClaudeModel:       getEnv("CLAUDE_MODEL", "claude-3-5-haiku-latest"),
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", ""),
		OllamaHost:        getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OllamaModel:       getEnv("OLLAMA_MODEL", "llava"),
		RelayURL:          getEnv("RELAY_URL", ""),
		APIKeyParam:       getEnv("API_KEY_PARAM", ""),
		CameraSnapshotURL: getEnv("CAMERA_SNAPSHOT_URL", ""),
		SessionTTL:        getDuration("SESSION_TTL", 30*time.Minute),
		NodeID:            getInt("NODE_ID", 1),
	}
}

// APIKey returns the configured key for the selected advisor backend.
func (c *Config) APIKey() string {
	switch c.AdvisorBackend {
	case "claude":
		return c.ClaudeAPIKey
	case "openai":
		return c.OpenAIAPIKey
	case "gemini":
		return c.GeminiAPIKey
	default:
		return ""
	}
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

// getDuration falls back to defaultVal when the variable is unset or does not
// parse as a positive duration.
func getDuration(key string, defaultVal time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func getInt(key string, defaultVal int64) int64 {
	n, err := strconv.ParseInt(getEnv(key, ""), 10, 64)
	if err != nil {
		return defaultVal
	}
	return n
}
