package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"

	FollowUpPolicyRepair      = "repair"
	FollowUpPolicyPassthrough = "passthrough"
)

type Config struct {
	AppEnv                string
	AppName               string
	AppPort               string
	LogLevel              string
	CORSAllowOrigins      []string
	AIProvider            string
	GeminiAPIKey          string
	GeminiModel           string
	GeminiBaseURL         string
	OpenAIAPIKey          string
	OpenAIModel           string
	OpenAIBaseURL         string
	AIMaxOutputTokens     int
	AITimeoutSeconds      int
	HistoryCap            int
	ContextWindow         int
	AssistantCity         string
	ProfilesReferencePath string
	FollowUpPolicy        string
}

func Load() Config {
	_ = godotenv.Load(".env")

	return Config{
		AppEnv:                getEnv("APP_ENV", "local"),
		AppName:               getEnv("APP_NAME", "Digital Parbhani Chat API"),
		AppPort:               getEnv("APP_PORT", "8000"),
		LogLevel:              strings.ToLower(getEnv("LOG_LEVEL", "info")),
		CORSAllowOrigins:      getEnvCSV("CORS_ALLOW_ORIGINS", []string{"*"}),
		AIProvider:            strings.ToLower(getEnv("AI_PROVIDER", ProviderGemini)),
		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		GeminiModel:           getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiBaseURL:         getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		OpenAIAPIKey:          getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:           getEnv("OPENAI_MODEL", "gpt-5-mini"),
		OpenAIBaseURL:         getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		AIMaxOutputTokens:     getEnvInt("AI_MAX_OUTPUT_TOKENS", 2048),
		AITimeoutSeconds:      getEnvInt("AI_TIMEOUT_SECONDS", 30),
		HistoryCap:            getEnvInt("HISTORY_CAP", 10),
		ContextWindow:         getEnvInt("CONTEXT_WINDOW", 5),
		AssistantCity:         getEnv("ASSISTANT_CITY", "Parbhani"),
		ProfilesReferencePath: getEnv("PROFILES_REFERENCE_PATH", ""),
		FollowUpPolicy:        strings.ToLower(getEnv("FOLLOW_UP_POLICY", FollowUpPolicyRepair)),
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.AppPort) == "" {
		return errors.New("APP_PORT is required")
	}
	switch c.AIProvider {
	case ProviderGemini:
		if strings.TrimSpace(c.GeminiAPIKey) == "" {
			return errors.New("GEMINI_API_KEY is required when AI_PROVIDER=gemini")
		}
		if strings.TrimSpace(c.GeminiModel) == "" {
			return errors.New("GEMINI_MODEL is required")
		}
		if strings.TrimSpace(c.GeminiBaseURL) == "" {
			return errors.New("GEMINI_BASE_URL is required")
		}
	case ProviderOpenAI:
		if strings.TrimSpace(c.OpenAIAPIKey) == "" {
			return errors.New("OPENAI_API_KEY is required when AI_PROVIDER=openai")
		}
		if strings.TrimSpace(c.OpenAIBaseURL) == "" {
			return errors.New("OPENAI_BASE_URL is required")
		}
	case ProviderMock:
	default:
		return errors.Errorf("AI_PROVIDER must be one of gemini, openai, mock (got %q)", c.AIProvider)
	}
	if c.AITimeoutSeconds <= 0 {
		return errors.New("AI_TIMEOUT_SECONDS must be > 0")
	}
	if c.HistoryCap <= 0 {
		return errors.New("HISTORY_CAP must be > 0")
	}
	if c.ContextWindow <= 0 {
		return errors.New("CONTEXT_WINDOW must be > 0")
	}
	if c.ContextWindow > c.HistoryCap {
		return errors.Errorf("CONTEXT_WINDOW (%d) cannot exceed HISTORY_CAP (%d)", c.ContextWindow, c.HistoryCap)
	}
	switch c.FollowUpPolicy {
	case FollowUpPolicyRepair, FollowUpPolicyPassthrough:
	default:
		return errors.Errorf("FOLLOW_UP_POLICY must be repair or passthrough (got %q)", c.FollowUpPolicy)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvCSV(key string, fallback []string) []string {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, item := range parts {
		trimmed := strings.TrimSpace(item)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return fallback
	}
	return result
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}
