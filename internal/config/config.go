package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port int

	AzureOpenAIEndpoint   string
	AzureOpenAIAPIKey     string
	AzureOpenAIAPIVersion string
	ChatDeployment        string

	SignupBaseURL string
	DashboardURL  string

	RecommendationURL     string
	RecommendationPayload string // "submission_id" or "data"

	FirestoreProject         string
	FirestoreCredentialsFile string

	BrevoAPIKey     string
	BrevoTemplateID int

	GiphyAPIKey string

	NatsURL   string
	NatsToken string

	LogLevel string
}

func Load() Config {
	return Config{
		Port:                  envInt("UCHI_PORT", 8780),
		AzureOpenAIEndpoint:   envStr("AZURE_OPENAI_ENDPOINT", ""),
		AzureOpenAIAPIKey:     envStr("AZURE_OPENAI_API_KEY", ""),
		AzureOpenAIAPIVersion: envStr("AZURE_OPENAI_API_VERSION", "2024-12-01-preview"),
		ChatDeployment:        envStr("AZURE_OPENAI_CHAT_DEPLOYMENT", "gpt-4o-mini"),

		SignupBaseURL: envStr("UCHI_SIGNUP_URL", ""),
		DashboardURL:  envStr("DASHBOARD_URL", ""),

		RecommendationURL:     envStr("CREATE_RECOMMENDATION_URL", ""),
		RecommendationPayload: envStr("RECOMMENDATION_PAYLOAD", "submission_id"),

		FirestoreProject:         envStr("FIRESTORE_PROJECT", ""),
		FirestoreCredentialsFile: envStr("FIRESTORE_CREDENTIALS_FILE", "firestore-key.json"),

		BrevoAPIKey:     envStr("BREVO_API_KEY", ""),
		BrevoTemplateID: envInt("BREVO_WELCOME_TEMPLATE_ID", 2),

		GiphyAPIKey: envStr("GIPHY_API_KEY", ""),

		NatsURL:   envStr("NATS_URL", ""),
		NatsToken: envStr("NATS_TOKEN", ""),

		LogLevel: envStr("LOG_LEVEL", "info"),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
