package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	APIToken string
	JWTSecret string

	DatabaseURL string

	// AI providers
	GeminiApiKey     string
	OpenAIApiKey     string
	OpenAIModel      string
	OllamaBaseURL    string
	OllamaModel      string
	OllamaEmbedModel string
	EmbedProvider    string

	// Chroma Cloud (similarity index); falls back to in-memory when unset
	ChromaAPIKey   string
	ChromaTenant   string
	ChromaDatabase string

	// Mail providers
	MailProvider       string // "gmail" or "imap"
	GoogleClientID     string
	GoogleClientSecret string
	GmailAccessToken   string
	GmailRefreshToken  string
	ImapServer         string
	ImapPort           int
	ImapUsername       string
	ImapPassword       string
	SmtpServer         string
	SmtpPort           int
	SmtpUsername       string
	SmtpPassword       string

	// Notifications
	SlackWebhookURL     string
	GoogleProjectID     string
	GooglePubSubTopic   string
	GoogleCredentials   string
	FirebaseCredentials string

	// Processing
	EmailCheckInterval time.Duration
	MaxEmailsPerCheck  int
	WorkerCount        int
	EmbedTimeout       time.Duration
	ClassifyTimeout    time.Duration

	// Duplicate detection
	DuplicateThreshold float64
	DuplicateK         int

	// Decisioning
	JobThreshold  float64
	MinConfidence float64

	// Auto-response
	AutoResponseEnabled bool
	JobKeywords         string
	DefaultResumePath   string
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Port:      getEnv("PORT", "8080"),
		APIToken:  getEnv("API_TOKEN", ""),
		JWTSecret: getEnv("JWT_SECRET", "your-secret-key-change-in-production"),

		DatabaseURL: getEnv("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=mailagent port=5432 sslmode=disable"),

		GeminiApiKey:     getEnv("GEMINI_API_KEY", ""),
		OpenAIApiKey:     getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:      getEnv("OPENAI_MODEL", ""),
		OllamaBaseURL:    getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaModel:      getEnv("OLLAMA_MODEL", "llama3"),
		OllamaEmbedModel: getEnv("OLLAMA_EMBED_MODEL", "nomic-embed-text"),
		EmbedProvider:    getEnv("EMBED_PROVIDER", "gemini"),

		ChromaAPIKey:   getEnv("CHROMA_API_KEY", ""),
		ChromaTenant:   getEnv("CHROMA_TENANT", ""),
		ChromaDatabase: getEnv("CHROMA_DATABASE", ""),

		MailProvider:       getEnv("MAIL_PROVIDER", "gmail"),
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GmailAccessToken:   getEnv("GMAIL_ACCESS_TOKEN", ""),
		GmailRefreshToken:  getEnv("GMAIL_REFRESH_TOKEN", ""),
		ImapServer:         getEnv("IMAP_SERVER", ""),
		ImapPort:           getEnvInt("IMAP_PORT", 993),
		ImapUsername:       getEnv("IMAP_USERNAME", ""),
		ImapPassword:       getEnv("IMAP_PASSWORD", ""),
		SmtpServer:         getEnv("SMTP_SERVER", "smtp.gmail.com"),
		SmtpPort:           getEnvInt("SMTP_PORT", 587),
		SmtpUsername:       getEnv("SMTP_USERNAME", ""),
		SmtpPassword:       getEnv("SMTP_PASSWORD", ""),

		SlackWebhookURL:     getEnv("SLACK_WEBHOOK_URL", ""),
		GoogleProjectID:     getEnv("GOOGLE_PROJECT_ID", ""),
		GooglePubSubTopic:   getEnv("GOOGLE_PUBSUB_TOPIC", "gmail-updates"),
		GoogleCredentials:   getEnv("GOOGLE_CREDENTIALS", ""),
		FirebaseCredentials: getEnv("FIREBASE_CREDENTIALS", ""),

		EmailCheckInterval: getEnvDuration("EMAIL_CHECK_INTERVAL", 5*time.Minute),
		MaxEmailsPerCheck:  getEnvInt("MAX_EMAILS_PER_CHECK", 50),
		WorkerCount:        getEnvInt("WORKER_COUNT", 3),
		EmbedTimeout:       getEnvDuration("EMBED_TIMEOUT", 10*time.Second),
		ClassifyTimeout:    getEnvDuration("CLASSIFY_TIMEOUT", 30*time.Second),

		DuplicateThreshold: getEnvFloat("DUPLICATE_SIMILARITY_THRESHOLD", 0.85),
		DuplicateK:         getEnvInt("DUPLICATE_QUERY_K", 5),

		JobThreshold:  getEnvFloat("JOB_CONFIDENCE_THRESHOLD", 0.75),
		MinConfidence: getEnvFloat("MIN_CLASSIFICATION_CONFIDENCE", 0.5),

		AutoResponseEnabled: getEnvBool("AUTO_RESPONSE_ENABLED", true),
		JobKeywords:         getEnv("JOB_KEYWORDS", "job,opportunity,position,hiring,career,interview,recruitment"),
		DefaultResumePath:   getEnv("DEFAULT_RESUME_PATH", "./data/resumes/default_resume.pdf"),
	}
}

// JobKeywordsList returns the configured job keywords, lowercased
func (c *Config) JobKeywordsList() []string {
	parts := strings.Split(c.JobKeywords, ",")
	keywords := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			keywords = append(keywords, p)
		}
	}
	return keywords
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
		// Plain seconds also accepted (original deployment used EMAIL_CHECK_INTERVAL=300)
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}
