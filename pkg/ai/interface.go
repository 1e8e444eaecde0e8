package ai

import "context"

// RawClassification is the classifier output exactly as the external model
// returned it, before normalization at the pipeline boundary. Category is an
// open string here; the closed enum lives in the agent domain.
type RawClassification struct {
	Summary          string   `json:"summary"`
	Category         string   `json:"category"`
	Priority         string   `json:"priority"`
	Confidence       float64  `json:"confidence"`
	ActionItems      []string `json:"action_items"`
	Deadlines        []string `json:"deadlines"`
	KeyPoints        []string `json:"key_points"`
	RequiresResponse bool     `json:"requires_response"`
	Sentiment        string   `json:"sentiment"`
}

// Provider is the black-box LLM contract the agent consumes: classification,
// reply generation and text embeddings. Implement this interface to add new
// AI providers (Gemini, Ollama, OpenAI, etc.)
type Provider interface {
	Name() string
	ClassifyEmail(ctx context.Context, emailText string) (*RawClassification, error)
	GenerateReply(ctx context.Context, subject, sender, body string) (string, error)
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// ProviderType represents the AI provider type
type ProviderType string

const (
	ProviderGemini ProviderType = "gemini"
	ProviderOllama ProviderType = "ollama"
	ProviderOpenAI ProviderType = "openai"
	ProviderAuto   ProviderType = "auto"
)
