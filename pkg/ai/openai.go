package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIService implements Provider using the OpenAI API
type OpenAIService struct {
	client *openai.Client
	model  string
}

func NewOpenAIService(apiKey, model string) *OpenAIService {
	if model == "" {
		model = openai.GPT3Dot5Turbo
	}
	return &OpenAIService{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

func (s *OpenAIService) Name() string { return string(ProviderOpenAI) }

// ClassifyEmail implements Provider
func (s *OpenAIService) ClassifyEmail(ctx context.Context, emailText string) (*RawClassification, error) {
	prompt := fmt.Sprintf(`Analyze the following email and respond with ONLY a JSON object:
{
  "summary": "2-3 sentence summary",
  "category": "one of: important, urgent, job, promotional, spam, general",
  "confidence": 0.0-1.0,
  "priority": "high, medium or low",
  "action_items": [],
  "deadlines": [],
  "key_points": [],
  "requires_response": true/false,
  "sentiment": "positive, neutral or negative"
}

EMAIL:
%s`, emailText)

	text, err := s.chat(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var result RawClassification
	if err := json.Unmarshal([]byte(extractJSON(text)), &result); err != nil {
		return nil, fmt.Errorf("failed to parse classification JSON: %w", err)
	}
	return &result, nil
}

// GenerateReply implements Provider
func (s *OpenAIService) GenerateReply(ctx context.Context, subject, sender, body string) (string, error) {
	prompt := fmt.Sprintf(`Generate a professional auto-response to the job-related email below.
Express interest, mention a resume is attached, indicate availability for further discussion.
3-4 short paragraphs. Output ONLY the email body, no subject line.

Subject: %s
From: %s
Body:
%s`, subject, sender, body)

	return s.chat(ctx, prompt)
}

// EmbedText implements Provider
func (s *OpenAIService) EmbedText(ctx context.Context, text string) ([]float32, error) {
	resp, err := s.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.AdaEmbeddingV2,
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings request failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return resp.Data[0].Embedding, nil
}

func (s *OpenAIService) chat(ctx context.Context, prompt string) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: 0.3,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no content returned")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
