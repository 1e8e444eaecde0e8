package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// OllamaService implements Provider using a local Ollama instance
type OllamaService struct {
	BaseURL    string
	Model      string
	EmbedModel string
}

// NewOllamaService creates a new Ollama service
func NewOllamaService(baseURL, model, embedModel string) *OllamaService {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3"
	}
	if embedModel == "" {
		embedModel = "nomic-embed-text"
	}
	return &OllamaService{
		BaseURL:    baseURL,
		Model:      model,
		EmbedModel: embedModel,
	}
}

func (o *OllamaService) Name() string { return string(ProviderOllama) }

// ClassifyEmail implements Provider
func (o *OllamaService) ClassifyEmail(ctx context.Context, emailText string) (*RawClassification, error) {
	prompt := fmt.Sprintf(`You are an email triage assistant. Analyze the email below.

Respond with ONLY a JSON object, no other text:
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
%s

JSON OUTPUT:`, emailText)

	text, err := o.generate(ctx, prompt, 500)
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
func (o *OllamaService) GenerateReply(ctx context.Context, subject, sender, body string) (string, error) {
	prompt := fmt.Sprintf(`Generate a professional, courteous auto-response to the job-related email below.
Express interest, mention a resume is attached, indicate availability for further discussion.
3-4 short paragraphs. Output ONLY the email body, no subject line.

Original Email Subject: %s
From: %s
Body:
%s

RESPONSE:`, subject, sender, body)

	return o.generate(ctx, prompt, 400)
}

// EmbedText implements Provider using the Ollama embeddings endpoint
func (o *OllamaService) EmbedText(ctx context.Context, text string) ([]float32, error) {
	url := o.BaseURL + "/api/embeddings"

	payload := map[string]interface{}{
		"model":  o.EmbedModel,
		"prompt": text,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama API error (%d): %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Embedding []float64 `json:"embedding"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse embed response: %w", err)
	}
	if len(result.Embedding) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}

	vec := make([]float32, len(result.Embedding))
	for i, v := range result.Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}

func (o *OllamaService) generate(ctx context.Context, prompt string, numPredict int) (string, error) {
	url := o.BaseURL + "/api/generate"

	payload := map[string]interface{}{
		"model":  o.Model,
		"prompt": prompt,
		"stream": false,
		"options": map[string]interface{}{
			"temperature": 0.3,
			"num_predict": numPredict,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama API error (%d): %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Response string `json:"response"`
		Done     bool   `json:"done"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	return strings.TrimSpace(result.Response), nil
}
