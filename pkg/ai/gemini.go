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

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// GeminiService implements Provider using the Gemini REST API.
// gemini-2.5-flash for text, text-embedding-004 for embeddings.
type GeminiService struct {
	ApiKey     string
	Model      string
	EmbedModel string
}

func NewGeminiService(apiKey string) *GeminiService {
	return &GeminiService{
		ApiKey:     apiKey,
		Model:      "gemini-2.5-flash",
		EmbedModel: "text-embedding-004",
	}
}

func (g *GeminiService) Name() string { return string(ProviderGemini) }

// ClassifyEmail asks Gemini for a structured JSON analysis of the email.
func (g *GeminiService) ClassifyEmail(ctx context.Context, emailText string) (*RawClassification, error) {
	prompt := fmt.Sprintf(`Analyze the following email and provide a structured summary in JSON format.

EMAIL:
%s

Provide a JSON response with the following structure:
{
    "summary": "A concise 2-3 sentence summary of the email",
    "category": "One of: important, urgent, job, promotional, spam, general",
    "confidence": 0.0-1.0 confidence in the category,
    "priority": "One of: high, medium, low",
    "action_items": ["List of action items mentioned"],
    "deadlines": ["List of deadlines or time-sensitive information"],
    "key_points": ["3-5 key points from the email"],
    "requires_response": true/false,
    "sentiment": "positive, neutral, or negative"
}

Respond ONLY with valid JSON, no other text.`, emailText)

	text, err := g.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var result RawClassification
	if err := json.Unmarshal([]byte(extractJSON(text)), &result); err != nil {
		return nil, fmt.Errorf("failed to parse classification JSON: %w", err)
	}
	return &result, nil
}

// GenerateReply produces the body of an auto-response for a job-related email.
func (g *GeminiService) GenerateReply(ctx context.Context, subject, sender, body string) (string, error) {
	prompt := fmt.Sprintf(`Generate a professional auto-response to the following job-related email.

Original Email Subject: %s
From: %s
Body:
%s

The response should:
1. Be professional and courteous
2. Express interest in the opportunity
3. Mention that a resume is attached
4. Indicate availability for further discussion
5. Be concise (3-4 paragraphs)

Generate ONLY the email body, no subject line.`, subject, sender, body)

	return g.generate(ctx, prompt)
}

// EmbedText returns the embedding vector for the given text.
func (g *GeminiService) EmbedText(ctx context.Context, text string) ([]float32, error) {
	url := fmt.Sprintf("%s/%s:embedContent?key=%s", geminiBaseURL, g.EmbedModel, g.ApiKey)

	payload := map[string]interface{}{
		"content": map[string]interface{}{
			"parts": []map[string]string{{"text": text}},
		},
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
		return nil, fmt.Errorf("gemini embed request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gemini API error (%d): %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Embedding struct {
			Values []float32 `json:"values"`
		} `json:"embedding"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse embed response: %w", err)
	}
	if len(result.Embedding.Values) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}

	return result.Embedding.Values, nil
}

// generate runs one generateContent call and returns the first candidate text.
func (g *GeminiService) generate(ctx context.Context, prompt string) (string, error) {
	url := fmt.Sprintf("%s/%s:generateContent?key=%s", geminiBaseURL, g.Model, g.ApiKey)

	payload := map[string]interface{}{
		"contents": []map[string]interface{}{
			{"parts": []map[string]string{{"text": prompt}}},
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
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini API error (%d): %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content returned")
	}
	return strings.TrimSpace(result.Candidates[0].Content.Parts[0].Text), nil
}

// extractJSON strips markdown code fences and surrounding prose from a model
// response that is supposed to be a single JSON object.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx != -1 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end != -1 && end > start {
		return text[start : end+1]
	}
	return text
}
