// ABOUTME: Mistral chat-completions client implementing the Classifier capability
// ABOUTME: Bearer-authenticated JSON POST with a bounded per-call timeout

package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	mistralAPIURL = "https://api.mistral.ai/v1/chat/completions"

	// classifyTimeout bounds one classification round trip.
	classifyTimeout = 30 * time.Second
)

// MistralClient calls the Mistral chat-completions API.
type MistralClient struct {
	apiKey string
	model  string
	apiURL string
	client *http.Client
}

// NewMistralClient creates a classifier backed by the Mistral API.
func NewMistralClient(apiKey, model string) *MistralClient {
	return &MistralClient{
		apiKey: apiKey,
		model:  model,
		apiURL: mistralAPIURL,
		client: &http.Client{Timeout: classifyTimeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends one system+user exchange and returns the model's text.
func (c *MistralClient) Complete(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, classifyTimeout)
	defer cancel()

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("encoding chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling mistral: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("reading mistral response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("mistral returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decoding mistral response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("mistral response carried no choices")
	}

	return parsed.Choices[0].Message.Content, nil
}

// Ensure MistralClient implements Classifier.
var _ Classifier = (*MistralClient)(nil)
