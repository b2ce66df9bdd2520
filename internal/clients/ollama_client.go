package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ACCLANKA/ai-whatsapp-bot/internal/domain"

	"github.com/sirupsen/logrus"
)

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  ollamaOptions   `json:"options"`
}

type ollamaChatResponse struct {
	Model   string        `json:"model"`
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
	Error   string        `json:"error,omitempty"`
}

type OllamaConfig struct {
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

type ollamaHTTPClient struct {
	cfg    OllamaConfig
	client *http.Client
	log    *logrus.Logger
}

// NewOllamaClient returns a domain.Generator backed by the Ollama chat API.
// The per-call deadline comes from the caller's context; cfg.Timeout only
// bounds the transport.
func NewOllamaClient(cfg OllamaConfig, logger *logrus.Logger) domain.Generator {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	logger.Infof("OllamaClient: Using model %s at %s", cfg.Model, cfg.BaseURL)
	return &ollamaHTTPClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    logger,
	}
}

func (c *ollamaHTTPClient) Generate(ctx context.Context, req domain.GenerationRequest) (string, error) {
	messages := make([]ollamaMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, ollamaMessage{Role: string(domain.RoleSystem), Content: req.System})
	}
	for _, m := range req.Messages {
		messages = append(messages, ollamaMessage{Role: string(m.Role), Content: m.Content})
	}

	body, err := json.Marshal(ollamaChatRequest{
		Model:    c.cfg.Model,
		Messages: messages,
		Stream:   false,
		Options:  ollamaOptions{Temperature: c.cfg.Temperature},
	})
	if err != nil {
		return "", fmt.Errorf("failed to prepare generation request: %w", err)
	}

	url := c.cfg.BaseURL + "/api/chat"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		c.log.Errorf("OllamaClient: Failed to create chat request: %v", err)
		return "", fmt.Errorf("failed to create generation request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		c.log.Errorf("OllamaClient: Chat request failed after %s: %v", time.Since(start).Round(time.Millisecond), err)
		return "", fmt.Errorf("failed to communicate with generation service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		c.log.Errorf("OllamaClient: Chat request failed with status %d. Response body: %s", resp.StatusCode, string(bodyBytes))
		return "", fmt.Errorf("generation service returned status %d", resp.StatusCode)
	}

	var out ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		c.log.Errorf("OllamaClient: Failed to decode chat response: %v", err)
		return "", fmt.Errorf("failed to decode generation response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("generation service error: %s", out.Error)
	}
	if strings.TrimSpace(out.Message.Content) == "" {
		c.log.Warn("OllamaClient: Chat response had empty content")
		return "", fmt.Errorf("generation service returned an empty reply")
	}

	c.log.Debugf("OllamaClient: Generated %d chars in %s", len(out.Message.Content), time.Since(start).Round(time.Millisecond))
	return out.Message.Content, nil
}
