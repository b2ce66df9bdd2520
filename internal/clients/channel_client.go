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

const chatSuffix = "@c.us"

type sendTextRequest struct {
	ChatID string `json:"chatId"`
	Text   string `json:"text"`
}

type sendMediaRequest struct {
	ChatID   string `json:"chatId"`
	URL      string `json:"url,omitempty"`
	Data     []byte `json:"data,omitempty"`
	MimeType string `json:"mimetype,omitempty"`
	Filename string `json:"filename,omitempty"`
	Caption  string `json:"caption,omitempty"`
}

type channelHTTPClient struct {
	baseURL string
	client  *http.Client
	log     *logrus.Logger
}

// NewChannelHTTPClient talks to the messaging gateway that owns the
// WhatsApp session.
func NewChannelHTTPClient(baseURL string, timeout time.Duration, logger *logrus.Logger) domain.Channel {
	baseURL = strings.TrimRight(baseURL, "/")
	logger.Infof("ChannelClient: Using gateway at %s", baseURL)
	return &channelHTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		log:     logger,
	}
}

// ChatID turns a bare phone number into a channel chat id.
func ChatID(address string) string {
	if strings.Contains(address, "@") {
		return address
	}
	return address + chatSuffix
}

func (c *channelHTTPClient) SendText(ctx context.Context, address, text string) error {
	return c.post(ctx, "/send-text", sendTextRequest{ChatID: ChatID(address), Text: text})
}

func (c *channelHTTPClient) SendMedia(ctx context.Context, address string, media domain.Media, caption string) error {
	if media.URL == "" && len(media.Data) == 0 {
		return fmt.Errorf("%w: media needs a url or data", domain.ErrValidation)
	}
	return c.post(ctx, "/send-media", sendMediaRequest{
		ChatID:   ChatID(address),
		URL:      media.URL,
		Data:     media.Data,
		MimeType: media.MimeType,
		Filename: media.Filename,
		Caption:  caption,
	})
}

func (c *channelHTTPClient) post(ctx context.Context, path string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to prepare channel request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		c.log.Errorf("ChannelClient: Failed to create %s request: %v", path, err)
		return fmt.Errorf("failed to create channel request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Errorf("ChannelClient: Failed to execute %s request: %v", path, err)
		return fmt.Errorf("failed to communicate with messaging channel: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		c.log.Errorf("ChannelClient: %s failed with status %d. Response body: %s", path, resp.StatusCode, string(bodyBytes))
		return fmt.Errorf("messaging channel returned status %d for %s", resp.StatusCode, path)
	}
	return nil
}
