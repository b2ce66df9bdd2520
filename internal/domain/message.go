package domain

import (
	"context"
	"strings"
	"time"
)

// Media is an attachment in either direction. Outbound media must carry an
// absolute URL or raw bytes.
type Media struct {
	MimeType string `json:"mimetype"`
	Filename string `json:"filename,omitempty"`
	Data     []byte `json:"data,omitempty"`
	URL      string `json:"url,omitempty"`
}

func (m *Media) IsImage() bool {
	return m != nil && strings.HasPrefix(strings.ToLower(m.MimeType), "image/")
}

type InboundMessage struct {
	ChatID     string    `json:"chat_id"`
	Sender     string    `json:"sender"`
	Text       string    `json:"text"`
	FromMe     bool      `json:"from_me"`
	HasMedia   bool      `json:"has_media"`
	Media      *Media    `json:"media,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}

// Caller is the identity every function call is scoped to. Phone is the
// normalized customer identifier; ChatID is where replies go.
type Caller struct {
	Phone  string
	ChatID string
}

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type HistoryEntry struct {
	Role    Role      `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

type HistoryStore interface {
	Append(ctx context.Context, conversation string, entry HistoryEntry) error
	Recent(ctx context.Context, conversation string, limit int) ([]HistoryEntry, error)
}

type GenerationRequest struct {
	System   string
	Messages []ChatMessage
}

type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}

type Channel interface {
	SendText(ctx context.Context, address, text string) error
	SendMedia(ctx context.Context, address string, media Media, caption string) error
}
