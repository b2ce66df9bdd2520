package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

type Mode string

const (
	ModeKeyword    Mode = "keyword"
	ModeGeneration Mode = "generation"
)

func IsValidMode(m Mode) bool {
	return m == ModeKeyword || m == ModeGeneration
}

// Setting keys stored in the settings table.
const (
	SettingAutoReplyEnabled  = "auto_reply_enabled"
	SettingAIModeEnabled     = "ai_mode_enabled"
	SettingAIFallbackEnabled = "ai_fallback_enabled"
	SettingSystemPrompt      = "ai_system_prompt"
	SettingHistoryLimit      = "ai_conversation_history"
	SettingAdminPhone        = "admin_phone_number"
	SettingDeliveryFee       = "delivery_fee"
	SettingFreeDeliveryAbove = "free_delivery_above"
	SettingStoreName         = "store_name"
)

type Settings struct {
	AutoReplyEnabled  bool
	AIModeEnabled     bool
	AIFallbackEnabled bool
	SystemPrompt      string
	HistoryLimit      int
	AdminPhone        string
	DeliveryFee       decimal.Decimal
	FreeDeliveryAbove decimal.Decimal
	StoreName         string
}

func (s *Settings) Pricing() DeliveryPricing {
	return DeliveryPricing{FlatFee: s.DeliveryFee, FreeAbove: s.FreeDeliveryAbove}
}

func (s *Settings) GlobalMode() Mode {
	if s.AIModeEnabled {
		return ModeGeneration
	}
	return ModeKeyword
}

type SettingsRepository interface {
	Load(ctx context.Context) (*Settings, error)
	ConversationMode(ctx context.Context, customerPhone string) (Mode, bool, error)
	SetConversationMode(ctx context.Context, customerPhone string, mode Mode) error
}

type KeywordRepository interface {
	Lookup(ctx context.Context, keyword string) (string, bool, error)
}

// ConversationUseCase lets the dashboard pin a customer to one mode.
type ConversationUseCase interface {
	SetMode(ctx context.Context, customerPhone string, mode Mode) (string, error)
}
