package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/ACCLANKA/ai-whatsapp-bot/internal/domain"

	"github.com/sirupsen/logrus"
)

type conversationUseCase struct {
	settingsRepo domain.SettingsRepository
	countryCode  string
	log          *logrus.Logger
}

func NewConversationUseCase(settingsRepo domain.SettingsRepository, countryCode string, logger *logrus.Logger) domain.ConversationUseCase {
	return &conversationUseCase{
		settingsRepo: settingsRepo,
		countryCode:  countryCode,
		log:          logger,
	}
}

// SetMode stores the override under the normalized phone and returns it.
func (uc *conversationUseCase) SetMode(ctx context.Context, customerPhone string, mode domain.Mode) (string, error) {
	phone := domain.NormalizePhone(customerPhone, uc.countryCode)
	if phone == "" {
		return "", fmt.Errorf("%w: customer phone is required", domain.ErrValidation)
	}
	mode = domain.Mode(strings.ToLower(strings.TrimSpace(string(mode))))
	if !domain.IsValidMode(mode) {
		return "", fmt.Errorf("%w: mode must be %q or %q", domain.ErrValidation, domain.ModeKeyword, domain.ModeGeneration)
	}
	if err := uc.settingsRepo.SetConversationMode(ctx, phone, mode); err != nil {
		uc.log.Errorf("Use Case: Failed to set %s mode for %s: %v", mode, phone, err)
		return "", err
	}
	uc.log.Infof("Use Case: Conversation %s pinned to %s mode", phone, mode)
	return phone, nil
}
