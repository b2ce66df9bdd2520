package functions

import (
	"context"

	"github.com/ACCLANKA/ai-whatsapp-bot/internal/domain"

	"github.com/sirupsen/logrus"
)

var _ Authorizer = (*AdminAuthorizer)(nil)

// AdminAuthorizer accepts exactly one address: the configured admin phone,
// compared after normalization.
type AdminAuthorizer struct {
	settings    domain.SettingsRepository
	fallback    string
	countryCode string
	log         *logrus.Logger
}

func NewAdminAuthorizer(settings domain.SettingsRepository, fallbackPhone, countryCode string, logger *logrus.Logger) *AdminAuthorizer {
	return &AdminAuthorizer{
		settings:    settings,
		fallback:    fallbackPhone,
		countryCode: countryCode,
		log:         logger,
	}
}

func (a *AdminAuthorizer) IsAdmin(ctx context.Context, caller domain.Caller) bool {
	admin := a.fallback
	if a.settings != nil {
		s, err := a.settings.Load(ctx)
		if err != nil {
			a.log.Warnf("Registry: Could not load admin setting, using configured default: %v", err)
		} else if s.AdminPhone != "" {
			admin = s.AdminPhone
		}
	}
	return SamePhone(caller.Phone, admin, a.countryCode)
}

// SamePhone compares two addresses after normalization. An empty side
// never matches.
func SamePhone(a, b, countryCode string) bool {
	na := domain.NormalizePhone(a, countryCode)
	nb := domain.NormalizePhone(b, countryCode)
	return na != "" && na == nb
}
