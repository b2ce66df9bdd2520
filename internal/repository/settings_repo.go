package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ACCLANKA/ai-whatsapp-bot/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type postgresSettingsRepository struct {
	db       *sql.DB
	defaults domain.Settings
	log      *logrus.Logger
}

// NewPostgresSettingsRepository reads the key/value settings table. Missing or
// unparseable keys resolve to defaults.
func NewPostgresSettingsRepository(db *sql.DB, defaults domain.Settings, logger *logrus.Logger) domain.SettingsRepository {
	return &postgresSettingsRepository{
		db:       db,
		defaults: defaults,
		log:      logger,
	}
}

func (r *postgresSettingsRepository) Load(ctx context.Context) (*domain.Settings, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		r.log.Errorf("Repository: Failed to load settings: %v", err)
		return nil, fmt.Errorf("could not load settings: %w", err)
	}
	defer rows.Close()

	values := map[string]string{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("error scanning setting: %w", err)
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating settings: %w", err)
	}
	return r.resolve(values), nil
}

func (r *postgresSettingsRepository) resolve(values map[string]string) *domain.Settings {
	s := r.defaults

	s.AutoReplyEnabled = r.boolValue(values, domain.SettingAutoReplyEnabled, s.AutoReplyEnabled)
	s.AIModeEnabled = r.boolValue(values, domain.SettingAIModeEnabled, s.AIModeEnabled)
	s.AIFallbackEnabled = r.boolValue(values, domain.SettingAIFallbackEnabled, s.AIFallbackEnabled)
	if v := strings.TrimSpace(values[domain.SettingSystemPrompt]); v != "" {
		s.SystemPrompt = v
	}
	if v, ok := values[domain.SettingHistoryLimit]; ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n >= 0 {
			s.HistoryLimit = n
		} else {
			r.log.Warnf("Repository: Ignoring invalid %s value %q", domain.SettingHistoryLimit, v)
		}
	}
	if v := strings.TrimSpace(values[domain.SettingAdminPhone]); v != "" {
		s.AdminPhone = v
	}
	s.DeliveryFee = r.decimalValue(values, domain.SettingDeliveryFee, s.DeliveryFee)
	s.FreeDeliveryAbove = r.decimalValue(values, domain.SettingFreeDeliveryAbove, s.FreeDeliveryAbove)
	if v := strings.TrimSpace(values[domain.SettingStoreName]); v != "" {
		s.StoreName = v
	}
	return &s
}

func (r *postgresSettingsRepository) boolValue(values map[string]string, key string, fallback bool) bool {
	v, ok := values[key]
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	r.log.Warnf("Repository: Ignoring invalid %s value %q", key, v)
	return fallback
}

func (r *postgresSettingsRepository) decimalValue(values map[string]string, key string, fallback decimal.Decimal) decimal.Decimal {
	v, ok := values[key]
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	d, err := decimal.NewFromString(strings.TrimSpace(v))
	if err != nil || d.IsNegative() {
		r.log.Warnf("Repository: Ignoring invalid %s value %q", key, v)
		return fallback
	}
	return d
}

func (r *postgresSettingsRepository) ConversationMode(ctx context.Context, customerPhone string) (domain.Mode, bool, error) {
	var mode domain.Mode
	err := r.db.QueryRowContext(ctx, `SELECT mode FROM conversation_modes WHERE customer_phone = $1`, customerPhone).Scan(&mode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		r.log.Errorf("Repository: Failed to read conversation mode for %s: %v", customerPhone, err)
		return "", false, fmt.Errorf("could not read conversation mode: %w", err)
	}
	return mode, true, nil
}

func (r *postgresSettingsRepository) SetConversationMode(ctx context.Context, customerPhone string, mode domain.Mode) error {
	if !domain.IsValidMode(mode) {
		return fmt.Errorf("%w: invalid mode '%s'", domain.ErrValidation, mode)
	}
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO conversation_modes (customer_phone, mode) VALUES ($1, $2)
        ON CONFLICT (customer_phone) DO UPDATE SET mode = EXCLUDED.mode, updated_at = NOW()`,
		customerPhone, mode)
	if err != nil {
		r.log.Errorf("Repository: Failed to set conversation mode for %s: %v", customerPhone, err)
		return fmt.Errorf("could not set conversation mode: %w", err)
	}
	r.log.Infof("Repository: Conversation %s switched to %s mode", customerPhone, mode)
	return nil
}

type postgresKeywordRepository struct {
	db  *sql.DB
	log *logrus.Logger
}

func NewPostgresKeywordRepository(db *sql.DB, logger *logrus.Logger) domain.KeywordRepository {
	return &postgresKeywordRepository{
		db:  db,
		log: logger,
	}
}

// Lookup is an exact match on the lowercased, trimmed keyword.
func (r *postgresKeywordRepository) Lookup(ctx context.Context, keyword string) (string, bool, error) {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		return "", false, nil
	}
	var response string
	err := r.db.QueryRowContext(ctx,
		`SELECT response FROM auto_replies WHERE LOWER(keyword) = $1 AND is_active = TRUE`, keyword).Scan(&response)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		r.log.Errorf("Repository: Failed to look up keyword %q: %v", keyword, err)
		return "", false, fmt.Errorf("could not look up keyword: %w", err)
	}
	return response, true, nil
}
