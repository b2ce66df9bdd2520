package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ACCLANKA/ai-whatsapp-bot/internal/domain"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisStore keeps each conversation in a capped list so history survives
// restarts and is shared between replicas. RPUSH+LTRIM bounds the count; the
// byte budget is applied when reading.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	limits Limits
	log    *logrus.Logger
}

var _ domain.HistoryStore = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration, limits Limits, logger *logrus.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		limits: limits.normalized(),
		log:    logger,
	}
}

func (s *RedisStore) key(conversation string) string {
	return s.prefix + conversation
}

func (s *RedisStore) Append(ctx context.Context, conversation string, entry domain.HistoryEntry) error {
	data, err := json.Marshal(clip(entry, s.limits.MaxBytes))
	if err != nil {
		return fmt.Errorf("history marshal error: %w", err)
	}
	key := s.key(conversation)

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, int64(-s.limits.MaxEntries), -1)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("history append error: %w", err)
	}
	return nil
}

func (s *RedisStore) Recent(ctx context.Context, conversation string, limit int) ([]domain.HistoryEntry, error) {
	if limit == 0 {
		return []domain.HistoryEntry{}, nil
	}
	if limit < 0 || limit > s.limits.MaxEntries {
		limit = s.limits.MaxEntries
	}

	raw, err := s.client.LRange(ctx, s.key(conversation), int64(-limit), -1).Result()
	if err != nil {
		if err == redis.Nil {
			return []domain.HistoryEntry{}, nil
		}
		return nil, fmt.Errorf("history read error: %w", err)
	}

	entries := make([]domain.HistoryEntry, 0, len(raw))
	for _, item := range raw {
		var e domain.HistoryEntry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			s.log.Warnf("History: Skipping undecodable entry for %s: %v", conversation, err)
			continue
		}
		entries = append(entries, e)
	}
	return TrimToBudget(entries, s.limits.MaxBytes), nil
}
