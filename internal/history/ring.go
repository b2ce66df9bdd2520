// Package history keeps the recent conversation window handed to the
// generation service. Every store is bounded by entry count and by bytes.
package history

import (
	"context"
	"strings"
	"sync"

	"github.com/ACCLANKA/ai-whatsapp-bot/internal/domain"
)

type Limits struct {
	MaxEntries int
	MaxBytes   int
}

func (l Limits) normalized() Limits {
	if l.MaxEntries <= 0 {
		l.MaxEntries = 20
	}
	if l.MaxBytes <= 0 {
		l.MaxBytes = 16 * 1024
	}
	return l
}

func entrySize(e domain.HistoryEntry) int {
	return len(e.Content)
}

// clip shortens content that alone exceeds the byte budget, keeping the tail.
func clip(e domain.HistoryEntry, maxBytes int) domain.HistoryEntry {
	if len(e.Content) <= maxBytes {
		return e
	}
	e.Content = strings.ToValidUTF8(e.Content[len(e.Content)-maxBytes:], "")
	return e
}

// TrimToBudget keeps the newest entries whose combined size fits maxBytes.
// Entries are ordered oldest first.
func TrimToBudget(entries []domain.HistoryEntry, maxBytes int) []domain.HistoryEntry {
	if maxBytes <= 0 {
		return entries
	}
	total := 0
	start := len(entries)
	for i := len(entries) - 1; i >= 0; i-- {
		size := entrySize(entries[i])
		if total+size > maxBytes {
			break
		}
		total += size
		start = i
	}
	return entries[start:]
}

type ring struct {
	buf   []domain.HistoryEntry
	head  int
	count int
	bytes int
}

func (r *ring) push(e domain.HistoryEntry, limits Limits) {
	if r.count == len(r.buf) {
		r.evict()
	}
	idx := (r.head + r.count) % len(r.buf)
	r.buf[idx] = e
	r.count++
	r.bytes += entrySize(e)
	for r.bytes > limits.MaxBytes && r.count > 1 {
		r.evict()
	}
}

func (r *ring) evict() {
	r.bytes -= entrySize(r.buf[r.head])
	r.buf[r.head] = domain.HistoryEntry{}
	r.head = (r.head + 1) % len(r.buf)
	r.count--
}

func (r *ring) last(n int) []domain.HistoryEntry {
	if n <= 0 || n > r.count {
		n = r.count
	}
	out := make([]domain.HistoryEntry, 0, n)
	for i := r.count - n; i < r.count; i++ {
		out = append(out, r.buf[(r.head+i)%len(r.buf)])
	}
	return out
}

// MemoryStore is an in-process HistoryStore with one ring per conversation.
type MemoryStore struct {
	mu     sync.Mutex
	limits Limits
	convs  map[string]*ring
}

var _ domain.HistoryStore = (*MemoryStore)(nil)

func NewMemoryStore(limits Limits) *MemoryStore {
	return &MemoryStore{
		limits: limits.normalized(),
		convs:  make(map[string]*ring),
	}
}

func (s *MemoryStore) Append(_ context.Context, conversation string, entry domain.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.convs[conversation]
	if !ok {
		r = &ring{buf: make([]domain.HistoryEntry, s.limits.MaxEntries)}
		s.convs[conversation] = r
	}
	r.push(clip(entry, s.limits.MaxBytes), s.limits)
	return nil
}

func (s *MemoryStore) Recent(_ context.Context, conversation string, limit int) ([]domain.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.convs[conversation]
	if !ok || limit == 0 {
		return []domain.HistoryEntry{}, nil
	}
	return r.last(limit), nil
}

// Size returns the stored entry count and byte total for a conversation.
func (s *MemoryStore) Size(conversation string) (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.convs[conversation]; ok {
		return r.count, r.bytes
	}
	return 0, 0
}
