package router

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ACCLANKA/ai-whatsapp-bot/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	mu      sync.Mutex
	seen    map[string][]string
	block   chan struct{}
	panicOn string
}

func (h *recordingHandler) HandleInbound(ctx context.Context, msg domain.InboundMessage) error {
	if h.block != nil {
		<-h.block
	}
	if msg.Text == h.panicOn {
		panic("handler exploded")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen[msg.Sender] = append(h.seen[msg.Sender], msg.Text)
	return nil
}

func TestWorkerPreservesPerSenderOrder(t *testing.T) {
	h := &recordingHandler{seen: map[string][]string{}}
	w := NewWorker(WorkerConfig{Lanes: 3, QueueDepth: 100, MessageTimeout: time.Second}, h, quietLogger())
	require.NoError(t, w.Start(context.Background()))

	senders := []string{"a@c.us", "b@c.us", "c@c.us", "d@c.us"}
	for i := 0; i < 20; i++ {
		for _, s := range senders {
			require.NoError(t, w.Submit(domain.InboundMessage{Sender: s, Text: fmt.Sprintf("%d", i)}))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, w.Stop(ctx))

	for _, s := range senders {
		got := h.seen[s]
		require.Len(t, got, 20, s)
		for i, text := range got {
			assert.Equal(t, fmt.Sprintf("%d", i), text)
		}
	}
}

func TestWorkerLaneFollowsNormalizedPhone(t *testing.T) {
	w := NewWorker(WorkerConfig{Lanes: 64, CountryCode: "94"}, &recordingHandler{}, quietLogger())
	lane := w.lane("94771234567@c.us")
	for _, spelling := range []string{"0771234567", "+94 77 123 4567", "94771234567"} {
		assert.Equal(t, lane, w.lane(spelling), spelling)
	}
	assert.Equal(t, w.lane("status@broadcast"), w.lane("status@broadcast"))
}

func TestWorkerQueueFull(t *testing.T) {
	h := &recordingHandler{seen: map[string][]string{}, block: make(chan struct{})}
	w := NewWorker(WorkerConfig{Lanes: 1, QueueDepth: 1, MessageTimeout: time.Second}, h, quietLogger())
	require.NoError(t, w.Start(context.Background()))

	msg := domain.InboundMessage{Sender: "a@c.us", Text: "x"}
	var err error
	// one message is taken by the blocked lane, one fills the queue
	for i := 0; i < 3 && err == nil; i++ {
		err = w.Submit(msg)
	}
	assert.ErrorIs(t, err, ErrQueueFull)

	close(h.block)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, w.Stop(ctx))
	assert.ErrorIs(t, w.Submit(msg), ErrWorkerStopped)
}

func TestWorkerRecoversFromPanic(t *testing.T) {
	h := &recordingHandler{seen: map[string][]string{}, panicOn: "bad"}
	w := NewWorker(WorkerConfig{Lanes: 1, QueueDepth: 10, MessageTimeout: time.Second}, h, quietLogger())
	require.NoError(t, w.Start(context.Background()))

	require.NoError(t, w.Submit(domain.InboundMessage{Sender: "a@c.us", Text: "bad"}))
	require.NoError(t, w.Submit(domain.InboundMessage{Sender: "a@c.us", Text: "good"}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, w.Stop(ctx))
	assert.Equal(t, []string{"good"}, h.seen["a@c.us"])
}
