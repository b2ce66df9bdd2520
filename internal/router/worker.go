package router

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ACCLANKA/ai-whatsapp-bot/internal/domain"

	"github.com/cespare/xxhash/v2"
	"github.com/sirupsen/logrus"
)

var (
	ErrQueueFull     = errors.New("inbound queue is full")
	ErrWorkerStopped = errors.New("inbound worker is not running")
)

type Handler interface {
	HandleInbound(ctx context.Context, msg domain.InboundMessage) error
}

type WorkerConfig struct {
	Lanes          int
	QueueDepth     int
	MessageTimeout time.Duration
	CountryCode    string
}

func (c WorkerConfig) normalized() WorkerConfig {
	if c.Lanes <= 0 {
		c.Lanes = 4
	}
	if c.QueueDepth <= 0 {
		c.QueueDepth = 32
	}
	if c.MessageTimeout <= 0 {
		c.MessageTimeout = 2 * time.Minute
	}
	return c
}

// Worker hashes each sender onto one lane so a customer's messages are
// handled in arrival order while different customers run in parallel.
type Worker struct {
	cfg     WorkerConfig
	handler Handler
	lanes   []chan domain.InboundMessage
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	mu      sync.RWMutex
	running bool
	log     *logrus.Logger
}

func NewWorker(cfg WorkerConfig, handler Handler, logger *logrus.Logger) *Worker {
	cfg = cfg.normalized()
	lanes := make([]chan domain.InboundMessage, cfg.Lanes)
	for i := range lanes {
		lanes[i] = make(chan domain.InboundMessage, cfg.QueueDepth)
	}
	return &Worker{cfg: cfg, handler: handler, lanes: lanes, log: logger}
}

func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return fmt.Errorf("worker is already running")
	}
	w.running = true

	laneCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	for i, lane := range w.lanes {
		w.wg.Add(1)
		go func(id int, in <-chan domain.InboundMessage) {
			defer w.wg.Done()
			w.run(laneCtx, id, in)
		}(i, lane)
	}
	w.log.Infof("Router: Inbound worker started with %d lanes (depth %d)", w.cfg.Lanes, w.cfg.QueueDepth)
	return nil
}

// lane keys on the normalized phone so every spelling of one customer's
// address shares a lane.
func (w *Worker) lane(sender string) int {
	key := domain.NormalizePhone(sender, w.cfg.CountryCode)
	if key == "" {
		key = sender
	}
	return int(xxhash.Sum64String(key) % uint64(len(w.lanes)))
}

// Submit queues a message without blocking.
func (w *Worker) Submit(msg domain.InboundMessage) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if !w.running {
		return ErrWorkerStopped
	}
	select {
	case w.lanes[w.lane(msg.Sender)] <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

func (w *Worker) run(ctx context.Context, id int, in <-chan domain.InboundMessage) {
	for {
		select {
		case msg, ok := <-in:
			if !ok {
				return
			}
			w.process(ctx, id, msg)
		case <-ctx.Done():
			return
		}
	}
}

func (w *Worker) process(ctx context.Context, id int, msg domain.InboundMessage) {
	ctx, cancel := context.WithTimeout(ctx, w.cfg.MessageTimeout)
	defer cancel()
	defer func() {
		if rec := recover(); rec != nil {
			w.log.Errorf("Router: Lane %d recovered from panic handling message from %s: %v", id, msg.Sender, rec)
		}
	}()

	start := time.Now()
	if err := w.handler.HandleInbound(ctx, msg); err != nil {
		w.log.WithFields(logrus.Fields{
			"lane":   id,
			"sender": msg.Sender,
			"kind":   domain.KindOf(err),
		}).Errorf("Router: Message handling failed: %v", err)
		return
	}
	w.log.WithFields(logrus.Fields{
		"lane":       id,
		"sender":     msg.Sender,
		"latency_ms": time.Since(start).Milliseconds(),
	}).Debug("Router: Message handled")
}

// Stop refuses new messages, lets the lanes drain what is queued and waits
// for them until ctx expires.
func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	for _, lane := range w.lanes {
		close(lane)
	}
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.log.Info("Router: Inbound worker drained")
		if w.cancel != nil {
			w.cancel()
		}
		return nil
	case <-ctx.Done():
		w.log.Warn("Router: Timed out draining inbound worker")
		if w.cancel != nil {
			w.cancel()
		}
		return ctx.Err()
	}
}
