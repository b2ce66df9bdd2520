// Package composer produces a reply in two generation rounds: the first may
// request functions, the second answers from their results.
package composer

import (
	"context"
	"fmt"
	"time"

	"github.com/ACCLANKA/ai-whatsapp-bot/internal/domain"
	"github.com/ACCLANKA/ai-whatsapp-bot/internal/functions"
	"github.com/ACCLANKA/ai-whatsapp-bot/internal/media"

	"github.com/sirupsen/logrus"
)

// Executor is the slice of the function registry the composer needs.
type Executor interface {
	Execute(ctx context.Context, inv functions.Invocation, caller domain.Caller) domain.FunctionResult
	Catalog(admin bool) string
	IsAdmin(ctx context.Context, caller domain.Caller) bool
}

type Request struct {
	Caller       domain.Caller
	Message      string
	SystemPrompt string
	HistoryLimit int
}

type Reply struct {
	Text     string
	Images   []media.Image
	Executed []Executed
}

type Config struct {
	GenerationTimeout time.Duration
	BaseURL           string
}

type Composer struct {
	generator domain.Generator
	functions Executor
	history   domain.HistoryStore
	extractor *media.Extractor
	cfg       Config
	now       func() time.Time
	log       *logrus.Logger
}

func New(generator domain.Generator, fns Executor, history domain.HistoryStore, cfg Config, logger *logrus.Logger) *Composer {
	return &Composer{
		generator: generator,
		functions: fns,
		history:   history,
		extractor: media.NewExtractor(cfg.BaseURL),
		cfg:       cfg,
		now:       time.Now,
		log:       logger,
	}
}

func (c *Composer) Compose(ctx context.Context, req Request) (*Reply, error) {
	admin := c.functions.IsAdmin(ctx, req.Caller)
	system := SystemPrompt(req.SystemPrompt, c.functions.Catalog(admin))

	messages := append(c.recentHistory(ctx, req), domain.ChatMessage{Role: domain.RoleUser, Content: req.Message})

	first, err := c.generate(ctx, domain.GenerationRequest{System: system, Messages: messages})
	if err != nil {
		return nil, fmt.Errorf("%w: first generation round: %v", domain.ErrExternalUnavailable, err)
	}

	reply := &Reply{}
	final := first

	if invocations := functions.Parse(first); len(invocations) > 0 {
		for _, inv := range invocations {
			result := c.functions.Execute(ctx, inv, req.Caller)
			reply.Executed = append(reply.Executed, Executed{Name: inv.Name, Result: result})
		}
		c.log.Infof("Composer: Executed %d function(s) for %s", len(reply.Executed), req.Caller.Phone)

		second := append(messages,
			domain.ChatMessage{Role: domain.RoleAssistant, Content: first},
			domain.ChatMessage{Role: domain.RoleUser, Content: ContextMessage(reply.Executed, req.Message)},
		)
		final, err = c.generate(ctx, domain.GenerationRequest{System: system, Messages: second})
		if err != nil {
			return nil, fmt.Errorf("%w: second generation round: %v", domain.ErrExternalUnavailable, err)
		}
	}

	reply.Text = Sanitize(final, c.cfg.BaseURL)
	reply.Images = c.extractor.Extract(reply.Text)
	c.remember(ctx, req, reply.Text)
	return reply, nil
}

func (c *Composer) generate(ctx context.Context, req domain.GenerationRequest) (string, error) {
	if c.cfg.GenerationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.GenerationTimeout)
		defer cancel()
	}
	start := c.now()
	text, err := c.generator.Generate(ctx, req)
	if err != nil {
		c.log.Warnf("Composer: Generation failed after %s: %v", time.Since(start).Round(time.Millisecond), err)
		return "", err
	}
	return text, nil
}

func (c *Composer) recentHistory(ctx context.Context, req Request) []domain.ChatMessage {
	if c.history == nil || req.HistoryLimit <= 0 {
		return []domain.ChatMessage{}
	}
	entries, err := c.history.Recent(ctx, req.Caller.Phone, req.HistoryLimit)
	if err != nil {
		c.log.Warnf("Composer: Could not read history for %s, continuing without it: %v", req.Caller.Phone, err)
		return []domain.ChatMessage{}
	}
	out := make([]domain.ChatMessage, 0, len(entries)+1)
	for _, e := range entries {
		out = append(out, domain.ChatMessage{Role: e.Role, Content: e.Content})
	}
	return out
}

func (c *Composer) remember(ctx context.Context, req Request, text string) {
	if c.history == nil {
		return
	}
	now := c.now()
	for _, e := range []domain.HistoryEntry{
		{Role: domain.RoleUser, Content: req.Message, At: now},
		{Role: domain.RoleAssistant, Content: text, At: now},
	} {
		if err := c.history.Append(ctx, req.Caller.Phone, e); err != nil {
			c.log.Warnf("Composer: Could not append history for %s: %v", req.Caller.Phone, err)
			return
		}
	}
}
