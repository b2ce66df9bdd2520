// Package router decides how each inbound message is answered: admin image
// ingest, keyword replies or the two-round composer.
package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/ACCLANKA/ai-whatsapp-bot/internal/composer"
	"github.com/ACCLANKA/ai-whatsapp-bot/internal/domain"
	"github.com/ACCLANKA/ai-whatsapp-bot/internal/functions"
	"github.com/ACCLANKA/ai-whatsapp-bot/internal/media"

	"github.com/sirupsen/logrus"
)

const (
	ApologyText = "Sorry, something went wrong while handling your message. Please try again shortly."

	imageOnlyText    = "⚠️ Only image files are supported for product uploads. Please send a JPG, PNG, or GIF image."
	imageFailureText = "❌ Failed to process image. Please try again."

	// Newsletters, channels and status updates cannot be replied to.
	broadcastSuffix = "@lid"
)

type Composer interface {
	Compose(ctx context.Context, req composer.Request) (*composer.Reply, error)
}

type Sender interface {
	SendText(ctx context.Context, address, text string) error
	SendImages(ctx context.Context, address string, images []media.Image) int
}

type ImageSaver interface {
	Save(ctx context.Context, m domain.Media) (*media.SavedImage, error)
}

type Deps struct {
	Settings    domain.SettingsRepository
	Keywords    domain.KeywordRepository
	Composer    Composer
	Sender      Sender
	Auth        functions.Authorizer
	Images      ImageSaver
	Catalog     domain.CatalogUseCase
	CountryCode string
}

type Router struct {
	deps Deps
	log  *logrus.Logger
}

func New(deps Deps, logger *logrus.Logger) *Router {
	return &Router{deps: deps, log: logger}
}

func (r *Router) caller(msg domain.InboundMessage) domain.Caller {
	chat := msg.ChatID
	if chat == "" {
		chat = msg.Sender
	}
	return domain.Caller{
		Phone:  domain.NormalizePhone(msg.Sender, r.deps.CountryCode),
		ChatID: chat,
	}
}

// HandleInbound answers one message. Errors are returned only when nothing
// could be sent; the caller logs them.
func (r *Router) HandleInbound(ctx context.Context, msg domain.InboundMessage) error {
	if msg.FromMe {
		return nil
	}
	text := strings.TrimSpace(msg.Text)
	hasImage := msg.HasMedia && msg.Media != nil
	if text == "" && !hasImage {
		return nil
	}
	caller := r.caller(msg)
	if strings.HasSuffix(caller.ChatID, broadcastSuffix) {
		r.log.Debugf("Router: Skipping broadcast chat %s", caller.ChatID)
		return nil
	}

	if hasImage && r.deps.Auth != nil && r.deps.Auth.IsAdmin(ctx, caller) {
		return r.ingestImage(ctx, caller, msg)
	}
	if text == "" {
		r.log.Debugf("Router: Ignoring media from non-admin %s", caller.Phone)
		return nil
	}

	settings, err := r.deps.Settings.Load(ctx)
	if err != nil {
		r.log.Errorf("Router: Failed to load settings for %s: %v", caller.Phone, err)
		return r.apologise(ctx, caller)
	}
	if !settings.AutoReplyEnabled {
		r.log.Debug("Router: Auto-reply disabled")
		return nil
	}

	switch r.mode(ctx, caller, settings) {
	case domain.ModeKeyword:
		return r.replyKeyword(ctx, caller, text)
	default:
		return r.replyGenerated(ctx, caller, text, settings)
	}
}

func (r *Router) mode(ctx context.Context, caller domain.Caller, settings *domain.Settings) domain.Mode {
	mode, ok, err := r.deps.Settings.ConversationMode(ctx, caller.Phone)
	if err != nil {
		r.log.Warnf("Router: Could not read mode override for %s, using global mode: %v", caller.Phone, err)
		return settings.GlobalMode()
	}
	if ok && domain.IsValidMode(mode) {
		return mode
	}
	return settings.GlobalMode()
}

func (r *Router) replyKeyword(ctx context.Context, caller domain.Caller, text string) error {
	reply, ok, err := r.deps.Keywords.Lookup(ctx, strings.ToLower(strings.TrimSpace(text)))
	if err != nil {
		r.log.Errorf("Router: Keyword lookup failed for %s: %v", caller.Phone, err)
		return r.apologise(ctx, caller)
	}
	if !ok {
		r.log.Debugf("Router: No keyword reply for %s", caller.Phone)
		return nil
	}
	return r.deps.Sender.SendText(ctx, caller.ChatID, reply)
}

// apologise covers internal failures; the cause stays in the logs.
func (r *Router) apologise(ctx context.Context, caller domain.Caller) error {
	return r.deps.Sender.SendText(ctx, caller.ChatID, ApologyText)
}

func (r *Router) replyGenerated(ctx context.Context, caller domain.Caller, text string, settings *domain.Settings) error {
	reply, err := r.deps.Composer.Compose(ctx, composer.Request{
		Caller:       caller,
		Message:      text,
		SystemPrompt: settings.SystemPrompt,
		HistoryLimit: settings.HistoryLimit,
	})
	if err != nil {
		if domain.KindOf(err) == domain.KindExternalUnavailable {
			if settings.AIFallbackEnabled {
				r.log.Warnf("Router: Generation unavailable for %s, falling back to keywords: %v", caller.Phone, err)
				return r.replyKeyword(ctx, caller, text)
			}
			r.log.Warnf("Router: Generation unavailable for %s, no fallback enabled: %v", caller.Phone, err)
			return nil
		}
		r.log.Errorf("Router: Compose failed for %s: %v", caller.Phone, err)
		return r.apologise(ctx, caller)
	}

	if err := r.deps.Sender.SendText(ctx, caller.ChatID, reply.Text); err != nil {
		return err
	}
	if len(reply.Images) > 0 {
		n := r.deps.Sender.SendImages(ctx, caller.ChatID, reply.Images)
		r.log.Infof("Router: Sent %d/%d product image(s) to %s", n, len(reply.Images), caller.Phone)
	}
	return nil
}

func (r *Router) ingestImage(ctx context.Context, caller domain.Caller, msg domain.InboundMessage) error {
	if !msg.Media.IsImage() {
		return r.deps.Sender.SendText(ctx, caller.ChatID, imageOnlyText)
	}

	saved, err := r.deps.Images.Save(ctx, *msg.Media)
	if err != nil {
		r.log.Errorf("Router: Failed to save admin image: %v", err)
		if domain.KindOf(err) == domain.KindValidation {
			return r.deps.Sender.SendText(ctx, caller.ChatID, imageOnlyText)
		}
		return r.deps.Sender.SendText(ctx, caller.ChatID, imageFailureText)
	}
	r.log.Infof("Router: Admin image saved at %s", saved.PublicPath)

	productID, ok := media.ProductIDFromCaption(msg.Text)
	if !ok {
		return r.deps.Sender.SendText(ctx, caller.ChatID, fmt.Sprintf(
			"✅ Image uploaded successfully!\n\n📁 Path: %s\n\n💡 To set this as a product image, send another image with caption:\n\"Product ID 3\" or \"Update product 3 image\"",
			saved.PublicPath))
	}

	if _, err := r.deps.Catalog.UpdateProductImage(ctx, productID, saved.PublicPath); err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			return r.deps.Sender.SendText(ctx, caller.ChatID,
				fmt.Sprintf("⚠️ Product ID %d not found. Image saved at: %s", productID, saved.PublicPath))
		}
		r.log.Errorf("Router: Failed to attach image to product %d: %v", productID, err)
		return r.deps.Sender.SendText(ctx, caller.ChatID,
			fmt.Sprintf("❌ Failed to update product %d image. Please try again.", productID))
	}
	r.log.Infof("Router: Product %d image updated", productID)
	return r.deps.Sender.SendText(ctx, caller.ChatID,
		fmt.Sprintf("✅ Product %d image updated successfully!\n\n📁 Image: %s", productID, saved.PublicPath))
}
