// Package notify sends everything outbound: replies, product images and
// order notifications.
package notify

import (
	"context"
	"fmt"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/ACCLANKA/ai-whatsapp-bot/internal/domain"
	"github.com/ACCLANKA/ai-whatsapp-bot/internal/media"

	"github.com/sirupsen/logrus"
)

var _ domain.OrderNotifier = (*Dispatcher)(nil)

type Config struct {
	CountryCode   string
	ImageDelay    time.Duration
	StoreName     string
	StoreNameFunc func(ctx context.Context) string
}

type Dispatcher struct {
	channel domain.Channel
	cfg     Config
	sleep   func(ctx context.Context, d time.Duration)
	log     *logrus.Logger
}

func NewDispatcher(channel domain.Channel, cfg Config, logger *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		channel: channel,
		cfg:     cfg,
		sleep:   sleepCtx,
		log:     logger,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// address keeps chat ids as they are and normalizes bare phone numbers.
func (d *Dispatcher) address(raw string) string {
	if strings.Contains(raw, "@") {
		return raw
	}
	return domain.NormalizePhone(raw, d.cfg.CountryCode)
}

func (d *Dispatcher) SendText(ctx context.Context, address, text string) error {
	to := d.address(address)
	if to == "" {
		return fmt.Errorf("%w: no address to send to", domain.ErrValidation)
	}
	if err := d.channel.SendText(ctx, to, text); err != nil {
		d.log.Errorf("Dispatcher: Failed to send text to %s: %v", to, err)
		return fmt.Errorf("%w: %v", domain.ErrExternalUnavailable, err)
	}
	d.log.Debugf("Dispatcher: Sent %d chars to %s", len(text), to)
	return nil
}

// SendImages is best effort: a failing image is logged and the rest still go
// out. It returns how many were sent.
func (d *Dispatcher) SendImages(ctx context.Context, address string, images []media.Image) int {
	to := d.address(address)
	sent := 0
	for i, img := range images {
		if i >= media.MaxImages {
			break
		}
		if ctx.Err() != nil {
			break
		}
		if !strings.HasPrefix(img.URL, "http://") && !strings.HasPrefix(img.URL, "https://") {
			d.log.Warnf("Dispatcher: Skipping image with non-absolute URL %q", img.URL)
			continue
		}
		if sent > 0 {
			d.sleep(ctx, d.cfg.ImageDelay)
		}
		m := domain.Media{URL: img.URL, MimeType: mimeFor(img.URL), Filename: path.Base(img.URL)}
		if err := d.channel.SendMedia(ctx, to, m, img.Caption); err != nil {
			d.log.Warnf("Dispatcher: Failed to send image %s to %s: %v", img.URL, to, err)
			continue
		}
		sent++
	}
	if len(images) > 0 {
		d.log.Infof("Dispatcher: Sent %d/%d product images to %s", sent, len(images), to)
	}
	return sent
}

func mimeFor(url string) string {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	if mt := mime.TypeByExtension(path.Ext(url)); mt != "" {
		return mt
	}
	return "image/jpeg"
}

func (d *Dispatcher) storeName(ctx context.Context) string {
	if d.cfg.StoreNameFunc != nil {
		if name := d.cfg.StoreNameFunc(ctx); name != "" {
			return name
		}
	}
	return d.cfg.StoreName
}

func (d *Dispatcher) NotifyStatusChange(ctx context.Context, order *domain.Order) error {
	if err := d.SendText(ctx, order.CustomerPhone, StatusMessage(order, d.storeName(ctx))); err != nil {
		return err
	}
	d.log.Infof("Dispatcher: Status update sent to %s for order %s: %s", order.CustomerPhone, order.OrderNumber, order.Status)
	return nil
}

func (d *Dispatcher) SendTracking(ctx context.Context, order *domain.Order) error {
	if order.TrackingID == "" {
		return fmt.Errorf("%w: no tracking ID available for order %s", domain.ErrValidation, order.OrderNumber)
	}
	if err := d.SendText(ctx, order.CustomerPhone, TrackingMessage(order)); err != nil {
		return err
	}
	d.log.Infof("Dispatcher: Tracking info sent to %s for order %s", order.CustomerPhone, order.OrderNumber)
	return nil
}

func (d *Dispatcher) SendInvoice(ctx context.Context, order *domain.Order) error {
	if err := d.SendText(ctx, order.CustomerPhone, InvoiceMessage(order)); err != nil {
		return err
	}
	d.log.Infof("Dispatcher: Invoice sent to %s for order %s", order.CustomerPhone, order.OrderNumber)
	return nil
}
