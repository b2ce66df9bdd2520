package delivery

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ACCLANKA/ai-whatsapp-bot/internal/domain"
	"github.com/ACCLANKA/ai-whatsapp-bot/internal/router"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const WebhookTokenHeader = "X-Webhook-Token"

type Submitter interface {
	Submit(msg domain.InboundMessage) error
}

type webhookMedia struct {
	MimeType string `json:"mimetype"`
	Data     []byte `json:"data"` // base64 in JSON
	Filename string `json:"filename"`
}

type webhookMessage struct {
	From     string        `json:"from" binding:"required"`
	ChatID   string        `json:"chatId"`
	Body     string        `json:"body"`
	FromMe   bool          `json:"fromMe"`
	HasMedia bool          `json:"hasMedia"`
	Media    *webhookMedia `json:"media"`
}

type WebhookHandler struct {
	worker Submitter
	token  string
	log    *logrus.Logger
}

func NewWebhookHandler(worker Submitter, token string, logger *logrus.Logger) *WebhookHandler {
	return &WebhookHandler{worker: worker, token: token, log: logger}
}

func (h *WebhookHandler) RegisterRoutes(r gin.IRouter) {
	hooks := r.Group("/webhook", HeaderToken(WebhookTokenHeader, h.token, h.log))
	hooks.POST("/messages", h.ReceiveMessage)
}

func (h *WebhookHandler) ReceiveMessage(c *gin.Context) {
	var body webhookMessage
	if err := c.ShouldBindJSON(&body); err != nil {
		h.log.Warnf("Handler: Invalid webhook payload: %v", err)
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	msg := domain.InboundMessage{
		ChatID:     strings.TrimSpace(body.ChatID),
		Sender:     strings.TrimSpace(body.From),
		Text:       body.Body,
		FromMe:     body.FromMe,
		HasMedia:   body.HasMedia,
		ReceivedAt: time.Now(),
	}
	if msg.ChatID == "" {
		msg.ChatID = msg.Sender
	}
	if body.Media != nil {
		msg.Media = &domain.Media{MimeType: body.Media.MimeType, Data: body.Media.Data, Filename: body.Media.Filename}
		msg.HasMedia = true
	}

	if err := h.worker.Submit(msg); err != nil {
		if errors.Is(err, router.ErrQueueFull) || errors.Is(err, router.ErrWorkerStopped) {
			h.log.Warnf("Handler: Rejecting message from %s: %v", msg.Sender, err)
			c.Header("Retry-After", "5")
			ErrorResponse(c, http.StatusServiceUnavailable, "Busy, retry later")
			return
		}
		h.log.Errorf("Handler: Failed to queue message from %s: %v", msg.Sender, err)
		ErrorResponse(c, http.StatusInternalServerError, "Failed to queue message")
		return
	}
	SuccessResponse(c, http.StatusAccepted, "Message accepted", nil)
}
