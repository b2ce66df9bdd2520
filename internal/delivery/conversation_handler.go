package delivery

import (
	"net/http"
	"strings"

	"github.com/ACCLANKA/ai-whatsapp-bot/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type ConversationHandler struct {
	useCase domain.ConversationUseCase
	log     *logrus.Logger
}

func NewConversationHandler(uc domain.ConversationUseCase, logger *logrus.Logger) *ConversationHandler {
	return &ConversationHandler{useCase: uc, log: logger}
}

func (h *ConversationHandler) RegisterRoutes(router gin.IRouter) {
	router.PUT("/conversations/:phone/mode", h.SetMode)
}

func (h *ConversationHandler) SetMode(c *gin.Context) {
	var body struct {
		Mode string `json:"mode" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	phone, err := h.useCase.SetMode(c.Request.Context(), c.Param("phone"), domain.Mode(body.Mode))
	if err != nil {
		failWith(c, "Failed to set conversation mode", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Conversation mode updated", gin.H{"phone": phone, "mode": strings.ToLower(strings.TrimSpace(body.Mode))})
}
