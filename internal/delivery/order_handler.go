package delivery

import (
	"net/http"
	"strconv"

	"github.com/ACCLANKA/ai-whatsapp-bot/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type OrderHandler struct {
	useCase domain.OrderUseCase
	log     *logrus.Logger
}

func NewOrderHandler(uc domain.OrderUseCase, logger *logrus.Logger) *OrderHandler {
	return &OrderHandler{
		useCase: uc,
		log:     logger,
	}
}

func (h *OrderHandler) RegisterRoutes(router gin.IRouter) {
	orders := router.Group("/orders")
	{
		orders.GET("/:id", h.GetOrderByID)
		orders.PATCH("/:id/status", h.UpdateStatus)
		orders.PATCH("/:id/tracking", h.UpdateTracking)
		orders.PATCH("/:id/payment-status", h.UpdatePaymentStatus)
		orders.POST("/:id/send-tracking", h.SendTracking)
		orders.POST("/:id/send-invoice", h.SendInvoice)
	}
}

func (h *OrderHandler) orderID(c *gin.Context) (int, bool) {
	idStr := c.Param("id")
	id, err := strconv.Atoi(idStr)
	if err != nil || id <= 0 {
		h.log.Warnf("Handler: Invalid order ID parameter: %s", idStr)
		ErrorResponse(c, http.StatusBadRequest, "Invalid order ID format")
		return 0, false
	}
	return id, true
}

func (h *OrderHandler) GetOrderByID(c *gin.Context) {
	id, ok := h.orderID(c)
	if !ok {
		return
	}
	order, err := h.useCase.GetOrder(c.Request.Context(), id)
	if err != nil {
		h.log.Warnf("Handler: Failed to get order %d: %v", id, err)
		failWith(c, "Failed to retrieve order", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Order retrieved successfully", order)
}

func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, ok := h.orderID(c)
	if !ok {
		return
	}
	var body struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	order, err := h.useCase.UpdateStatus(c.Request.Context(), id, domain.OrderStatus(body.Status))
	if err != nil {
		h.log.Warnf("Handler: Failed to update status of order %d: %v", id, err)
		failWith(c, "Failed to update order status", err)
		return
	}
	h.log.Infof("Handler: Order %d status set to %s", id, order.Status)
	SuccessResponse(c, http.StatusOK, "Order status updated successfully", order)
}

func (h *OrderHandler) UpdateTracking(c *gin.Context) {
	id, ok := h.orderID(c)
	if !ok {
		return
	}
	var body struct {
		TrackingID string `json:"tracking_id" binding:"required"`
		Notify     bool   `json:"notify"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	order, err := h.useCase.UpdateTracking(c.Request.Context(), id, body.TrackingID, body.Notify)
	if err != nil {
		h.log.Warnf("Handler: Failed to update tracking of order %d: %v", id, err)
		failWith(c, "Failed to update tracking", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Tracking updated successfully", order)
}

func (h *OrderHandler) UpdatePaymentStatus(c *gin.Context) {
	id, ok := h.orderID(c)
	if !ok {
		return
	}
	var body struct {
		PaymentStatus string `json:"payment_status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	order, err := h.useCase.UpdatePaymentStatus(c.Request.Context(), id, domain.PaymentStatus(body.PaymentStatus))
	if err != nil {
		h.log.Warnf("Handler: Failed to update payment status of order %d: %v", id, err)
		failWith(c, "Failed to update payment status", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Payment status updated successfully", order)
}

func (h *OrderHandler) SendTracking(c *gin.Context) {
	id, ok := h.orderID(c)
	if !ok {
		return
	}
	if err := h.useCase.SendTracking(c.Request.Context(), id); err != nil {
		h.log.Warnf("Handler: Failed to send tracking for order %d: %v", id, err)
		failWith(c, "Failed to send tracking", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Tracking sent to customer", nil)
}

func (h *OrderHandler) SendInvoice(c *gin.Context) {
	id, ok := h.orderID(c)
	if !ok {
		return
	}
	if err := h.useCase.SendInvoice(c.Request.Context(), id); err != nil {
		h.log.Warnf("Handler: Failed to send invoice for order %d: %v", id, err)
		failWith(c, "Failed to send invoice", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Invoice sent to customer", nil)
}
