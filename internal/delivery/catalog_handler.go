package delivery

import (
	"net/http"
	"strconv"

	"github.com/ACCLANKA/ai-whatsapp-bot/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type CategoryHandler struct {
	useCase domain.CatalogUseCase
	log     *logrus.Logger
}

func NewCategoryHandler(uc domain.CatalogUseCase, logger *logrus.Logger) *CategoryHandler {
	return &CategoryHandler{useCase: uc, log: logger}
}

func (h *CategoryHandler) RegisterRoutes(router gin.IRouter) {
	categories := router.Group("/categories")
	{
		categories.GET("", h.ListCategories)
		categories.PATCH("/:id/deactivate", h.DeactivateCategory)
		categories.DELETE("/:id", h.DeleteCategory)
	}
}

func (h *CategoryHandler) categoryID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid category ID format")
		return 0, false
	}
	return id, true
}

func (h *CategoryHandler) ListCategories(c *gin.Context) {
	categories, err := h.useCase.ListAllCategories(c.Request.Context())
	if err != nil {
		h.log.Errorf("Handler: Failed to list categories: %v", err)
		failWith(c, "Failed to list categories", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Categories retrieved successfully", categories)
}

func (h *CategoryHandler) DeactivateCategory(c *gin.Context) {
	id, ok := h.categoryID(c)
	if !ok {
		return
	}
	if err := h.useCase.DeactivateCategory(c.Request.Context(), id); err != nil {
		h.log.Warnf("Handler: Failed to deactivate category %d: %v", id, err)
		failWith(c, "Failed to deactivate category", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Category deactivated successfully", nil)
}

func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	id, ok := h.categoryID(c)
	if !ok {
		return
	}
	if err := h.useCase.DeleteCategory(c.Request.Context(), id); err != nil {
		h.log.Warnf("Handler: Failed to delete category %d: %v", id, err)
		failWith(c, "Failed to delete category", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Category deleted successfully", nil)
}
