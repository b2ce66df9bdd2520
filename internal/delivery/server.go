package delivery

import (
	"net/http"

	"github.com/ACCLANKA/ai-whatsapp-bot/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type ServerDeps struct {
	Orders         domain.OrderUseCase
	Catalog        domain.CatalogUseCase
	Conversations  domain.ConversationUseCase
	Inbound        Submitter
	Hub            *Hub
	UploadDir      string
	WebhookToken   string
	DashboardToken string
}

// NewEngine assembles every HTTP route the bot exposes.
func NewEngine(d ServerDeps, logger *logrus.Logger) *gin.Engine {
	router := gin.New()
	router.RedirectTrailingSlash = false
	router.Use(gin.Recovery(), RequestLogger(logger))

	router.GET("/health", func(c *gin.Context) {
		data := gin.H{"status": "ok"}
		if d.Hub != nil {
			data["dashboard_clients"] = d.Hub.ClientCount()
		}
		SuccessResponse(c, http.StatusOK, "Service is healthy", data)
	})
	if d.UploadDir != "" {
		router.Static("/uploads", d.UploadDir)
	}

	NewWebhookHandler(d.Inbound, d.WebhookToken, logger).RegisterRoutes(router)

	api := router.Group("/api", BearerAuth(d.DashboardToken, logger))
	NewOrderHandler(d.Orders, logger).RegisterRoutes(api)
	NewCategoryHandler(d.Catalog, logger).RegisterRoutes(api)
	NewConversationHandler(d.Conversations, logger).RegisterRoutes(api)

	if d.Hub != nil {
		d.Hub.RegisterRoutes(router.Group("", BearerAuth(d.DashboardToken, logger)))
	}

	logger.Info("Routes registered.")
	return router
}
