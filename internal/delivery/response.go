package delivery

import (
	"net/http"

	"github.com/ACCLANKA/ai-whatsapp-bot/internal/domain"

	"github.com/gin-gonic/gin"
)

type Response struct {
	Status  string      `json:"Status"`
	Message string      `json:"Message"`
	Data    interface{} `json:"Data,omitempty"`
}

func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, Response{
		Status:  "Success",
		Message: message,
		Data:    data,
	})
}

func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, Response{
		Status:  "Fail",
		Message: message,
	})
}

func mapErrorToStatus(err error) int {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindAuthorization:
		return http.StatusForbidden
	case domain.KindInsufficientStock:
		return http.StatusConflict
	case domain.KindExternalUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// failWith writes the mapped status. Internal details never reach the client.
func failWith(c *gin.Context, prefix string, err error) {
	status := mapErrorToStatus(err)
	if status == http.StatusInternalServerError {
		ErrorResponse(c, status, prefix+": internal error")
		return
	}
	ErrorResponse(c, status, prefix+": "+err.Error())
}
