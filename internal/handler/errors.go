package handler

import (
	"errors"
	"net/http"

	"credential-client/internal/apperr"
	"github.com/gin-gonic/gin"
)

// writeError maps the error taxonomy onto HTTP. The message is the same text
// the notification queue received.
func writeError(c *gin.Context, err error, fallback string) {
	var validation *apperr.ValidationError
	var authErr *apperr.AuthError
	var domain *apperr.DomainError

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Message, "code": validation.Code})
	case errors.Is(err, apperr.ErrInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": apperr.UserMessage(err, fallback)})
	case errors.As(err, &authErr):
		c.JSON(http.StatusUnauthorized, gin.H{"error": apperr.UserMessage(err, fallback)})
	case errors.As(err, &domain):
		status := http.StatusBadGateway
		if domain.Status == http.StatusNotFound {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": apperr.UserMessage(err, fallback)})
	case apperr.IsTransport(err):
		c.JSON(http.StatusBadGateway, gin.H{"error": apperr.NetworkMessage})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
