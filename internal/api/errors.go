package api

import (
	"errors"
	"net/http"

	"checkout-builder/internal/checkout"
	"checkout-builder/internal/service"
	"checkout-builder/internal/store"
	"checkout-builder/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError converts domain and store errors to HTTP responses
func respondError(c *gin.Context, err error) {
	var verrs checkout.ValidationErrors
	var verr *checkout.ValidationError

	switch {
	case errors.As(err, &verrs):
		first := verrs.First()
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   first.Message,
			"code":    first.Code,
			"details": []*checkout.ValidationError(verrs),
		})

	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   verr.Message,
			"code":    verr.Code,
			"details": []*checkout.ValidationError{verr},
		})

	case errors.Is(err, service.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	case errors.Is(err, store.ErrConflict), errors.Is(err, service.ErrOrderInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": "conflict", "details": err.Error()})

	case errors.Is(err, store.ErrPermission):
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized"})

	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})

	case errors.Is(err, store.ErrNetwork):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable, try again"})

	default:
		util.GetLogger().Error("Unhandled request error",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
