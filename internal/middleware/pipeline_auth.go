package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	apperrors "valore/internal/errors"
)

// PipelineAuthMiddleware guards the ingestion endpoints the price pipeline
// writes through. Callers authenticate with the X-API-Key header; the key
// comparison is constant time.
func PipelineAuthMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			abortWithAppError(c, apperrors.ErrPipelineNotConfigured)
			return
		}
		key := c.GetHeader("X-API-Key")
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
			abortWithAppError(c, apperrors.ErrInvalidAPIKey)
			return
		}
		c.Next()
	}
}

// abortWithAppError stops the chain with the sentinel's status and the
// same error envelope ErrorHandler produces.
func abortWithAppError(c *gin.Context, err *apperrors.AppError) {
	c.AbortWithStatusJSON(err.StatusCode, gin.H{
		"error": gin.H{
			"code":    err.Code,
			"message": err.Message,
		},
	})
}
