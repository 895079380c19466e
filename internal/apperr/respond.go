package apperr

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Respond writes err as a JSON error body with the mapped status code and
// records it on the request span. Internal errors are logged and their
// message is not exposed.
func Respond(c *gin.Context, span trace.Span, err error) {
	status := HTTPStatus(err)
	if span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	if status == http.StatusInternalServerError {
		zap.L().Error("❌ request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
