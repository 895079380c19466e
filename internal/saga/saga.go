// Package saga holds the pieces shared by DTM saga branch handlers: trace
// propagation through branch payloads, branch barriers and the result
// protocol the coordinator understands.
package saga

import (
	"context"
	"errors"
	"net/http"

	"github.com/dtm-labs/client/dtmcli"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/irevive/storefront/internal/apperr"
)

// TraceContext carries the caller's span through the coordinator, which does
// not forward trace headers to branches.
type TraceContext struct {
	TraceID string `json:"trace_id,omitempty"`
	SpanID  string `json:"span_id,omitempty"`
}

// TraceContextFrom captures the span in ctx, if any.
func TraceContextFrom(ctx context.Context) TraceContext {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return TraceContext{}
	}
	return TraceContext{TraceID: sc.TraceID().String(), SpanID: sc.SpanID().String()}
}

// StartBranchSpan starts a span for a branch call, parented to the span
// carried in tc when there is one.
func StartBranchSpan(ctx context.Context, tracer trace.Tracer, name string, tc TraceContext) (context.Context, trace.Span) {
	if tc.TraceID != "" && tc.SpanID != "" {
		traceID, errT := trace.TraceIDFromHex(tc.TraceID)
		spanID, errS := trace.SpanIDFromHex(tc.SpanID)
		if errT == nil && errS == nil {
			ctx = trace.ContextWithSpanContext(ctx, trace.NewSpanContext(trace.SpanContextConfig{
				TraceID:    traceID,
				SpanID:     spanID,
				TraceFlags: trace.FlagsSampled,
				Remote:     true,
			}))
		}
	}
	return tracer.Start(ctx, name)
}

// Respond answers a branch call. Business failures answer 409 so the
// coordinator stops retrying and compensates; anything else answers 500 and
// is retried.
func Respond(c *gin.Context, span trace.Span, err error) {
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"dtm_result": "SUCCESS"})
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	if apperr.IsBusinessFailure(err) || errors.Is(err, dtmcli.ErrFailure) {
		zap.L().Info("ℹ️ branch failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusConflict, gin.H{"dtm_result": "FAILURE", "error": err.Error()})
		return
	}
	zap.L().Error("❌ branch error", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
