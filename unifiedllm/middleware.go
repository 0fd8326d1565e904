package unifiedllm

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/martinemde/codecrew/logging"
)

// RateLimitMiddleware blocks each request until limiter admits it. Runs that
// share a Client therefore share the provider budget.
func RateLimitMiddleware(limiter *rate.Limiter) Middleware {
	return func(ctx context.Context, req Request, next Handler) (*Response, error) {
		if err := limiter.Wait(ctx); err != nil {
			return nil, &AbortError{SDKError: SDKError{
				Message: "rate limiter wait aborted",
				Cause:   fmt.Errorf("rate limiter error: %w", err),
			}}
		}
		return next(ctx, req)
	}
}

// NewRateLimiter returns a limiter for perSecond requests, or nil when
// perSecond is not positive.
func NewRateLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// LoggingMiddleware logs each provider call with its latency and usage,
// tagged with the workflow and stage carried by ctx.
func LoggingMiddleware(logger *logging.Logger) Middleware {
	return func(ctx context.Context, req Request, next Handler) (*Response, error) {
		start := time.Now()
		resp, err := next(ctx, req)
		fields := []zap.Field{
			zap.String("provider", req.Provider),
			zap.String("model", req.Model),
			zap.Int("messages", len(req.Messages)),
			zap.Duration("latency", time.Since(start)),
		}
		if role, ok := req.Metadata["role"]; ok {
			fields = append(fields, zap.String("role", role))
		}
		if err != nil {
			fields = append(fields, zap.Error(err), zap.Bool("retryable", IsRetryable(err)))
			logger.Warn(ctx, "llm request failed", fields...)
			return nil, err
		}
		fields = append(fields,
			zap.Int("input_tokens", resp.Usage.InputTokens),
			zap.Int("output_tokens", resp.Usage.OutputTokens),
			zap.String("finish_reason", resp.FinishReason.Reason),
		)
		logger.Debug(ctx, "llm request completed", fields...)
		return resp, nil
	}
}
