package logging

import (
	"context"

	"go.uber.org/zap"
)

type workflowCtxKey struct{}
type stageCtxKey struct{}

// ContextFields extracts correlation data from context.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 2)
	if id := WorkflowIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("workflow_id", id))
	}
	if stage := StageFromContext(ctx); stage != "" {
		fields = append(fields, zap.String("stage", stage))
	}
	return fields
}

// WithWorkflowID adds the run's workflow ID to ctx.
func WithWorkflowID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, workflowCtxKey{}, id)
}

// WorkflowIDFromContext returns the workflow ID stored in ctx, if any.
func WorkflowIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(workflowCtxKey{}).(string); ok {
		return id
	}
	return ""
}

// WithStage tags ctx with the stage currently executing.
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, stageCtxKey{}, stage)
}

// StageFromContext returns the stage stored in ctx, if any.
func StageFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(stageCtxKey{}).(string); ok {
		return s
	}
	return ""
}
