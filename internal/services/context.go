package services

import "context"

type contextKey string

const (
	runIDKey     contextKey = "run_id"
	setupIDKey   contextKey = "setup_id"
	assetIDKey   contextKey = "asset_id"
	operationKey contextKey = "operation"
)

// WithRunID annotates context with the sync run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the sync run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithSetupID annotates context with the info-beamer setup being processed.
func WithSetupID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, setupIDKey, id)
}

// SetupIDFromContext extracts the setup identifier if present.
func SetupIDFromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(setupIDKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}

// WithAssetID annotates context with the asset a moderation action targets.
func WithAssetID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, assetIDKey, id)
}

// AssetIDFromContext extracts the asset identifier if present.
func AssetIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(assetIDKey).(int64)
	return id, ok
}

// WithOperation annotates context with the CLI operation name.
func WithOperation(ctx context.Context, operation string) context.Context {
	if operation == "" {
		return ctx
	}
	return context.WithValue(ctx, operationKey, operation)
}

// OperationFromContext returns the operation name if present.
func OperationFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(operationKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
