package services

import "context"

// ctxKey is unexported so only this package can set or read these values.
type ctxKey int

const (
	contentIDKey ctxKey = iota
	stageKey
	requestIDKey
)

func withValue(ctx context.Context, key ctxKey, v string) context.Context {
	if v == "" {
		return ctx
	}
	return context.WithValue(ctx, key, v)
}

func valueOf(ctx context.Context, key ctxKey) (string, bool) {
	v, _ := ctx.Value(key).(string)
	return v, v != ""
}

// WithContentID tags ctx with the content id a production or request is about.
func WithContentID(ctx context.Context, id string) context.Context {
	return withValue(ctx, contentIDKey, id)
}

func ContentIDFromContext(ctx context.Context) (string, bool) {
	return valueOf(ctx, contentIDKey)
}

// WithStage tags ctx with the production stage ("produce" or "publish").
func WithStage(ctx context.Context, stage string) context.Context {
	return withValue(ctx, stageKey, stage)
}

func StageFromContext(ctx context.Context) (string, bool) {
	return valueOf(ctx, stageKey)
}

// WithRequestID tags ctx with the X-Request-ID of the HTTP request that
// started the work.
func WithRequestID(ctx context.Context, id string) context.Context {
	return withValue(ctx, requestIDKey, id)
}

func RequestIDFromContext(ctx context.Context) (string, bool) {
	return valueOf(ctx, requestIDKey)
}
