// Package actorctx carries who is acting, and on behalf of which request, on a
// context so workflows and log handlers can see it without importing the
// HTTP layer.
package actorctx

import "context"

type ctxKey int

const (
	keyUserID ctxKey = iota
	keyRequestID
)

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, keyUserID, userID)
}

func UserIDFrom(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyUserID).(string)

	return v, ok && v != ""
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyRequestID, id)
}

func RequestIDFrom(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyRequestID).(string)

	return v, ok && v != ""
}
