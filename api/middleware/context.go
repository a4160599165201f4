package middleware

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	ctxUserID  contextKey = "user_id"
	ctxRole    contextKey = "actor_role"
	ctxStoreID contextKey = "store_id"
)

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}

func withValue(ctx context.Context, key contextKey, value string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, key, value)
}

func UserIDFromContext(ctx context.Context) string  { return stringValue(ctx, ctxUserID) }
func RoleFromContext(ctx context.Context) string    { return stringValue(ctx, ctxRole) }
func StoreIDFromContext(ctx context.Context) string { return stringValue(ctx, ctxStoreID) }

func WithUserID(ctx context.Context, userID string) context.Context {
	return withValue(ctx, ctxUserID, userID)
}

func WithRole(ctx context.Context, role string) context.Context {
	return withValue(ctx, ctxRole, role)
}

// WithStoreID sets the store that vendor handlers act on. StoreContext
// overwrites the token's store once ownership is verified.
func WithStoreID(ctx context.Context, storeID string) context.Context {
	return withValue(ctx, ctxStoreID, storeID)
}

// UserUUID returns the authenticated user id, or false when the request is
// anonymous or the id is malformed.
func UserUUID(ctx context.Context) (uuid.UUID, bool) {
	return parseContextUUID(UserIDFromContext(ctx))
}

// StoreUUID returns the resolved store id for vendor routes.
func StoreUUID(ctx context.Context) (uuid.UUID, bool) {
	return parseContextUUID(StoreIDFromContext(ctx))
}

func parseContextUUID(raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}
