package middlewares

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/geocoder89/jumpin/internal/actorctx"
	"github.com/geocoder89/jumpin/internal/session"
	"github.com/gin-gonic/gin"
)

// Keep this small interface so tests can fake it easily.
type SessionResolver interface {
	Current(ctx context.Context, accessToken string) (session.Session, error)
}

type AuthMiddleware struct {
	sessions SessionResolver
}

func NewAuthMiddleware(sessions SessionResolver) *AuthMiddleware {
	return &AuthMiddleware{sessions: sessions}
}

// RequireAuth resolves the bearer token to a live session and puts it on the
// request context. A revoked or expired session is rejected even when the
// access token itself is still valid.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			abortUnauthorized(c, "Missing or invalid Authorization header")
			return
		}

		raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		if raw == "" {
			abortUnauthorized(c, "Missing or invalid access token")
			return
		}

		sess, err := m.sessions.Current(c.Request.Context(), raw)
		if err != nil {
			if errors.Is(err, session.ErrUnauthorized) {
				abortUnauthorized(c, "Invalid or expired session")
				return
			}
			slog.ErrorContext(c.Request.Context(), "auth.session_lookup_failed", "err", err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error": gin.H{
					"code":      "session_unavailable",
					"message":   "Could not verify session",
					"requestId": c.GetString(CtxRequestID),
				},
			})
			return
		}

		c.Set(ctxUserIDKey, sess.UserID)
		c.Set(ctxEmailKey, sess.Email)

		ctx := session.WithSession(c.Request.Context(), sess)
		ctx = actorctx.WithUserID(ctx, sess.UserID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":      "unauthorized",
			"message":   msg,
			"requestId": c.GetString(CtxRequestID),
		},
	})
}

func UserIDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxUserIDKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}
