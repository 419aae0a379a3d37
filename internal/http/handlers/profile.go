package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/geocoder89/jumpin/internal/cache"
	"github.com/geocoder89/jumpin/internal/domain/profile"
	"github.com/gin-gonic/gin"
)

type ProfileReader interface {
	GetByID(ctx context.Context, id string) (profile.Profile, error)
}

type ProfileHandler struct {
	profiles ProfileReader
	cache    *cache.Cache
}

func NewProfileHandler(profiles ProfileReader, c *cache.Cache) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, cache: c}
}

func profileCacheKey(uid string) string {
	return "profile:" + uid
}

// Me returns the signed-in user's profile. Clients revalidate with If-None-Match.
func (h *ProfileHandler) Me(ctx *gin.Context) {
	sess, ok := requireSession(ctx)
	if !ok {
		return
	}

	key := profileCacheKey(sess.UserID)
	if h.cache != nil {
		if v, ok := h.cache.Get(key); ok {
			if p, ok := v.(profile.Profile); ok {
				RespondJSONWithETag(ctx, http.StatusOK, p)
				return
			}
		}
	}

	p, err := h.profiles.GetByID(ctx.Request.Context(), sess.UserID)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			RespondNotFound(ctx, "profile_not_found", "No profile for this account.")
			return
		}
		RespondInternal(ctx, "Could not load profile")
		return
	}

	if h.cache != nil {
		h.cache.Set(key, p)
	}

	RespondJSONWithETag(ctx, http.StatusOK, p)
}
