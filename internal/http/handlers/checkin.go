package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/jumpin/internal/cache"
	"github.com/geocoder89/jumpin/internal/scanguard"
	"github.com/geocoder89/jumpin/internal/session"
	"github.com/geocoder89/jumpin/internal/workflow"
	"github.com/gin-gonic/gin"
)

type CheckinService interface {
	OpenScanner(ctx context.Context, sess session.Session) (scanguard.Scan, error)
	CloseScanner(ctx context.Context, sess session.Session, scanID string) error
	CheckIn(ctx context.Context, sess session.Session, in workflow.CheckinInput) (workflow.CheckinResult, error)
}

type CheckinHandler struct {
	svc   CheckinService
	cache *cache.Cache
}

func NewCheckinHandler(svc CheckinService, profileCache *cache.Cache) *CheckinHandler {
	return &CheckinHandler{svc: svc, cache: profileCache}
}

type DecodeRequest struct {
	Payload string `json:"payload" binding:"required"`
}

// OpenScan is called when the camera starts.
func (h *CheckinHandler) OpenScan(ctx *gin.Context) {
	sess, ok := requireSession(ctx)
	if !ok {
		return
	}

	scan, err := h.svc.OpenScanner(ctx.Request.Context(), sess)
	if err != nil {
		if errors.Is(err, session.ErrUnauthorized) {
			RespondUnAuthorized(ctx, "unauthorized", "Session expired")
			return
		}
		RespondInternal(ctx, "Could not start scanner")
		return
	}

	ctx.JSON(http.StatusCreated, scan)
}

// Decode receives the decoded QR payload for a scan session.
func (h *CheckinHandler) Decode(ctx *gin.Context) {
	sess, ok := requireSession(ctx)
	if !ok {
		return
	}

	var req DecodeRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 5*time.Second)
	defer cancel()

	res, err := h.svc.CheckIn(cctx, sess, workflow.CheckinInput{
		ScanID:  ctx.Param("scanId"),
		Payload: req.Payload,
	})
	if err != nil {
		if ve, ok := workflow.IsValidation(err); ok {
			RespondBadRequest(ctx, "Invalid check-in", gin.H{"field": ve.Field, "message": ve.Message})
			return
		}

		switch {
		case errors.Is(err, scanguard.ErrScanNotFound):
			RespondNotFound(ctx, "scan_not_found", "Scan session not found or expired.")
		case errors.Is(err, scanguard.ErrDuplicateDecode):
			RespondConflict(ctx, "duplicate_decode", "This scan was already used.")
		case errors.Is(err, session.ErrUnauthorized):
			RespondUnAuthorized(ctx, "unauthorized", "Session expired")
		default:
			RespondError(ctx, http.StatusInternalServerError, "checkin_failed", "Check-in could not be saved.", nil)
		}
		return
	}

	if h.cache != nil {
		h.cache.Delete(profileCacheKey(sess.UserID))
	}

	ctx.JSON(http.StatusOK, res)
}

// CloseScan discards a pending scan. Unknown scans still answer 204.
func (h *CheckinHandler) CloseScan(ctx *gin.Context) {
	sess, ok := requireSession(ctx)
	if !ok {
		return
	}

	if err := h.svc.CloseScanner(ctx.Request.Context(), sess, ctx.Param("scanId")); err != nil {
		if errors.Is(err, session.ErrUnauthorized) {
			RespondUnAuthorized(ctx, "unauthorized", "Session expired")
			return
		}
		RespondInternal(ctx, "Could not close scanner")
		return
	}

	ctx.Status(http.StatusNoContent)
}

func requireSession(ctx *gin.Context) (session.Session, bool) {
	sess, ok := session.FromContext(ctx.Request.Context())
	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing session")
		return session.Session{}, false
	}
	return sess, true
}
