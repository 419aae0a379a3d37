package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/geocoder89/jumpin/internal/mirror"
	"github.com/geocoder89/jumpin/internal/session"
	"github.com/geocoder89/jumpin/internal/sheets"
	"github.com/gin-gonic/gin"
)

type MirrorRunner interface {
	Do(ctx context.Context, t mirror.Task) error
}

// SheetsSyncHandler exposes the spreadsheet mirror directly. Unlike the
// workflows, these endpoints report mirror failures to the caller.
type SheetsSyncHandler struct {
	mirror sheets.Mirror
	runner MirrorRunner
}

func NewSheetsSyncHandler(m sheets.Mirror, runner MirrorRunner) *SheetsSyncHandler {
	return &SheetsSyncHandler{mirror: m, runner: runner}
}

type RegisterSyncRequest struct {
	UID       string `json:"uid" binding:"required"`
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName" binding:"required"`
	Email     string `json:"email" binding:"required"`
	School    string `json:"school" binding:"required"`
	DOB       string `json:"dob" binding:"required"`
}

func (r RegisterSyncRequest) row() sheets.Row {
	return sheets.Row{
		UID:       r.UID,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		School:    r.School,
		DOB:       r.DOB,
	}
}

type CheckinSyncRequest struct {
	UID       string `json:"uid" binding:"required"`
	Timestamp string `json:"timestamp" binding:"required"`
}

func (h *SheetsSyncHandler) Register(ctx *gin.Context) {
	sess, ok := h.session(ctx)
	if !ok {
		return
	}

	var req RegisterSyncRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(ctx, "Campi obbligatori mancanti", parseBindError(err, &req))
		return
	}
	row := req.row()

	err := h.runner.Do(ctx.Request.Context(), mirror.Task{
		Op:      mirror.OpAppendRow,
		Session: &sess,
		Run: func(c context.Context) error {
			return h.mirror.AppendRow(c, row)
		},
	})
	if errors.Is(err, session.ErrUnauthorized) {
		RespondUnAuthorized(ctx, "unauthorized", "Non autorizzato")
		return
	}
	if err != nil {
		slog.ErrorContext(ctx.Request.Context(), "sheets.register_sync_failed", "uid", row.UID, "err", err)
		RespondError(ctx, http.StatusInternalServerError, "sheets_sync_failed", "Errore nella sincronizzazione con Google Sheets", nil)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *SheetsSyncHandler) Checkin(ctx *gin.Context) {
	sess, ok := h.session(ctx)
	if !ok {
		return
	}

	var req CheckinSyncRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(ctx, "UID e timestamp sono obbligatori", parseBindError(err, &req))
		return
	}

	err := h.runner.Do(ctx.Request.Context(), mirror.Task{
		Op:      mirror.OpUpdateCheckin,
		Session: &sess,
		Run: func(c context.Context) error {
			return h.mirror.UpdateCheckinCell(c, req.UID, req.Timestamp)
		},
	})
	if errors.Is(err, session.ErrUnauthorized) {
		RespondUnAuthorized(ctx, "unauthorized", "Non autorizzato")
		return
	}
	if err != nil {
		slog.ErrorContext(ctx.Request.Context(), "sheets.checkin_sync_failed", "uid", req.UID, "err", err)
		RespondError(ctx, http.StatusInternalServerError, "sheets_sync_failed", "Errore nella sincronizzazione del check-in", nil)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true})
}

// session answers 401 itself when the request carries no session, so the
// body is never read and the spreadsheet never touched.
func (h *SheetsSyncHandler) session(ctx *gin.Context) (session.Session, bool) {
	sess, ok := session.FromContext(ctx.Request.Context())
	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Non autorizzato")
		return session.Session{}, false
	}
	return sess, true
}
