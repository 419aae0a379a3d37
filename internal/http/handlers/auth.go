package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/jumpin/internal/domain/profile"
	"github.com/geocoder89/jumpin/internal/identity"
	"github.com/geocoder89/jumpin/internal/session"
	"github.com/geocoder89/jumpin/internal/workflow"
	"github.com/gin-gonic/gin"
)

const refreshCookieName = "refresh_token"

type Registrar interface {
	Register(ctx context.Context, in workflow.RegisterInput) (workflow.RegisterResult, error)
}

type Authenticator interface {
	SignInWithPassword(ctx context.Context, email, password string) (session.Session, session.Tokens, error)
}

type SessionRotator interface {
	Refresh(ctx context.Context, refreshToken string) (session.Session, session.Tokens, error)
	Revoke(ctx context.Context, refreshToken string) error
}

type AuthHandler struct {
	registrar     Registrar
	ids           Authenticator
	sessions      SessionRotator
	secureCookies bool
}

func NewAuthHandler(registrar Registrar, ids Authenticator, sessions SessionRotator, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		registrar:     registrar,
		ids:           ids,
		sessions:      sessions,
		secureCookies: secureCookies,
	}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	AccessToken     string           `json:"accessToken"`
	AccessExpiresAt time.Time        `json:"accessExpiresAt"`
	Profile         *profile.Profile `json:"profile,omitempty"`
}

type signInRequiredResponse struct {
	SignInRequired bool            `json:"signInRequired"`
	Message        string          `json:"message"`
	Profile        profile.Profile `json:"profile"`
}

// Register runs the full registration workflow. Field checks happen inside
// the workflow so they apply to every caller, not only HTTP.
func (h *AuthHandler) Register(ctx *gin.Context) {
	var req workflow.RegisterInput

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 10*time.Second)
	defer cancel()

	res, err := h.registrar.Register(cctx, req)
	if err != nil {
		if ve, ok := workflow.IsValidation(err); ok {
			RespondBadRequest(ctx, "Invalid registration", gin.H{"field": ve.Field, "message": ve.Message})
			return
		}

		switch {
		case errors.Is(err, identity.ErrEmailTaken):
			RespondConflict(ctx, "email_taken", "Email is already in use.")
		case errors.Is(err, identity.ErrWeakPassword):
			RespondError(ctx, http.StatusBadRequest, "weak_password", err.Error(), gin.H{"field": "password"})
		case errors.Is(err, identity.ErrPasswordTooLong):
			RespondError(ctx, http.StatusBadRequest, "password_too_long", err.Error(), gin.H{"field": "password"})
		case errors.Is(err, identity.ErrInvalidEmail):
			RespondError(ctx, http.StatusBadRequest, "invalid_email", err.Error(), gin.H{"field": "email"})
		case errors.Is(err, workflow.ErrSessionStart):
			ctx.JSON(http.StatusCreated, signInRequiredResponse{
				SignInRequired: true,
				Message:        "Registration complete. Please sign in.",
				Profile:        res.Profile,
			})
		case errors.Is(err, workflow.ErrProfilePersist):
			RespondError(ctx, http.StatusInternalServerError, "profile_persist_failed", "Account created but profile could not be saved.", nil)
		default:
			RespondInternal(ctx, "Could not complete registration")
		}
		return
	}

	h.setRefreshCookie(ctx, res.Tokens.RefreshToken, res.Tokens.RefreshExpiresAt)

	ctx.JSON(http.StatusCreated, tokenResponse{
		AccessToken:     res.Tokens.AccessToken,
		AccessExpiresAt: res.Tokens.AccessExpiresAt,
		Profile:         &res.Profile,
	})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// bcrypt plus two small queries
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	_, tokens, err := h.ids.SignInWithPassword(cctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			RespondUnAuthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
			return
		}
		RespondInternal(ctx, "Could not sign in")
		return
	}

	h.setRefreshCookie(ctx, tokens.RefreshToken, tokens.RefreshExpiresAt)

	ctx.JSON(http.StatusOK, tokenResponse{
		AccessToken:     tokens.AccessToken,
		AccessExpiresAt: tokens.AccessExpiresAt,
	})
}

func (h *AuthHandler) Refresh(ctx *gin.Context) {
	raw, err := ctx.Cookie(refreshCookieName)

	if err != nil || raw == "" {
		RespondUnAuthorized(ctx, "no_refresh", "Missing refresh token")
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	_, tokens, err := h.sessions.Refresh(cctx, raw)
	if err != nil {
		if errors.Is(err, session.ErrUnauthorized) {
			h.clearRefreshCookie(ctx)
			RespondUnAuthorized(ctx, "invalid_refresh", "Invalid refresh token.")
			return
		}
		RespondInternal(ctx, "Could not refresh session")
		return
	}

	h.setRefreshCookie(ctx, tokens.RefreshToken, tokens.RefreshExpiresAt)

	ctx.JSON(http.StatusOK, tokenResponse{
		AccessToken:     tokens.AccessToken,
		AccessExpiresAt: tokens.AccessExpiresAt,
	})
}

// Logout always clears the cookie and answers 204.
func (h *AuthHandler) Logout(ctx *gin.Context) {
	raw, err := ctx.Cookie(refreshCookieName)

	if err == nil && raw != "" {
		cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
		defer cancel()

		if err := h.sessions.Revoke(cctx, raw); err != nil {
			RespondInternal(ctx, "Could not end session")
			return
		}
	}

	h.clearRefreshCookie(ctx)
	ctx.Status(http.StatusNoContent)
}

func (h *AuthHandler) setRefreshCookie(ctx *gin.Context, raw string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())

	ctx.SetSameSite(http.SameSiteStrictMode)

	ctx.SetCookie(
		refreshCookieName,
		raw,
		maxAge,
		"/auth",
		"",
		h.secureCookies,
		true, // HttpOnly.
	)
}

func (h *AuthHandler) clearRefreshCookie(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteStrictMode)
	ctx.SetCookie(
		refreshCookieName,
		"",
		-1,
		"/auth",
		"",
		h.secureCookies,
		true,
	)
}
