package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/geocoder89/jumpin/internal/auth"
	"github.com/geocoder89/jumpin/internal/clock"
	"github.com/geocoder89/jumpin/internal/domain/profile"
	apphttp "github.com/geocoder89/jumpin/internal/http"
	"github.com/geocoder89/jumpin/internal/identity"
	"github.com/geocoder89/jumpin/internal/mirror"
	"github.com/geocoder89/jumpin/internal/repo/memory"
	"github.com/geocoder89/jumpin/internal/scanguard"
	"github.com/geocoder89/jumpin/internal/session"
	"github.com/geocoder89/jumpin/internal/sheets"
	"github.com/geocoder89/jumpin/internal/sheets/sheetstest"
	"github.com/geocoder89/jumpin/internal/workflow"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type testApp struct {
	router     *gin.Engine
	sheet      *sheetstest.Server
	dispatcher *mirror.Dispatcher
	profiles   *memory.ProfilesRepo
}

func setupApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
	clk := clock.System{}

	jwt := auth.NewManager("test-secret-key", 15*time.Minute, 24*time.Hour)
	sessions := session.NewManager(jwt, memory.NewSessionsRepo(), clk)
	ids := identity.NewService(memory.NewUsersRepo(), sessions, clk)
	profiles := memory.NewProfilesRepo()

	fake := sheetstest.NewServer(t, "sheet-1", sheets.DefaultSheetName)
	client, err := sheets.New(context.Background(), sheets.Config{SpreadsheetID: "sheet-1"}, fake.Options()...)
	require.NoError(t, err)
	mirrorClient := sheets.NewProtectedMirror(client, sheets.ProtectedConfig{Timeout: 5 * time.Second})

	d := mirror.NewDispatcher(mirror.Config{Timeout: 5 * time.Second, Logger: log})
	schools := profile.NewCatalogue(profile.DefaultSchools)

	reg := workflow.NewRegistration(workflow.RegistrationDeps{
		Identity: ids,
		Profiles: profiles,
		Schools:  schools,
		Mirror:   mirrorClient,
		Dispatch: d,
		Clock:    clk,
		Logger:   log,
	})
	checkin := workflow.NewCheckin(workflow.CheckinDeps{
		Guard:    scanguard.NewMemory(time.Minute),
		Profiles: profiles,
		Mirror:   mirrorClient,
		Dispatch: d,
		Clock:    clk,
		Logger:   log,
	})

	r := apphttp.NewRouter(apphttp.Deps{
		Env:          "test",
		Logger:       log,
		Sessions:     sessions,
		Registration: reg,
		Identity:     ids,
		Rotator:      sessions,
		Checkin:      checkin,
		Profiles:     profiles,
		Schools:      schools,
		Mirror:       mirrorClient,
		Dispatcher:   d,
	})

	return &testApp{router: r, sheet: fake, dispatcher: d, profiles: profiles}
}

func (a *testApp) do(t *testing.T, method, path, token string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func refreshCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == "refresh_token" {
			return c
		}
	}
	t.Fatalf("refresh_token cookie not set")
	return nil
}

type authResponse struct {
	AccessToken string           `json:"accessToken"`
	Profile     *profile.Profile `json:"profile"`
}

func annaRegistration() map[string]string {
	return map[string]string{
		"firstName": "Anna",
		"lastName":  "Bianchi",
		"email":     "anna@example.com",
		"password":  "password123",
		"dob":       "2007-03-14",
		"school":    "Liceo Scientifico A. Einstein",
	}
}

func TestRegisterScanAndMirror(t *testing.T) {
	app := setupApp(t)

	w := app.do(t, http.MethodPost, "/auth/register", "", annaRegistration())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var reg authResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reg))
	require.NotEmpty(t, reg.AccessToken)
	require.NotNil(t, reg.Profile)
	uid := reg.Profile.ID

	app.dispatcher.Wait()
	rows := app.sheet.Rows()
	require.Len(t, rows, 2)
	require.Equal(t, []string{uid, "Anna", "Bianchi", "anna@example.com", "Liceo Scientifico A. Einstein", "2007-03-14", ""}, rows[1])

	w = app.do(t, http.MethodPost, "/checkin/scans", reg.AccessToken, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var scan struct {
		ScanID string `json:"scanId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &scan))
	require.NotEmpty(t, scan.ScanID)

	w = app.do(t, http.MethodPost, "/checkin/scans/"+scan.ScanID+"/decode", reg.AccessToken, map[string]string{"payload": "EVENT-QR"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res workflow.CheckinResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.NotNil(t, res.Profile.LastCheckin)

	// same camera session, second frame
	w = app.do(t, http.MethodPost, "/checkin/scans/"+scan.ScanID+"/decode", reg.AccessToken, map[string]string{"payload": "EVENT-QR"})
	require.Equal(t, http.StatusConflict, w.Code)

	app.dispatcher.Wait()
	require.Equal(t, workflow.FormatTimestamp(res.CheckedInAt), app.sheet.Rows()[1][6])

	stored, err := app.profiles.GetByID(context.Background(), uid)
	require.NoError(t, err)
	require.True(t, stored.LastCheckin.Equal(res.CheckedInAt))

	w = app.do(t, http.MethodGet, "/me", reg.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var me profile.Profile
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	require.NotNil(t, me.LastCheckin, "the check-in must not be hidden by a cached profile")
}

func TestLogoutEndsSessionForMirror(t *testing.T) {
	app := setupApp(t)

	w := app.do(t, http.MethodPost, "/auth/register", "", annaRegistration())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var reg authResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reg))
	cookie := refreshCookie(t, w)
	app.dispatcher.Wait()
	before := app.sheet.Requests()

	w = app.do(t, http.MethodPost, "/auth/logout", "", nil, cookie)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = app.do(t, http.MethodPost, "/api/sheets/checkin", reg.AccessToken, map[string]string{
		"uid":       reg.Profile.ID,
		"timestamp": "2024-05-01T10:00:00Z",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = app.do(t, http.MethodPost, "/checkin/scans", reg.AccessToken, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	require.Equal(t, before, app.sheet.Requests(), "no spreadsheet call after logout")
}

func TestSheetsSyncEndpoints(t *testing.T) {
	app := setupApp(t)

	w := app.do(t, http.MethodPost, "/api/sheets/register", "", map[string]string{"uid": "x"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Zero(t, app.sheet.Requests())

	w = app.do(t, http.MethodPost, "/auth/register", "", annaRegistration())
	require.Equal(t, http.StatusCreated, w.Code)

	var reg authResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reg))
	app.dispatcher.Wait()

	w = app.do(t, http.MethodPost, "/api/sheets/checkin", reg.AccessToken, map[string]string{
		"uid":       reg.Profile.ID,
		"timestamp": "2024-05-01T10:00:00Z",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, "2024-05-01T10:00:00Z", app.sheet.Rows()[1][6])

	w = app.do(t, http.MethodPost, "/api/sheets/checkin", reg.AccessToken, map[string]string{
		"uid":       "missing-uid",
		"timestamp": "2024-05-01T10:00:00Z",
	})
	require.Equal(t, http.StatusInternalServerError, w.Code)

	w = app.do(t, http.MethodPost, "/api/sheets/checkin", reg.AccessToken, map[string]string{"uid": reg.Profile.ID})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginAndRefresh(t *testing.T) {
	app := setupApp(t)

	w := app.do(t, http.MethodPost, "/auth/register", "", annaRegistration())
	require.Equal(t, http.StatusCreated, w.Code)
	app.dispatcher.Wait()

	w = app.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "anna@example.com", "password": "wrong-password"})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = app.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "ANNA@example.com", "password": "password123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cookie := refreshCookie(t, w)

	w = app.do(t, http.MethodPost, "/auth/refresh", "", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var tok authResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tok))
	require.NotEmpty(t, tok.AccessToken)

	// the old refresh token was rotated away
	w = app.do(t, http.MethodPost, "/auth/refresh", "", nil, cookie)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
