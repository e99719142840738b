// Package httpapi serves the wbauth engine as a JSON REST API under /api/v1.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/inkstone/wbauth"
	"github.com/inkstone/wbauth/middleware"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// Service is the subset of *wbauth.Engine the API calls.
type Service interface {
	Register(ctx context.Context, input wbauth.RegisterInput) (*wbauth.LoginResult, error)
	Login(ctx context.Context, email, password string) (*wbauth.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*wbauth.AccessGrant, error)
	RequireIdentity(ctx context.Context, accessToken string) (string, error)
	Logout(ctx context.Context, userID string) error
	User(ctx context.Context, userID string) (wbauth.UserRecord, error)
	HealthCheck(ctx context.Context) error
}

type Options struct {
	Logger *zap.Logger
	// Production hides internal error messages from response bodies.
	Production bool
	// Started is reported as the base of the health uptime.
	Started time.Time
	Now     func() time.Time
}

type handler struct {
	svc        Service
	logger     *zap.Logger
	production bool
	started    time.Time
	now        func() time.Time
}

// NewHandler returns the routed API with request logging and panic recovery applied.
func NewHandler(svc Service, opts Options) http.Handler {
	h := &handler{
		svc:        svc,
		logger:     opts.Logger,
		production: opts.Production,
		started:    opts.Started,
		now:        opts.Now,
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.started.IsZero() {
		h.started = h.now()
	}

	requireUser := middleware.RequireIdentity(svc, h.fail)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/register", h.register)
	mux.HandleFunc("POST /api/v1/auth/login", h.login)
	mux.HandleFunc("POST /api/v1/auth/refresh", h.refresh)
	mux.Handle("POST /api/v1/auth/logout", requireUser(http.HandlerFunc(h.logout)))
	mux.Handle("GET /api/v1/users/me", requireUser(http.HandlerFunc(h.me)))
	mux.HandleFunc("GET /api/v1/health", h.health)

	return requestContext(accessLog(h.logger, recoverer(h.logger, mux)))
}

type userDTO struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	Username  string  `json:"username"`
	AvatarURL *string `json:"avatarUrl"`
	CreatedAt string  `json:"createdAt"`
}

func toUserDTO(u wbauth.UserRecord) userDTO {
	return userDTO{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

type authData struct {
	User   userDTO          `json:"user"`
	Tokens wbauth.TokenPair `json:"tokens"`
}

func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	ae := h.toAPIError(err)
	if ae.Status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("code", ae.Code),
			zap.Error(err),
		)
	}
	writeFail(w, ae)
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := readJSON(w, r, &body); err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := h.svc.Register(r.Context(), wbauth.RegisterInput{
		Email:    body.Email,
		Username: body.Username,
		Password: body.Password,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeOK(w, http.StatusCreated, authData{User: toUserDTO(res.User), Tokens: res.Tokens}, "")
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := readJSON(w, r, &body); err != nil {
		h.fail(w, r, err)
		return
	}
	if strings.TrimSpace(body.Email) == "" || body.Password == "" {
		h.fail(w, r, validationFailed(map[string]string{"field": "email,password", "message": "is required"}))
		return
	}

	res, err := h.svc.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeOK(w, http.StatusOK, authData{User: toUserDTO(res.User), Tokens: res.Tokens}, "")
}

func (h *handler) refresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := readJSON(w, r, &body); err != nil {
		h.fail(w, r, err)
		return
	}
	if body.RefreshToken == "" {
		h.fail(w, r, validationFailed(map[string]string{"field": "refreshToken", "message": "is required"}))
		return
	}

	grant, err := h.svc.Refresh(r.Context(), body.RefreshToken)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeOK(w, http.StatusOK, grant, "")
}

func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	if err := h.svc.Logout(r.Context(), userID); err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, struct{}{}, "logged out")
}

type editorSettings struct {
	FontSize   int     `json:"fontSize"`
	LineHeight float64 `json:"lineHeight"`
	FontFamily string  `json:"fontFamily"`
}

type profileDTO struct {
	userDTO
	Settings struct {
		Theme  string         `json:"theme"`
		Editor editorSettings `json:"editor"`
	} `json:"settings"`
	Stats struct {
		WorksCount int `json:"worksCount"`
		TotalWords int `json:"totalWords"`
		AICalls    int `json:"aiCalls"`
	} `json:"stats"`
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	u, err := h.svc.User(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	out := profileDTO{userDTO: toUserDTO(u)}
	out.Settings.Theme = "dark"
	out.Settings.Editor = editorSettings{FontSize: 16, LineHeight: 1.8, FontFamily: "serif"}
	writeOK(w, http.StatusOK, out, "")
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
	defer cancel()

	now := h.now()
	data := map[string]any{
		"status":    "ok",
		"timestamp": now.UTC().Format(time.RFC3339Nano),
		"uptime":    now.Sub(h.started).Seconds(),
	}
	if err := h.svc.HealthCheck(ctx); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		data["status"] = "degraded"
		writeOK(w, http.StatusServiceUnavailable, data, "")
		return
	}
	writeOK(w, http.StatusOK, data, "")
}

// readJSON decodes a bounded request body into dst. Any decode failure is a
// validation error.
func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return validationFailed(map[string]string{"message": "empty body"})
		}
		return validationFailed(map[string]string{"message": "malformed JSON body"})
	}
	return nil
}
