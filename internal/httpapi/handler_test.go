package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/inkstone/wbauth"
	"github.com/inkstone/wbauth/userstore"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

type apiHarness struct {
	handler http.Handler
	engine  *wbauth.Engine
	mr      *miniredis.Miniredis
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := wbauth.DefaultConfig()
	cfg.JWT.AccessSecret = []byte("access-secret-access-secret-0001")
	cfg.JWT.RefreshSecret = []byte("refresh-secret-refresh-secret-01")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1

	engine, err := wbauth.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserProvider(userstore.NewMemory()).
		Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	return &apiHarness{
		handler: NewHandler(engine, Options{}),
		engine:  engine,
		mr:      mr,
	}
}

func (h *apiHarness) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

type authPayload struct {
	User struct {
		ID        string  `json:"id"`
		Email     string  `json:"email"`
		Username  string  `json:"username"`
		AvatarURL *string `json:"avatarUrl"`
	} `json:"user"`
	Tokens wbauth.TokenPair `json:"tokens"`
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	h := newAPIHarness(t)

	rec, env := h.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":    "Writer@Example.com",
		"username": "writer",
		"password": "correct-horse",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.True(t, env.Success)
	registered := decodeData[authPayload](t, env)
	assert.Equal(t, "writer@example.com", registered.User.Email)
	assert.Nil(t, registered.User.AvatarURL)
	assert.Equal(t, int64(7200), registered.Tokens.ExpiresIn)

	rec, env = h.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "writer@example.com",
		"password": "correct-horse",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	login := decodeData[authPayload](t, env)
	assert.Equal(t, registered.User.ID, login.User.ID)

	rec, env = h.do(t, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{
		"refreshToken": login.Tokens.RefreshToken,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	grant := decodeData[wbauth.AccessGrant](t, env)
	require.NotEmpty(t, grant.AccessToken)

	rec, env = h.do(t, http.MethodGet, "/api/v1/users/me", grant.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me struct {
		ID       string `json:"id"`
		Settings struct {
			Theme string `json:"theme"`
		} `json:"settings"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, registered.User.ID, me.ID)
	assert.Equal(t, "dark", me.Settings.Theme)

	rec, env = h.do(t, http.MethodPost, "/api/v1/auth/logout", grant.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "logged out", env.Message)

	// both refresh tokens (register and login) are revoked
	for _, rt := range []string{registered.Tokens.RefreshToken, login.Tokens.RefreshToken} {
		rec, env = h.do(t, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{"refreshToken": rt})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, CodeRefreshFailed, env.Error.Code)
	}

	// access tokens stay valid until expiry
	rec, _ = h.do(t, http.MethodGet, "/api/v1/users/me", grant.AccessToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegisterErrors(t *testing.T) {
	h := newAPIHarness(t)

	body := map[string]string{"email": "a@example.com", "username": "alpha", "password": "correct-horse"}
	rec, _ := h.do(t, http.MethodPost, "/api/v1/auth/register", "", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, env := h.do(t, http.MethodPost, "/api/v1/auth/register", "", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, CodeAccountExists, env.Error.Code)
	assert.False(t, env.Success)

	rec, env = h.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email": "b@example.com", "username": "beta", "password": "short",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, CodeValidation, env.Error.Code)
	assert.Contains(t, string(env.Error.Details), "password")

	rec, env = h.do(t, http.MethodPost, "/api/v1/auth/register", "", "{not json")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, CodeValidation, env.Error.Code)
}

func TestLoginErrors(t *testing.T) {
	h := newAPIHarness(t)

	rec, env := h.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "nobody@example.com", "password": "whatever-pass",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, CodeInvalidCredentials, env.Error.Code)

	rec, env = h.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "x@example.com"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, CodeValidation, env.Error.Code)
}

func TestBearerRequired(t *testing.T) {
	h := newAPIHarness(t)

	cases := []struct {
		name  string
		token string
		raw   string
	}{
		{name: "missing header"},
		{name: "garbage token", token: "not-a-jwt"},
		{name: "lowercase scheme", raw: "bearer abc"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
			if tc.token != "" {
				req.Header.Set("Authorization", "Bearer "+tc.token)
			}
			if tc.raw != "" {
				req.Header.Set("Authorization", tc.raw)
			}
			rec := httptest.NewRecorder()
			h.handler.ServeHTTP(rec, req)

			var env envelope
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, CodeUnauthenticated, env.Error.Code)
		})
	}
}

func TestRefreshTokenRejectedAsBearer(t *testing.T) {
	h := newAPIHarness(t)

	pair, err := h.engine.Issue(t.Context(), "user-42")
	require.NoError(t, err)

	rec, env := h.do(t, http.MethodPost, "/api/v1/auth/logout", pair.RefreshToken, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, CodeUnauthenticated, env.Error.Code)

	rec, env = h.do(t, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{"refreshToken": pair.AccessToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, CodeRefreshFailed, env.Error.Code)
}

func TestMeForDeletedUser(t *testing.T) {
	h := newAPIHarness(t)

	pair, err := h.engine.Issue(t.Context(), "ghost")
	require.NoError(t, err)

	rec, env := h.do(t, http.MethodGet, "/api/v1/users/me", pair.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, CodeUserNotFound, env.Error.Code)
}

func TestStoreOutageMapsTo503(t *testing.T) {
	h := newAPIHarness(t)

	pair, err := h.engine.Issue(t.Context(), "user-1")
	require.NoError(t, err)
	h.mr.Close()

	rec, env := h.do(t, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{"refreshToken": pair.RefreshToken})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, CodeUnavailable, env.Error.Code)

	rec, env = h.do(t, http.MethodPost, "/api/v1/auth/logout", pair.AccessToken, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, CodeUnavailable, env.Error.Code)

	rec, env = h.do(t, http.MethodGet, "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, string(env.Data), "degraded")
}

func TestHealth(t *testing.T) {
	h := newAPIHarness(t)
	started := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	h.handler = NewHandler(h.engine, Options{
		Started: started,
		Now:     func() time.Time { return started.Add(90 * time.Second) },
	})

	rec, env := h.do(t, http.MethodGet, "/api/v1/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData[map[string]any](t, env)
	assert.Equal(t, "ok", data["status"])
	assert.Equal(t, float64(90), data["uptime"])
}

func TestInternalErrorDetailsHiddenInProduction(t *testing.T) {
	dev := &handler{}
	prod := &handler{production: true}
	err := assert.AnError

	assert.NotNil(t, dev.toAPIError(err).Details)
	ae := prod.toAPIError(err)
	assert.Nil(t, ae.Details)
	assert.Equal(t, http.StatusInternalServerError, ae.Status)
	assert.Equal(t, CodeInternal, ae.Code)
}
