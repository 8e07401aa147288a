package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/sape-server/config"
	"github.com/oksasatya/sape-server/internal/container"
	"github.com/oksasatya/sape-server/pkg/helpers"
)

type envelope struct {
	Status  int             `json:"status"`
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestEngine(t *testing.T, securityEnabled bool) *gin.Engine {
	t.Helper()
	cfg := &config.Config{
		GinMode:               gin.TestMode,
		StorageDriver:         config.StorageMemory,
		DevAdminPassword:      "secret-pass",
		JWTAccessSecret:       "access",
		JWTRefreshSecret:      "refresh",
		AccessTTL:             time.Minute,
		RefreshTTL:            time.Hour,
		OAuthClientID:         "web",
		OAuthClientSecret:     "web-secret",
		OAuthScopes:           "read write",
		InternalAPIKey:        "internal-key",
		MethodSecurityEnabled: securityEnabled,
	}
	container.SetConfig(cfg)
	container.SetLogger(helpers.NopLogger())
	container.SetPGPool(nil)
	container.SetRedis(nil)
	container.SetGCS(nil)
	container.SetES(nil)
	container.SetRabbitPub(nil)
	container.SetJWT(nil)
	container.SetMethodSecurity(nil)

	e := NewEngine(cfg)
	reg := NewRegistry(e)
	InitModules(reg)
	reg.RegisterAll()
	return e
}

func call(t *testing.T, e http.Handler, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func jsonRequest(method, target, body, token string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func passwordToken(t *testing.T, e http.Handler) string {
	t.Helper()
	form := url.Values{
		"grant_type": {"password"},
		"username":   {"admin"},
		"password":   {"secret-pass"},
	}
	req := httptest.NewRequest(http.MethodPost, "/api/oauth/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth("web", "web-secret")
	w, env := call(t, e, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var tok struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &tok))
	require.NotEmpty(t, tok.AccessToken)
	return tok.AccessToken
}

func TestHealthz(t *testing.T) {
	e := newTestEngine(t, true)
	w, env := call(t, e, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
}

func TestCRUDRequiresAuthentication(t *testing.T) {
	e := newTestEngine(t, true)
	w, _ := call(t, e, jsonRequest(http.MethodGet, "/api/persons", "", ""))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = call(t, e, jsonRequest(http.MethodGet, "/api/persons", "", "not-a-token"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMethodSecurityDisabledAllowsAnonymous(t *testing.T) {
	e := newTestEngine(t, false)
	w, env := call(t, e, jsonRequest(http.MethodPost, "/api/persons", `{"name":"Ana"}`, ""))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"name":"Ana"`)
}

func TestTokenThenCRUDAndMe(t *testing.T) {
	e := newTestEngine(t, true)
	token := passwordToken(t, e)

	w, env := call(t, e, jsonRequest(http.MethodPost, "/api/persons", `{"name":"Ana","email":"ANA@example.com"}`, token))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var person struct {
		ID    int64  `json:"id"`
		Email string `json:"email"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &person))
	assert.NotZero(t, person.ID)
	assert.Equal(t, "ana@example.com", person.Email)

	w, _ = call(t, e, jsonRequest(http.MethodGet, "/api/persons?query=ana&page=1", "", token))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("Pagination-Total-Count"))

	w, env = call(t, e, jsonRequest(http.MethodGet, "/api/me", "", token))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"outcome":"found"`)
	assert.Contains(t, string(env.Data), `"username":"admin"`)
}

func TestMeAnonymousAndService(t *testing.T) {
	e := newTestEngine(t, true)

	w, env := call(t, e, jsonRequest(http.MethodGet, "/api/me", "", ""))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"outcome":"anonymous"`)

	req := jsonRequest(http.MethodGet, "/api/me", "", "")
	req.Header.Set("X-API-Key", "internal-key")
	w, env = call(t, e, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"outcome":"wrong_auth_kind"`)
}

func TestClientCredentialsCannotDelete(t *testing.T) {
	e := newTestEngine(t, true)
	form := url.Values{"grant_type": {"client_credentials"}, "scope": {"write"}}
	req := httptest.NewRequest(http.MethodPost, "/api/oauth/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth("web", "web-secret")
	w, env := call(t, e, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var tok struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &tok))

	w, _ = call(t, e, jsonRequest(http.MethodPost, "/api/events", `{"name":"Launch","starts_at":"2026-01-01T10:00:00Z"}`, tok.AccessToken))
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, _ = call(t, e, jsonRequest(http.MethodDelete, "/api/events?id=1", "", tok.AccessToken))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSearchWithoutIndexReturnsEmpty(t *testing.T) {
	e := newTestEngine(t, true)
	token := passwordToken(t, e)

	w, env := call(t, e, jsonRequest(http.MethodGet, "/api/search?q=ana", "", token))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestPhotoUploadWithoutStorage(t *testing.T) {
	e := newTestEngine(t, true)
	token := passwordToken(t, e)

	req := jsonRequest(http.MethodPut, "/api/persons/1/photo", "", token)
	w, _ := call(t, e, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestLogoutClearsCookies(t *testing.T) {
	e := newTestEngine(t, true)
	token := passwordToken(t, e)

	w, env := call(t, e, jsonRequest(http.MethodPost, "/api/logout", "", token))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	for _, c := range cookies {
		assert.Empty(t, c.Value, c.Name)
	}
}

func TestDeleteReferencedPersonIsRejected(t *testing.T) {
	e := newTestEngine(t, true)
	token := passwordToken(t, e)

	w, _ := call(t, e, jsonRequest(http.MethodPost, "/api/persons", `{"name":"Ana"}`, token))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w, _ = call(t, e, jsonRequest(http.MethodPost, "/api/events", `{"name":"Launch","starts_at":"2026-01-01T10:00:00Z"}`, token))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w, _ = call(t, e, jsonRequest(http.MethodPost, "/api/entries", `{"person_id":1,"event_id":1}`, token))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env := call(t, e, jsonRequest(http.MethodDelete, "/api/persons?id=1", "", token))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.False(t, env.Success)
	w, _ = call(t, e, jsonRequest(http.MethodDelete, "/api/events?id=1", "", token))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, env = call(t, e, jsonRequest(http.MethodGet, "/api/persons/1", "", token))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"name":"Ana"`)

	w, _ = call(t, e, jsonRequest(http.MethodDelete, "/api/entries?id=1", "", token))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w, _ = call(t, e, jsonRequest(http.MethodDelete, "/api/persons?id=1", "", token))
	assert.Equal(t, http.StatusOK, w.Code)
}
