package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/agora-gate/adapters/events"
	"github.com/layer-3/agora-gate/adapters/upstream"
	"github.com/layer-3/agora-gate/service"
)

type mockAPI struct {
	server *httptest.Server
	calls  atomic.Int32

	mu       sync.Mutex
	bodies   map[string]string
	auth     map[string]string
	handlers map[string]func(w http.ResponseWriter, r *http.Request)
}

func newMockAPI(t *testing.T) *mockAPI {
	t.Helper()
	m := &mockAPI{
		bodies:   map[string]string{},
		auth:     map[string]string{},
		handlers: map[string]func(w http.ResponseWriter, r *http.Request){},
	}
	m.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.calls.Add(1)
		body, _ := io.ReadAll(r.Body)

		m.mu.Lock()
		m.bodies[r.URL.Path] = string(body)
		m.auth[r.URL.Path] = r.Header.Get("Authorization")
		h := m.handlers[r.Method+" "+r.URL.Path]
		m.mu.Unlock()

		if h == nil {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail":"not found"}`))
			return
		}
		h(w, r)
	}))
	t.Cleanup(m.server.Close)
	return m
}

func (m *mockAPI) on(route string, status int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[route] = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func (m *mockAPI) bodyOf(path string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bodies[path]
}

func (m *mockAPI) authOf(path string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.auth[path]
}

func newTestRouter(t *testing.T, api *mockAPI) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := service.NewAuthService(upstream.New(api.server.URL), events.NoopPublisher{}, nil)
	return SetupRouter(RouterDeps{
		AuthService: svc,
		Cookies: CookiePolicy{
			SameSite:      http.SameSiteStrictMode,
			SessionMaxAge: 86400,
			AdminMaxAge:   600,
		},
		Logger: zerolog.Nop(),
	})
}

func perform(router http.Handler, method, path, body string, cookies []*http.Cookie, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Host = "app.example"
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func cookieMap(w *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := map[string]*http.Cookie{}
	for _, c := range w.Result().Cookies() {
		out[c.Name] = c
	}
	return out
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func sessionCookies(token, address string) []*http.Cookie {
	return []*http.Cookie{
		{Name: CookieAccessToken, Value: token},
		{Name: CookieAddress, Value: address},
	}
}

func TestMeIsIdempotent(t *testing.T) {
	api := newMockAPI(t)
	router := newTestRouter(t, api)
	cookies := sessionCookies("tok", "0xabc")

	first := perform(router, "GET", "/api/auth/me", "", cookies, nil)
	require.Equal(t, http.StatusOK, first.Code)
	for i := 0; i < 3; i++ {
		again := perform(router, "GET", "/api/auth/me", "", cookies, nil)
		assert.JSONEq(t, first.Body.String(), again.Body.String())
	}
	assert.JSONEq(t, `{"authenticated":true,"address":"0xabc"}`, first.Body.String())
	assert.Equal(t, int32(0), api.calls.Load())
}

func TestMeWithoutCookies(t *testing.T) {
	router := newTestRouter(t, newMockAPI(t))

	w := perform(router, "GET", "/api/auth/me", "", nil, nil)
	assert.JSONEq(t, `{"authenticated":false,"address":null}`, w.Body.String())
}

func TestLogoutClearsCookies(t *testing.T) {
	api := newMockAPI(t)
	router := newTestRouter(t, api)

	w := perform(router, "POST", "/api/auth/logout", "", sessionCookies("tok", "0xabc"), map[string]string{
		"Origin": "https://app.example",
	})
	require.Equal(t, http.StatusOK, w.Code)

	cookies := cookieMap(w)
	for _, name := range []string{CookieAccessToken, CookieAddress, CookieAdminAccess} {
		c, ok := cookies[name]
		require.True(t, ok, name)
		assert.Empty(t, c.Value)
		assert.Equal(t, -1, c.MaxAge)
		assert.Equal(t, "/", c.Path)
		assert.True(t, c.HttpOnly)
	}
	assert.Contains(t, w.Header().Values("Set-Cookie")[0], "Max-Age=0")
	assert.Equal(t, int32(0), api.calls.Load())

	// the browser drops the cookies, so me() sees none
	me := perform(router, "GET", "/api/auth/me", "", nil, nil)
	assert.JSONEq(t, `{"authenticated":false,"address":null}`, me.Body.String())
}

func TestVerifyFailureSetsNoCookie(t *testing.T) {
	api := newMockAPI(t)
	api.on("POST /api/v1/agents/auth/verify", http.StatusUnauthorized, `{"detail":"Signature verification failed"}`)
	router := newTestRouter(t, api)

	w := perform(router, "POST", "/api/auth/verify", `{"address":"0xabc","signature":"0xbad"}`, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, w.Result().Cookies())
	assert.Contains(t, decode(t, w)["detail"], "Signature verification failed")
}

func TestVerifyWithoutTokenSetsNoCookie(t *testing.T) {
	api := newMockAPI(t)
	api.on("POST /api/v1/agents/auth/verify", http.StatusOK, `{"token_type":"bearer"}`)
	router := newTestRouter(t, api)

	w := perform(router, "POST", "/api/auth/verify", `{"address":"0xabc","signature":"0xsig"}`, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, w.Result().Cookies())
	assert.Equal(t, "missing access_token", decode(t, w)["detail"])
}

func TestVerifyNetworkErrorSetsNoCookie(t *testing.T) {
	api := newMockAPI(t)
	router := newTestRouter(t, api)
	api.server.Close()

	w := perform(router, "POST", "/api/auth/verify", `{"address":"0xabc","signature":"0xsig"}`, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, w.Result().Cookies())
}

func TestCrossOriginPostIsRejectedBeforeUpstream(t *testing.T) {
	api := newMockAPI(t)
	api.on("POST /api/v1/agents/auth/challenge", http.StatusOK, `{}`)
	router := newTestRouter(t, api)

	for _, path := range []string{"/api/auth/challenge", "/api/auth/verify", "/api/auth/logout"} {
		w := perform(router, "POST", path, `{"address":"0xabc"}`, sessionCookies("tok", "0xabc"), map[string]string{
			"Origin": "https://evil.example",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
		assert.Equal(t, "bad origin", decode(t, w)["detail"])
		assert.Empty(t, w.Result().Cookies())
	}
	assert.Equal(t, int32(0), api.calls.Load())
}

func TestSameOriginVariants(t *testing.T) {
	api := newMockAPI(t)
	api.on("POST /api/v1/agents/auth/challenge", http.StatusOK, `{"message_to_sign":"m"}`)
	router := newTestRouter(t, api)

	for _, origin := range []string{"", "http://app.example", "https://app.example"} {
		headers := map[string]string{}
		if origin != "" {
			headers["Origin"] = origin
		}
		w := perform(router, "POST", "/api/auth/challenge", `{"address":"0xabc"}`, nil, headers)
		assert.Equal(t, http.StatusOK, w.Code, origin)
	}
	assert.Equal(t, int32(3), api.calls.Load())
}

func TestChallengeUpstreamErrorIs400(t *testing.T) {
	api := newMockAPI(t)
	api.on("POST /api/v1/agents/auth/challenge", http.StatusUnprocessableEntity, `{"detail":"bad address"}`)
	router := newTestRouter(t, api)

	w := perform(router, "POST", "/api/auth/challenge", `{"address":"nope"}`, nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, `POST /api/v1/agents/auth/challenge failed: 422 {"detail":"bad address"}`, decode(t, w)["detail"])
	assert.Empty(t, w.Result().Cookies())
}

func TestAdminChallengeRequiresSession(t *testing.T) {
	api := newMockAPI(t)
	api.on("POST /api/v1/admin/access/challenge", http.StatusOK, `{"message_to_sign":"admin"}`)
	router := newTestRouter(t, api)

	w := perform(router, "POST", "/api/admin/access/challenge", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Not authenticated", decode(t, w)["detail"])
	assert.Equal(t, int32(0), api.calls.Load())

	w = perform(router, "POST", "/api/admin/access/challenge", "", sessionCookies("tok", "0xabc"), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Bearer tok", api.authOf("/api/v1/admin/access/challenge"))
}

func TestAdminVerifySetsElevationCookie(t *testing.T) {
	api := newMockAPI(t)
	api.on("POST /api/v1/admin/access/verify", http.StatusOK, `{"ok":true}`)
	router := newTestRouter(t, api)

	w := perform(router, "POST", "/api/admin/access/verify", `{"signature":"0xsig"}`, sessionCookies("tok", "0xabc"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"signature":"0xsig"}`, api.bodyOf("/api/v1/admin/access/verify"))

	c := cookieMap(w)[CookieAdminAccess]
	require.NotNil(t, c)
	assert.Equal(t, "1", c.Value)
	assert.Equal(t, 600, c.MaxAge)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, "/", c.Path)
}

func TestAdminVerifyFailureSetsNoCookie(t *testing.T) {
	api := newMockAPI(t)
	api.on("POST /api/v1/admin/access/verify", http.StatusForbidden, `{"detail":"not an operator"}`)
	router := newTestRouter(t, api)

	w := perform(router, "POST", "/api/admin/access/verify", `{"signature":"0xsig"}`, sessionCookies("tok", "0xabc"), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, w.Result().Cookies())
}

func TestAdminStatus(t *testing.T) {
	router := newTestRouter(t, newMockAPI(t))

	w := perform(router, "GET", "/api/admin/access/status", "", nil, nil)
	assert.JSONEq(t, `{"ok":false}`, w.Body.String())

	w = perform(router, "GET", "/api/admin/access/status", "", []*http.Cookie{{Name: CookieAdminAccess, Value: "1"}}, nil)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())
}

func TestAdminProxyWithoutElevation(t *testing.T) {
	api := newMockAPI(t)
	api.on("GET /api/v1/admin/metrics", http.StatusOK, `{"users":1}`)
	router := newTestRouter(t, api)

	w := perform(router, "GET", "/api/admin/metrics", "", sessionCookies("tok", "0xabc"), nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Admin signature required", decode(t, w)["detail"])

	elevatedOnly := []*http.Cookie{{Name: CookieAdminAccess, Value: "1"}}
	w = perform(router, "GET", "/api/admin/metrics", "", elevatedOnly, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Not authenticated", decode(t, w)["detail"])

	assert.Equal(t, int32(0), api.calls.Load())
}

func TestAdminProxyForwardsWithBearer(t *testing.T) {
	api := newMockAPI(t)
	api.on("GET /api/v1/admin/anchors", http.StatusOK, `{"anchors":[]}`)
	api.on("POST /api/v1/jobs/job-1/anchor_receipt", http.StatusOK, `{"ok":true}`)
	router := newTestRouter(t, api)

	cookies := append(sessionCookies("tok", "0xabc"), &http.Cookie{Name: CookieAdminAccess, Value: "1"})

	w := perform(router, "GET", "/api/admin/anchors?limit=5&other=x", "", cookies, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"anchors":[]}`, w.Body.String())
	assert.Equal(t, "Bearer tok", api.authOf("/api/v1/admin/anchors"))

	w = perform(router, "POST", "/api/admin/jobs/anchor_receipt", `{"job_id":"job-1","anchor_tx_hash":"0x1"}`, cookies, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"anchor_tx_hash":"0x1"}`, api.bodyOf("/api/v1/jobs/job-1/anchor_receipt"))

	w = perform(router, "POST", "/api/admin/jobs/anchor_receipt", `{"anchor_tx_hash":"0x1"}`, cookies, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "job_id is required", decode(t, w)["detail"])
}

func TestEndToEndLogin(t *testing.T) {
	const address = "0xABCDEF0000000000000000000000000000000001"

	api := newMockAPI(t)
	api.on("POST /api/v1/agents/auth/challenge", http.StatusOK,
		`{"address":"`+address+`","nonce":"XYZ","message_to_sign":"Sign in to Agora: nonce=XYZ","expires_in_seconds":300}`)
	api.on("POST /api/v1/agents/auth/verify", http.StatusOK, `{"access_token":"tok123","token_type":"bearer"}`)
	router := newTestRouter(t, api)

	w := perform(router, "POST", "/api/auth/challenge", `{"address":"`+address+`"}`, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Sign in to Agora: nonce=XYZ", decode(t, w)["message_to_sign"])
	assert.Empty(t, w.Result().Cookies())

	w = perform(router, "POST", "/api/auth/verify", `{"address":"`+address+`","signature":"0xsig..."}`, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"address":"`+address+`","signature":"0xsig..."}`, api.bodyOf("/api/v1/agents/auth/verify"))

	cookies := cookieMap(w)
	require.Contains(t, cookies, CookieAccessToken)
	require.Contains(t, cookies, CookieAddress)
	assert.Equal(t, "tok123", cookies[CookieAccessToken].Value)
	assert.Equal(t, address, cookies[CookieAddress].Value)
	assert.Equal(t, 86400, cookies[CookieAccessToken].MaxAge)
	assert.Equal(t, http.SameSiteStrictMode, cookies[CookieAccessToken].SameSite)
	assert.True(t, cookies[CookieAddress].HttpOnly)
	assert.False(t, cookies[CookieAddress].Secure)
}

func TestSecureCookiesWhenConfigured(t *testing.T) {
	w := httptest.NewRecorder()
	CookiePolicy{Secure: true, SameSite: http.SameSiteLaxMode, SessionMaxAge: 10}.SetSession(w, "t", "0xabc")

	for _, c := range w.Result().Cookies() {
		assert.True(t, c.Secure)
		assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	}
}
