package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chandama/touken-west-sub001/internal/auth/token"
	"github.com/chandama/touken-west-sub001/internal/httpx"
	"github.com/chandama/touken-west-sub001/internal/metrics"
	"github.com/chandama/touken-west-sub001/internal/permission"
	"github.com/chandama/touken-west-sub001/internal/session"
	"github.com/chandama/touken-west-sub001/internal/user"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	users    *user.MemoryStore
	sessions *session.RedisStore
	tokens   *token.Service
	metrics  *metrics.Metrics
	router   *gin.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := &fixture{
		users:    user.NewMemoryStore(),
		sessions: session.NewRedisStore(client),
		tokens:   token.NewService("test-secret", time.Hour),
		metrics:  metrics.New(prometheus.NewRegistry()),
		router:   gin.New(),
	}
	f.router.Use(NewAuthMiddleware(f.sessions, f.users, f.tokens).Attach())
	return f
}

func (f *fixture) seed(t *testing.T, role string) *user.User {
	t.Helper()
	u := &user.User{Email: role + "@x.com", Username: role, Role: role}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

// login creates a session for u and a token bound to it.
func (f *fixture) login(t *testing.T, u *user.User) (*session.Session, string) {
	t.Helper()
	sess, err := session.New(u.ID, time.Hour)
	require.NoError(t, err)
	require.NoError(t, f.sessions.Create(context.Background(), sess))
	raw, err := f.tokens.Issue(sess.SessionID, u.ID, u.Email, u.Role)
	require.NoError(t, err)
	return &sess, raw
}

func (f *fixture) bearer(t *testing.T, u *user.User) string {
	t.Helper()
	_, raw := f.login(t, u)
	return "Bearer " + raw
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func whoami(c *gin.Context) {
	u := CurrentUser(c)
	if u == nil {
		c.JSON(http.StatusOK, gin.H{"user": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u.Username})
}

func TestAttach_Anonymous(t *testing.T) {
	f := newFixture(t)
	f.router.GET("/me", whoami)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.JSONEq(t, `{"user":null}`, rec.Body.String())
}

func TestAttach_SessionCookie(t *testing.T) {
	f := newFixture(t)
	u := f.seed(t, "editor")
	f.router.GET("/me", whoami)

	sess, err := session.New(u.ID, time.Hour)
	require.NoError(t, err)
	require.NoError(t, f.sessions.Create(context.Background(), sess))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: sess.SessionID})

	assert.JSONEq(t, `{"user":"editor"}`, f.do(req).Body.String())
}

func TestAttach_BearerToken(t *testing.T) {
	f := newFixture(t)
	u := f.seed(t, "subscriber")
	f.router.GET("/me", whoami)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", f.bearer(t, u))

	assert.JSONEq(t, `{"user":"subscriber"}`, f.do(req).Body.String())
}

func TestAttach_TokenCookie(t *testing.T) {
	f := newFixture(t)
	u := f.seed(t, "user")
	f.router.GET("/me", whoami)

	_, raw := f.login(t, u)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: session.TokenCookieName, Value: raw})

	assert.JSONEq(t, `{"user":"user"}`, f.do(req).Body.String())
}

func TestAttach_TokenRejectedOnceSessionIsGone(t *testing.T) {
	f := newFixture(t)
	u := f.seed(t, "editor")
	f.router.GET("/me", whoami)

	sess, raw := f.login(t, u)
	require.NoError(t, f.sessions.Delete(context.Background(), sess.SessionID))

	bearer := httptest.NewRequest(http.MethodGet, "/me", nil)
	bearer.Header.Set("Authorization", "Bearer "+raw)
	assert.JSONEq(t, `{"user":null}`, f.do(bearer).Body.String())

	cookie := httptest.NewRequest(http.MethodGet, "/me", nil)
	cookie.AddCookie(&http.Cookie{Name: session.CookieName, Value: sess.SessionID})
	cookie.AddCookie(&http.Cookie{Name: session.TokenCookieName, Value: raw})
	assert.JSONEq(t, `{"user":null}`, f.do(cookie).Body.String())
}

func TestAttach_TokenForAnotherUsersSessionIsRejected(t *testing.T) {
	f := newFixture(t)
	owner := f.seed(t, "user")
	other := f.seed(t, "admin")
	f.router.GET("/me", whoami)

	sess, _ := f.login(t, owner)
	forged, err := f.tokens.Issue(sess.SessionID, other.ID, other.Email, other.Role)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	assert.JSONEq(t, `{"user":null}`, f.do(req).Body.String())
}

func TestCurrentSessionID(t *testing.T) {
	f := newFixture(t)
	u := f.seed(t, "user")
	f.router.GET("/sid", func(c *gin.Context) {
		c.String(http.StatusOK, CurrentSessionID(c))
	})

	sess, raw := f.login(t, u)
	req := httptest.NewRequest(http.MethodGet, "/sid", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	assert.Equal(t, sess.SessionID, f.do(req).Body.String())

	assert.Empty(t, f.do(httptest.NewRequest(http.MethodGet, "/sid", nil)).Body.String())
}

func TestAttach_InvalidCredentialsStayAnonymous(t *testing.T) {
	f := newFixture(t)
	f.router.GET("/me", whoami)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "unknown"})

	assert.JSONEq(t, `{"user":null}`, f.do(req).Body.String())
}

func TestAttach_RoleReloadedFromStore(t *testing.T) {
	f := newFixture(t)
	u := f.seed(t, "user")
	f.router.GET("/lib", NewGate(f.metrics).RequireRole(permission.RoleSubscriber), whoami)

	bearer := f.bearer(t, u)

	role := "subscriber"
	_, err := f.users.Update(context.Background(), u.ID, user.Update{Role: &role})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/lib", nil)
	req.Header.Set("Authorization", bearer)
	assert.Equal(t, http.StatusOK, f.do(req).Code)
}

func TestRequireAuth(t *testing.T) {
	f := newFixture(t)
	u := f.seed(t, "user")
	f.router.GET("/private", NewGate(f.metrics).RequireAuth(), whoami)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/private", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Authentication required"}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", f.bearer(t, u))
	assert.Equal(t, http.StatusOK, f.do(req).Code)
}

func TestRequireRole(t *testing.T) {
	f := newFixture(t)
	gate := NewGate(f.metrics)
	f.router.GET("/admin", gate.RequireRole(permission.RoleEditor), whoami)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	cases := map[string]int{
		"user":       http.StatusForbidden,
		"subscriber": http.StatusForbidden,
		"editor":     http.StatusOK,
		"admin":      http.StatusOK,
	}
	for role, want := range cases {
		u := f.seed(t, role)
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", f.bearer(t, u))
		assert.Equal(t, want, f.do(req).Code, role)
	}

	u := f.seed(t, "subscriber2")
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", f.bearer(t, u))
	rec = f.do(req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"editor access required","currentRole":"subscriber2","requiredRole":"editor"}`, rec.Body.String())

	assert.Equal(t, 3.0, testutil.ToFloat64(f.metrics.PermissionDenialsTotal.WithLabelValues("editor", "insufficient_role")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.PermissionDenialsTotal.WithLabelValues("editor", "unauthenticated")))
}

func TestRequireUserManager_IsStrict(t *testing.T) {
	f := newFixture(t)
	f.router.GET("/users", NewGate(f.metrics).RequireUserManager(), whoami)

	editor := f.seed(t, "editor")
	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	req.Header.Set("Authorization", f.bearer(t, editor))
	rec := f.do(req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"admin access required","currentRole":"editor","requiredRole":"admin"}`, rec.Body.String())

	admin := f.seed(t, "admin")
	req = httptest.NewRequest(http.MethodGet, "/users", nil)
	req.Header.Set("Authorization", f.bearer(t, admin))
	assert.Equal(t, http.StatusOK, f.do(req).Code)
}

func swordsRoute(f *fixture) {
	f.router.GET("/swords", FilterMediaForRole(), func(c *gin.Context) {
		httpx.Respond(c, http.StatusOK, []map[string]any{
			{"Index": "1", "MediaAttachments": "[a]", "Smith": "Masamune"},
			{"Index": "2", "MediaAttachments": "[b]", "Smith": "Sadamune"},
		})
	})
	f.router.GET("/swords/one", FilterMediaForRole(), func(c *gin.Context) {
		httpx.Respond(c, http.StatusOK, map[string]any{"MediaAttachments": "[...]", "other": 1})
	})
	f.router.GET("/swords/bare", FilterMediaForRole(), func(c *gin.Context) {
		httpx.Respond(c, http.StatusOK, map[string]any{"other": 1})
	})
}

func TestFilterMediaForRole_Redacts(t *testing.T) {
	f := newFixture(t)
	swordsRoute(f)
	u := f.seed(t, "user")

	for _, auth := range []string{"", f.bearer(t, u)} {
		req := httptest.NewRequest(http.MethodGet, "/swords/one", nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		rec := f.do(req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"MediaAttachments":"NA","other":1}`, rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/swords", nil)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(f.do(req).Body.Bytes(), &list))
	require.Len(t, list, 2)
	for _, s := range list {
		assert.Equal(t, "NA", s["MediaAttachments"])
	}
	assert.Equal(t, "Masamune", list[0]["Smith"])

	rec := f.do(httptest.NewRequest(http.MethodGet, "/swords/bare", nil))
	assert.JSONEq(t, `{"other":1}`, rec.Body.String())
}

func TestFilterMediaForRole_SubscriberAndAboveSeeMedia(t *testing.T) {
	f := newFixture(t)
	swordsRoute(f)

	for _, role := range []string{"subscriber", "editor", "admin"} {
		u := f.seed(t, role)
		req := httptest.NewRequest(http.MethodGet, "/swords/one", nil)
		req.Header.Set("Authorization", f.bearer(t, u))
		assert.JSONEq(t, `{"MediaAttachments":"[...]","other":1}`, f.do(req).Body.String(), role)
	}
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("bearer  abc"))
	assert.Empty(t, bearerToken("Basic abc"))
	assert.Empty(t, bearerToken("abc"))
}
