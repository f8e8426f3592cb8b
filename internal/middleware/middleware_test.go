package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"pokequest/internal/authz"
	"pokequest/internal/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func protectedRouter(jwt *authz.JWTManager) *gin.Engine {
	r := gin.New()
	r.Use(RequestID())
	api := r.Group("/api", RequireAuth(jwt))
	api.GET("/me", func(c *gin.Context) {
		claims, _ := ClaimsFrom(c)
		c.JSON(http.StatusOK, claims)
	})
	api.GET("/admin", RequireAdmin(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func do(r http.Handler, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	msg, _ := body["error"].(string)
	return msg
}

func TestRequireAuth(t *testing.T) {
	jwt := authz.NewJWTManager("secret", time.Hour)
	other := authz.NewJWTManager("other-secret", time.Hour)
	r := protectedRouter(jwt)

	good, err := jwt.Issue(authz.Claims{UserID: 3, Pseudo: "alice"})
	require.NoError(t, err)
	forged, err := other.Issue(authz.Claims{UserID: 3, Pseudo: "alice", Admin: true})
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		status int
		msg    string
	}{
		{"no header", "", http.StatusUnauthorized, msgTokenRequired},
		{"bare scheme", "Bearer", http.StatusUnauthorized, msgTokenRequired},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, msgTokenInvalid},
		{"garbage", "Bearer not.a.jwt", http.StatusUnauthorized, msgTokenInvalid},
		{"foreign secret", "Bearer " + forged, http.StatusUnauthorized, msgTokenInvalid},
		{"valid", "Bearer " + good, http.StatusOK, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(r, http.MethodGet, "/api/me", tc.header)
			assert.Equal(t, tc.status, w.Code)
			if tc.msg != "" {
				assert.Equal(t, tc.msg, errorOf(t, w))
			}
		})
	}

	w := do(r, http.MethodGet, "/api/me", "Bearer "+good)
	var claims authz.Claims
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &claims))
	assert.Equal(t, authz.Claims{UserID: 3, Pseudo: "alice"}, claims)
}

func TestRequireAdmin(t *testing.T) {
	jwt := authz.NewJWTManager("secret", 0)
	r := protectedRouter(jwt)

	user, _ := jwt.Issue(authz.Claims{UserID: 2, Pseudo: "bob"})
	admin, _ := jwt.Issue(authz.Claims{UserID: 1, Pseudo: "admin", Admin: true})

	w := do(r, http.MethodGet, "/api/admin", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodGet, "/api/admin", "Bearer "+user)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, msgAdminRequired, errorOf(t, w))

	w = do(r, http.MethodGet, "/api/admin", "Bearer "+admin)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireAdmin_WithoutAuthLayer(t *testing.T) {
	r := gin.New()
	r.GET("/x", RequireAdmin(), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := do(r, http.MethodGet, "/x", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, RequestIDFrom(c)) })

	w := do(r, http.MethodGet, "/x", "")
	generated := w.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestAccessLogAndRecovery(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	m := metrics.New()

	r := gin.New()
	r.Use(RequestID(), AccessLog(logger, m), Recovery(logger))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/boom", func(c *gin.Context) { panic("kaboom") })

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/ok", "").Code)
	w := do(r, http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Erreur serveur", errorOf(t, w))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/ok", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/boom", "500")))

	var sawPanic, sawAccess bool
	for _, e := range hook.AllEntries() {
		if e.Message == "panic recovered" {
			sawPanic = true
		}
		if e.Message == "request handled" && e.Data["path"] == "/ok" {
			sawAccess = true
		}
	}
	assert.True(t, sawPanic)
	assert.True(t, sawAccess)
}

func TestCORSPreflight(t *testing.T) {
	r := gin.New()
	r.Use(CORS())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := do(r, http.MethodOptions, "/x", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
