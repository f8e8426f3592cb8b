package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pokequest/internal/config"
	"pokequest/internal/metrics"
	"pokequest/internal/ratelimit"
)

func sqliteConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Server.Mode = "test"
	cfg.Server.ShutdownTimeout = time.Second
	cfg.Database = config.DatabaseConfig{
		Driver:      "sqlite3",
		DSN:         "file:" + filepath.Join(t.TempDir(), "app.db") + "?_foreign_keys=on",
		AutoMigrate: true,
	}
	cfg.Auth = config.AuthConfig{
		JWTSecret:          "app-test-secret",
		BcryptCost:         4,
		RegisterLimit:      config.LimitConfig{MaxAttempts: 5, Window: 15 * time.Minute},
		PasswordResetLimit: config.LimitConfig{MaxAttempts: 1, Window: 30 * time.Minute},
		SweepSchedule:      "@every 1h",
	}
	cfg.Email.SendTimeout = time.Second
	cfg.BootstrapAdmin = config.BootstrapAdminConfig{Email: "admin@pokequest.com", Pseudo: "admin", Password: "admin123"}
	return cfg
}

func TestNew_WiresRouter(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	a, err := New(context.Background(), sqliteConfig(t), logger)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	for _, path := range []string{"/healthz", "/metrics", "/swagger/doc.json", "/api/auth/captcha"} {
		w := httptest.NewRecorder()
		a.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/auth/verify", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Message == "bootstrap admin created with the configured initial password, rotate it now" {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestNew_BootstrapRunsOnce(t *testing.T) {
	cfg := sqliteConfig(t)
	logger, hook := logtest.NewNullLogger()

	a, err := New(context.Background(), cfg, logger)
	require.NoError(t, err)
	require.NoError(t, a.Close())
	hook.Reset()

	b, err := New(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	for _, e := range hook.AllEntries() {
		assert.NotContains(t, e.Message, "bootstrap admin created")
	}
}

func TestNew_RejectsBadSchedule(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.Auth.SweepSchedule = "not a schedule"
	logger, _ := logtest.NewNullLogger()

	_, err := New(context.Background(), cfg, logger)
	assert.ErrorContains(t, err, "schedule limiter sweep")
}

func TestSweepJob(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	reg := ratelimit.New("register", 5, time.Minute, clock)
	reset := ratelimit.New("password_reset", 1, time.Hour, clock)
	reg.Check("a")
	reg.Check("b")
	reset.Check("c")

	now = now.Add(2 * time.Minute)

	logger, _ := logtest.NewNullLogger()
	m := metrics.New()
	c, err := newSweepScheduler("@every 1h", logger, m, reg, reset)
	require.NoError(t, err)

	entries := c.Entries()
	require.Len(t, entries, 1)
	entries[0].Job.Run()

	assert.Zero(t, reg.Len())
	assert.Equal(t, 1, reset.Len())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RateLimitSwept.WithLabelValues("register")))
}

func TestRun_StopsOnCancel(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.Server.Port = 0
	logger, _ := logtest.NewNullLogger()
	a, err := New(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNewLogger(t *testing.T) {
	l := NewLogger(config.LogConfig{Level: "debug", Format: "text"})
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, l.Formatter)

	l = NewLogger(config.LogConfig{Level: "nonsense"})
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, l.Formatter)
}
