package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "pokequest/docs"
	"pokequest/internal/authz"
	"pokequest/internal/config"
	"pokequest/internal/db"
	"pokequest/internal/handlers"
	"pokequest/internal/metrics"
	"pokequest/internal/middleware"
	"pokequest/internal/ratelimit"
	"pokequest/internal/repositories"
	"pokequest/internal/routes"
	"pokequest/internal/services"
)

type App struct {
	cfg       *config.Config
	log       *logrus.Logger
	db        *sql.DB
	router    *gin.Engine
	scheduler *cron.Cron
}

// NewLogger builds the process logger from the log section.
func NewLogger(cfg config.LogConfig) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	if strings.EqualFold(cfg.Format, "text") {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		l.WithField("level", cfg.Level).Warn("unknown log level, using info")
		level = logrus.InfoLevel
	}
	l.SetLevel(level)
	return l
}

// New opens the database and wires every component. The caller owns the
// returned App and must Close it.
func New(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*App, error) {
	conn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, log: log, db: conn}
	if err := a.wire(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) wire(ctx context.Context) error {
	cfg := a.cfg
	log := a.log

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(a.db, cfg.Database.Driver, false); err != nil {
			return err
		}
		log.WithField("driver", cfg.Database.Driver).Info("migrations applied")
	}

	m := metrics.New()

	// === Repos ===
	userRepo := repositories.NewUserRepository(a.db)

	// === Auth primitives ===
	hasher := services.NewBcryptHasher(cfg.Auth.BcryptCost)
	jwtManager := authz.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	registerLimiter := ratelimit.New(services.RegisterLimiter,
		cfg.Auth.RegisterLimit.MaxAttempts, cfg.Auth.RegisterLimit.Window, nil)
	resetLimiter := ratelimit.New(services.PasswordResetLimiter,
		cfg.Auth.PasswordResetLimit.MaxAttempts, cfg.Auth.PasswordResetLimit.Window, nil)

	// === Services ===
	var emailService services.EmailService
	if cfg.Email.Enabled() {
		emailService = services.NewEmailService(
			cfg.Email.SMTPHost,
			cfg.Email.SMTPPort,
			cfg.Email.SMTPUser,
			cfg.Email.SMTPPassword,
			cfg.Email.FromEmail,
			cfg.Email.LoginURL,
		)
	} else {
		log.Warn("smtp not configured, password reset emails are disabled")
	}
	if cfg.Auth.ExposeResetPassword {
		log.Warn("expose_reset_password is on, undelivered reset passwords are returned to the caller")
	}

	authService := services.NewAuthService(
		userRepo, hasher, jwtManager,
		registerLimiter, resetLimiter,
		emailService,
		services.AuthOptions{
			ExposeResetPassword: cfg.Auth.ExposeResetPassword,
			EmailTimeout:        cfg.Email.SendTimeout,
		},
		log.WithField("component", "auth"), m,
	)
	userService := services.NewUserService(userRepo, hasher, log.WithField("component", "users"))

	ba := cfg.BootstrapAdmin
	if _, err := userService.EnsureBootstrapAdmin(ctx, ba.Email, ba.Pseudo, ba.Password); err != nil {
		return err
	}

	// === Limiter sweep ===
	scheduler, err := newSweepScheduler(cfg.Auth.SweepSchedule, log, m, registerLimiter, resetLimiter)
	if err != nil {
		return err
	}
	a.scheduler = scheduler

	// === Gin ===
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		return fmt.Errorf("trusted proxies: %w", err)
	}
	router.Use(
		middleware.RequestID(),
		middleware.AccessLog(log, m),
		middleware.Recovery(log),
		middleware.CORS(),
	)

	// Swagger
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	routes.SetupRoutes(
		router,
		jwtManager,
		handlers.NewAuthHandler(authService, log),
		handlers.NewUserHandler(userService, log),
		handlers.NewAdminHandler(userService, log),
		handlers.NewHealthHandler(a.db, log),
		m.Handler(),
	)
	a.router = router
	return nil
}

// newSweepScheduler registers one job that evicts expired windows from every
// limiter.
func newSweepScheduler(schedule string, log logrus.FieldLogger, m *metrics.Metrics, limiters ...*ratelimit.Limiter) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		for _, l := range limiters {
			n := l.Sweep()
			m.Swept(l.Name(), n)
			log.WithFields(logrus.Fields{"limiter": l.Name(), "removed": n, "remaining": l.Len()}).
				Debug("rate limit sweep")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule limiter sweep %q: %w", schedule, err)
	}
	return c, nil
}

func (a *App) Handler() http.Handler { return a.router }

// Run serves HTTP and runs the sweep until ctx is cancelled or the server
// fails, then shuts both down.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.log.WithField("addr", srv.Addr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		a.scheduler.Start()
		<-gctx.Done()
		<-a.scheduler.Stop().Done()
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func (a *App) Close() error {
	return a.db.Close()
}

// Run is the one-call entry point used by the serve command.
func Run(ctx context.Context, cfg *config.Config) error {
	log := NewLogger(cfg.Log)

	a, err := New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.WithError(err).Error("close database")
		}
	}()
	return a.Run(ctx)
}
