package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"pokequest/internal/antibot"
	"pokequest/internal/authz"
	"pokequest/internal/metrics"
	"pokequest/internal/models"
	"pokequest/internal/ratelimit"
	"pokequest/internal/repositories"
	"pokequest/internal/utils"
)

const (
	maxPasswordBytes  = 72 // bcrypt ignores anything past this
	resetPasswordLen  = 8
	registerKeyPrefix = "register:"

	msgFieldsRequired   = "Tous les champs sont requis"
	msgPasswordTooShort = "Le mot de passe doit contenir au moins 6 caractères"
	msgPasswordTooLong  = "Le mot de passe est trop long (72 octets maximum)"
	msgEmailRequired    = "Email requis"
)

type AuthService interface {
	Register(ctx context.Context, clientIP string, req models.RegisterRequest) (*AuthResult, error)
	Login(ctx context.Context, req models.LoginRequest) (*AuthResult, error)
	Verify(ctx context.Context, claims authz.Claims) (*models.User, error)
	RequestPasswordReset(ctx context.Context, clientIP, email string) (*ResetResult, error)
	NewCaptcha() antibot.Challenge
}

type AuthResult struct {
	Token string
	User  *models.User
}

// ResetResult describes what happened after the password was rotated.
// DevPassword is only set when delivery failed and exposure is enabled.
type ResetResult struct {
	Email       string
	Delivered   bool
	DevPassword string
}

type AuthOptions struct {
	ExposeResetPassword bool
	EmailTimeout        time.Duration
}

type authService struct {
	users         repositories.UserRepository
	hasher        PasswordHasher
	issuer        authz.ClaimsIssuer
	registerLimit *ratelimit.Limiter
	resetLimit    *ratelimit.Limiter
	emails        EmailService
	opts          AuthOptions
	log           logrus.FieldLogger
	metrics       *metrics.Metrics

	// compared against on unknown pseudo so both login failures cost a bcrypt round
	dummyHash string
}

// NewAuthService wires the auth flows. emails may be nil when SMTP is not
// configured; every reset then takes the undelivered path.
func NewAuthService(
	users repositories.UserRepository,
	hasher PasswordHasher,
	issuer authz.ClaimsIssuer,
	registerLimit, resetLimit *ratelimit.Limiter,
	emails EmailService,
	opts AuthOptions,
	log logrus.FieldLogger,
	m *metrics.Metrics,
) AuthService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if opts.EmailTimeout <= 0 {
		opts.EmailTimeout = 10 * time.Second
	}
	dummy, err := hasher.Hash("pokequest-timing-equaliser")
	if err != nil {
		log.WithError(err).Warn("could not precompute dummy hash")
	}
	return &authService{
		users:         users,
		hasher:        hasher,
		issuer:        issuer,
		registerLimit: registerLimit,
		resetLimit:    resetLimit,
		emails:        emails,
		opts:          opts,
		log:           log,
		metrics:       m,
		dummyHash:     dummy,
	}
}

func limitError(l *ratelimit.Limiter, res ratelimit.Result) error {
	return &RateLimitError{
		Limiter:    l.Name(),
		RetryAfter: res.RetryAfter,
		Minutes:    res.RetryAfterMinutes(),
	}
}

func (s *authService) Register(ctx context.Context, clientIP string, req models.RegisterRequest) (*AuthResult, error) {
	log := s.log.WithField("ip", clientIP)

	if err := antibot.Check(req.Honeypot, req.MathAnswer, req.ExpectedAnswer); err != nil {
		if errors.Is(err, antibot.ErrBotDetected) {
			log.WithField("email", req.Email).Warn("honeypot filled on registration")
			s.metrics.AuthOutcome("register", "bot")
		} else {
			s.metrics.AuthOutcome("register", "captcha")
		}
		return nil, err
	}

	req.Email = strings.TrimSpace(req.Email)
	req.Pseudo = strings.TrimSpace(req.Pseudo)
	if err := validateRequest(req); err != nil {
		s.metrics.AuthOutcome("register", "invalid")
		return nil, err
	}
	if err := checkPasswordBytes(req.Password); err != nil {
		s.metrics.AuthOutcome("register", "invalid")
		return nil, err
	}
	email, pseudo := req.Email, req.Pseudo

	if res := s.registerLimit.Check(registerKeyPrefix + clientIP); !res.Allowed {
		log.Warn("registration rate limit exceeded")
		s.metrics.Denied(s.registerLimit.Name())
		s.metrics.AuthOutcome("register", "limited")
		return nil, limitError(s.registerLimit, res)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{Email: email, Pseudo: pseudo, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			s.metrics.AuthOutcome("register", "duplicate")
			return nil, ErrDuplicateIdentity
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	token, err := s.issue(user)
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{"user_id": user.ID, "pseudo": user.Pseudo}).Info("user registered")
	s.metrics.AuthOutcome("register", "success")
	return &AuthResult{Token: token, User: user}, nil
}

func (s *authService) Login(ctx context.Context, req models.LoginRequest) (*AuthResult, error) {
	user, err := s.users.GetByPseudo(ctx, req.Pseudo)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("load user: %w", err)
		}
		s.hasher.Compare(s.dummyHash, req.Password)
		s.metrics.AuthOutcome("login", "failure")
		return nil, ErrInvalidCredentials
	}

	if !s.hasher.Compare(user.PasswordHash, req.Password) {
		s.metrics.AuthOutcome("login", "failure")
		return nil, ErrInvalidCredentials
	}

	token, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	s.metrics.AuthOutcome("login", "success")
	return &AuthResult{Token: token, User: user}, nil
}

// Verify returns the persisted user behind the claims, not the claims
// themselves, so admin changes and deletions show up immediately.
func (s *authService) Verify(ctx context.Context, claims authz.Claims) (*models.User, error) {
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

func (s *authService) RequestPasswordReset(ctx context.Context, clientIP, email string) (*ResetResult, error) {
	email = strings.TrimSpace(email)
	if err := validateRequest(models.PasswordResetRequest{Email: email}); err != nil {
		return nil, err
	}

	log := s.log.WithField("ip", clientIP)

	if res := s.resetLimit.Check(clientIP); !res.Allowed {
		log.Warn("password reset rate limit exceeded")
		s.metrics.Denied(s.resetLimit.Name())
		s.metrics.AuthOutcome("password_reset", "limited")
		return nil, limitError(s.resetLimit, res)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			s.metrics.AuthOutcome("password_reset", "unknown_email")
			return nil, ErrEmailNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	plain, err := utils.RandomPassword(resetPasswordLen)
	if err != nil {
		return nil, fmt.Errorf("generate password: %w", err)
	}
	hash, err := s.hasher.Hash(plain)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrEmailNotFound
		}
		return nil, fmt.Errorf("update password: %w", err)
	}

	log = log.WithField("user_id", user.ID)
	s.metrics.AuthOutcome("password_reset", "success")

	result := &ResetResult{Email: user.Email}
	if err := s.deliver(ctx, user, plain); err != nil {
		log.WithError(err).Warn("password reset email not delivered")
		s.metrics.Delivery("failed")
		if s.opts.ExposeResetPassword {
			log.WithFields(logrus.Fields{
				"pseudo":       user.Pseudo,
				"email":        user.Email,
				"new_password": plain,
			}).Warn("password reset fallback, plaintext exposed")
			result.DevPassword = plain
		}
		return result, nil
	}

	log.Info("password reset email sent")
	s.metrics.Delivery("sent")
	result.Delivered = true
	return result, nil
}

var errMailerDisabled = errors.New("smtp not configured")

func (s *authService) deliver(ctx context.Context, user *models.User, plain string) error {
	if s.emails == nil {
		return errMailerDisabled
	}
	// the caller's context may be cancelled when the client disconnects, the
	// password is already rotated so the send gets its own budget
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.EmailTimeout)
	defer cancel()
	return s.emails.SendPasswordResetEmail(sendCtx, user.Email, user.Pseudo, plain)
}

func (s *authService) NewCaptcha() antibot.Challenge {
	return antibot.NewChallenge()
}

func (s *authService) issue(user *models.User) (string, error) {
	token, err := s.issuer.Issue(authz.Claims{UserID: user.ID, Pseudo: user.Pseudo, Admin: user.Admin})
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return token, nil
}
