package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/sirupsen/logrus"

	"pokequest/internal/authz"
	"pokequest/internal/models"
	"pokequest/internal/repositories"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100

	msgPseudoEmpty      = "Le pseudo ne peut pas être vide"
	msgPasswordRequired = "Mot de passe requis"
)

// UserService covers profile changes made by the user themself and the
// admin-panel operations on other accounts.
type UserService interface {
	UpdatePseudo(ctx context.Context, userID int, newPseudo string) (string, error)
	UpdatePassword(ctx context.Context, userID int, currentPassword, newPassword string) error
	DeleteAccount(ctx context.Context, userID int, password string) error

	ListUsers(ctx context.Context, page, limit int) (*models.UserListResponse, error)
	ToggleAdmin(ctx context.Context, actor authz.Claims, targetID int) (bool, error)
	DeleteUser(ctx context.Context, actor authz.Claims, targetID int) error

	EnsureBootstrapAdmin(ctx context.Context, email, pseudo, password string) (bool, error)
}

type userService struct {
	repo   repositories.UserRepository
	hasher PasswordHasher
	log    logrus.FieldLogger
}

func NewUserService(repo repositories.UserRepository, hasher PasswordHasher, log logrus.FieldLogger) UserService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &userService{repo: repo, hasher: hasher, log: log}
}

func (s *userService) load(ctx context.Context, id int) (*models.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user %d: %w", id, err)
	}
	return u, nil
}

func notFoundAs(err error, target error, op string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return target
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (s *userService) UpdatePseudo(ctx context.Context, userID int, newPseudo string) (string, error) {
	pseudo := strings.TrimSpace(newPseudo)
	if err := validateRequest(models.UpdatePseudoRequest{NewPseudo: pseudo}); err != nil {
		return "", err
	}

	existing, err := s.repo.GetByPseudo(ctx, pseudo)
	switch {
	case err == nil && existing.ID != userID:
		return "", ErrPseudoTaken
	case err != nil && !errors.Is(err, repositories.ErrNotFound):
		return "", fmt.Errorf("lookup pseudo: %w", err)
	}

	if err := s.repo.UpdatePseudo(ctx, userID, pseudo); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return "", ErrPseudoTaken
		}
		return "", notFoundAs(err, ErrUserNotFound, "update pseudo")
	}

	s.log.WithFields(logrus.Fields{"user_id": userID, "pseudo": pseudo}).Info("pseudo changed")
	return pseudo, nil
}

func (s *userService) UpdatePassword(ctx context.Context, userID int, currentPassword, newPassword string) error {
	req := models.UpdatePasswordRequest{CurrentPassword: currentPassword, NewPassword: newPassword}
	if err := validateRequest(req); err != nil {
		return err
	}
	if err := checkPasswordBytes(newPassword); err != nil {
		return err
	}

	user, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	if !s.hasher.Compare(user.PasswordHash, currentPassword) {
		return ErrWrongPassword
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, userID, hash); err != nil {
		return notFoundAs(err, ErrUserNotFound, "update password")
	}

	s.log.WithField("user_id", userID).Info("password changed")
	return nil
}

func (s *userService) DeleteAccount(ctx context.Context, userID int, password string) error {
	if err := validateRequest(models.DeleteAccountRequest{Password: password}); err != nil {
		return err
	}
	user, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	if !s.hasher.Compare(user.PasswordHash, password) {
		return ErrWrongPassword
	}
	if err := s.repo.Delete(ctx, userID); err != nil {
		return notFoundAs(err, ErrUserNotFound, "delete user")
	}

	s.log.WithFields(logrus.Fields{"user_id": userID, "pseudo": user.Pseudo}).Info("account deleted by owner")
	return nil
}

func (s *userService) ListUsers(ctx context.Context, page, limit int) (*models.UserListResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	// keeps (page-1)*limit from overflowing into a negative offset
	if maxPage := math.MaxInt / limit; page > maxPage {
		page = maxPage
	}

	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	users, err := s.repo.List(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if users == nil {
		users = []models.User{}
	}

	return &models.UserListResponse{
		Users:       users,
		CurrentPage: page,
		TotalPages:  (total + limit - 1) / limit,
		TotalUsers:  total,
	}, nil
}

// ToggleAdmin flips the target's admin flag and returns the new value.
// The target must exist before the self check is applied.
func (s *userService) ToggleAdmin(ctx context.Context, actor authz.Claims, targetID int) (bool, error) {
	if _, err := s.load(ctx, targetID); err != nil {
		return false, err
	}
	if actor.IsSelf(targetID) {
		return false, ErrSelfAdminChange
	}

	next, err := s.repo.ToggleAdmin(ctx, targetID)
	if err != nil {
		return false, notFoundAs(err, ErrUserNotFound, "toggle admin")
	}

	s.log.WithFields(logrus.Fields{
		"actor_id":  actor.UserID,
		"target_id": targetID,
		"admin":     next,
	}).Info("admin flag toggled")
	return next, nil
}

func (s *userService) DeleteUser(ctx context.Context, actor authz.Claims, targetID int) error {
	target, err := s.load(ctx, targetID)
	if err != nil {
		return err
	}
	if actor.IsSelf(targetID) {
		return ErrSelfDelete
	}
	if err := s.repo.Delete(ctx, targetID); err != nil {
		return notFoundAs(err, ErrUserNotFound, "delete user")
	}

	s.log.WithFields(logrus.Fields{
		"actor_id":  actor.UserID,
		"target_id": targetID,
		"pseudo":    target.Pseudo,
	}).Info("user deleted by admin")
	return nil
}

// EnsureBootstrapAdmin creates the default admin when the store holds no
// users at all. It reports whether an account was created.
func (s *userService) EnsureBootstrapAdmin(ctx context.Context, email, pseudo, password string) (bool, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	if n > 0 {
		return false, nil
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return false, fmt.Errorf("hash bootstrap password: %w", err)
	}
	admin := &models.User{Email: email, Pseudo: pseudo, PasswordHash: hash, Admin: true}
	if err := s.repo.Create(ctx, admin); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			// another instance won the race
			return false, nil
		}
		return false, fmt.Errorf("create bootstrap admin: %w", err)
	}

	s.log.WithFields(logrus.Fields{"email": email, "pseudo": pseudo}).
		Warn("bootstrap admin created with the configured initial password, rotate it now")
	return true, nil
}
