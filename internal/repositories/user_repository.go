package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"pokequest/internal/models"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int) (*models.User, error)
	GetByPseudo(ctx context.Context, pseudo string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]models.User, error)
	Count(ctx context.Context) (int, error)

	UpdatePassword(ctx context.Context, id int, hash string) error
	UpdatePseudo(ctx context.Context, id int, pseudo string) error
	ToggleAdmin(ctx context.Context, id int) (bool, error)
	Delete(ctx context.Context, id int) error
}

type userRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{DB: db}
}

const userColumns = `id, email, pseudo, password_hash, admin, created_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	u := &models.User{}
	if err := row.Scan(&u.ID, &u.Email, &u.Pseudo, &u.PasswordHash, &u.Admin, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	const q = `
		INSERT INTO users (email, pseudo, password_hash, admin, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, q,
		user.Email,
		user.Pseudo,
		user.PasswordHash,
		user.Admin,
		user.CreatedAt,
	).Scan(&user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id int) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.DB.QueryRowContext(ctx, q, id))
}

// GetByPseudo is an exact, case-sensitive match.
func (r *userRepository) GetByPseudo(ctx context.Context, pseudo string) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE pseudo = $1`
	return scanUser(r.DB.QueryRowContext(ctx, q, pseudo))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.DB.QueryRowContext(ctx, q, email))
}

func (r *userRepository) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	q := `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.DB.QueryContext(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := make([]models.User, 0, limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *u)
	}
	return res, rows.Err()
}

func (r *userRepository) Count(ctx context.Context) (int, error) {
	var c int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&c)
	return c, err
}

func (r *userRepository) UpdatePassword(ctx context.Context, id int, hash string) error {
	return r.execOne(ctx, `UPDATE users SET password_hash = $1 WHERE id = $2`, hash, id)
}

func (r *userRepository) UpdatePseudo(ctx context.Context, id int, pseudo string) error {
	err := r.execOne(ctx, `UPDATE users SET pseudo = $1 WHERE id = $2`, pseudo, id)
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// ToggleAdmin flips the flag in one statement and returns the stored value,
// so concurrent toggles never collapse into a single flip.
func (r *userRepository) ToggleAdmin(ctx context.Context, id int) (bool, error) {
	var admin bool
	err := r.DB.QueryRowContext(ctx,
		`UPDATE users SET admin = NOT admin WHERE id = $1 RETURNING admin`, id,
	).Scan(&admin)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrNotFound
	}
	return admin, err
}

// Delete removes the user; user_challenges rows go with it via ON DELETE CASCADE.
func (r *userRepository) Delete(ctx context.Context, id int) error {
	return r.execOne(ctx, `DELETE FROM users WHERE id = $1`, id)
}

func (r *userRepository) execOne(ctx context.Context, q string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
