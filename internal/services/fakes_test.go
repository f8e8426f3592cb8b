package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"pokequest/internal/models"
	"pokequest/internal/repositories"
)

// memUserRepo mirrors the uniqueness and not-found behaviour of the SQL
// repository.
type memUserRepo struct {
	mu     sync.Mutex
	nextID int
	users  map[int]models.User
	base   time.Time
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{
		nextID: 1,
		users:  make(map[int]models.User),
		base:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (r *memUserRepo) conflicts(id int, email, pseudo string) bool {
	for _, u := range r.users {
		if u.ID == id {
			continue
		}
		if (email != "" && u.Email == email) || (pseudo != "" && u.Pseudo == pseudo) {
			return true
		}
	}
	return false
}

func (r *memUserRepo) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conflicts(0, user.Email, user.Pseudo) {
		return repositories.ErrDuplicate
	}
	user.ID = r.nextID
	r.nextID++
	if user.CreatedAt.IsZero() {
		user.CreatedAt = r.base.Add(time.Duration(user.ID) * time.Second)
	}
	r.users[user.ID] = *user
	return nil
}

func (r *memUserRepo) find(match func(models.User) bool) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) {
			cp := u
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *memUserRepo) GetByID(_ context.Context, id int) (*models.User, error) {
	return r.find(func(u models.User) bool { return u.ID == id })
}

func (r *memUserRepo) GetByPseudo(_ context.Context, pseudo string) (*models.User, error) {
	return r.find(func(u models.User) bool { return u.Pseudo == pseudo })
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return r.find(func(u models.User) bool { return u.Email == email })
}

func (r *memUserRepo) List(_ context.Context, limit, offset int) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]models.User, 0, len(r.users))
	for _, u := range r.users {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})
	if offset >= len(all) {
		return []models.User{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *memUserRepo) Count(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users), nil
}

func (r *memUserRepo) update(id int, fn func(*models.User) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repositories.ErrNotFound
	}
	if err := fn(&u); err != nil {
		return err
	}
	r.users[id] = u
	return nil
}

func (r *memUserRepo) UpdatePassword(_ context.Context, id int, hash string) error {
	return r.update(id, func(u *models.User) error { u.PasswordHash = hash; return nil })
}

func (r *memUserRepo) UpdatePseudo(_ context.Context, id int, pseudo string) error {
	return r.update(id, func(u *models.User) error {
		if r.conflicts(id, "", pseudo) {
			return repositories.ErrDuplicate
		}
		u.Pseudo = pseudo
		return nil
	})
}

func (r *memUserRepo) ToggleAdmin(_ context.Context, id int) (bool, error) {
	var admin bool
	err := r.update(id, func(u *models.User) error {
		u.Admin = !u.Admin
		admin = u.Admin
		return nil
	})
	return admin, err
}

func (r *memUserRepo) Delete(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

type sentMail struct {
	email, pseudo, password string
}

type fakeMailer struct {
	mu   sync.Mutex
	err  error
	wait time.Duration
	sent []sentMail
}

func (m *fakeMailer) SendPasswordResetEmail(ctx context.Context, email, pseudo, newPassword string) error {
	if m.wait > 0 {
		select {
		case <-time.After(m.wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	m.sent = append(m.sent, sentMail{email, pseudo, newPassword})
	m.mu.Unlock()
	return nil
}

func testHasher() PasswordHasher {
	return NewBcryptHasher(bcrypt.MinCost)
}
