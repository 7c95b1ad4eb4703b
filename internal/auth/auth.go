// Package auth manages local accounts and the signed session cookie.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"terradjunto/internal/logger"
	"terradjunto/internal/models"
	"terradjunto/internal/records"
	"terradjunto/internal/store"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrWrongPassword    = errors.New("wrong password")
	ErrEmailInUse       = errors.New("email already registered")
	ErrInvalidNIF       = errors.New("NIF must have 9 digits")
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrRequired         = errors.New("missing required field")
)

// Registration is the sign-up form.
type Registration struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	NIF             string `json:"nif"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Accounts owns the users slot. Passwords are stored as bcrypt hashes.
type Accounts struct {
	users *records.Collection[models.StoredUser]
	cost  int
}

func NewAccounts(kv store.KV) *Accounts {
	return &Accounts{
		users: records.NewCollection(kv, store.KeyUsers, "users", (*models.StoredUser).Upgrade),
		cost:  bcrypt.DefaultCost,
	}
}

// WithCost sets the bcrypt cost, mostly so tests stay fast.
func (a *Accounts) WithCost(cost int) *Accounts {
	a.cost = cost
	return a
}

// Users exposes the collection for listing and subscriptions.
func (a *Accounts) Users() *records.Collection[models.StoredUser] {
	return a.users
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidNIF reports whether nif is exactly nine digits.
func ValidNIF(nif string) bool {
	if len(nif) != 9 {
		return false
	}
	for _, r := range nif {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (a *Accounts) hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// Login checks the credentials and returns the public profile.
func (a *Accounts) Login(ctx context.Context, email, password string) (models.AuthUser, error) {
	u, ok := a.users.Get(ctx, normalizeEmail(email))
	if !ok {
		return models.AuthUser{}, ErrUserNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return models.AuthUser{}, ErrWrongPassword
	}
	return u.Public(), nil
}

// Register creates a regular account. The caller logs the new user in.
func (a *Accounts) Register(ctx context.Context, reg Registration) (models.AuthUser, error) {
	reg.Email = normalizeEmail(reg.Email)
	reg.NIF = strings.TrimSpace(reg.NIF)
	for _, f := range [][2]string{{"name", reg.Name}, {"email", reg.Email}, {"password", reg.Password}} {
		if strings.TrimSpace(f[1]) == "" {
			return models.AuthUser{}, fmt.Errorf("%w: %s", ErrRequired, f[0])
		}
	}
	if !ValidNIF(reg.NIF) {
		return models.AuthUser{}, ErrInvalidNIF
	}
	if reg.Password != reg.ConfirmPassword {
		return models.AuthUser{}, ErrPasswordMismatch
	}
	if _, ok := a.users.Get(ctx, reg.Email); ok {
		return models.AuthUser{}, ErrEmailInUse
	}

	hash, err := a.hash(reg.Password)
	if err != nil {
		return models.AuthUser{}, err
	}
	u, err := a.users.CreateIf(ctx, models.StoredUser{
		Name:         strings.TrimSpace(reg.Name),
		Email:        reg.Email,
		NIF:          reg.NIF,
		PasswordHash: hash,
		Role:         models.RoleUser,
		CreatedAt:    time.Now().UTC(),
	}, emailFree(reg.Email))
	if err != nil {
		return models.AuthUser{}, err
	}
	return u.Public(), nil
}

// emailFree fails with ErrEmailInUse when email already has an account.
// It runs under the users slot lock, after the slow password hash.
func emailFree(email string) func([]models.StoredUser) error {
	return func(users []models.StoredUser) error {
		for _, u := range users {
			if u.Email == email {
				return ErrEmailInUse
			}
		}
		return nil
	}
}

// ResetPassword overwrites the credential of email. There is no ownership
// check; anyone who knows the address can reset it.
func (a *Accounts) ResetPassword(ctx context.Context, email, password, confirm string) error {
	if password == "" {
		return fmt.Errorf("%w: password", ErrRequired)
	}
	if password != confirm {
		return ErrPasswordMismatch
	}
	hash, err := a.hash(password)
	if err != nil {
		return err
	}
	if _, ok := a.users.Update(ctx, normalizeEmail(email), func(u *models.StoredUser) { u.PasswordHash = hash }); !ok {
		return ErrUserNotFound
	}
	return nil
}

// EnsureAdmin seeds the admin account, or promotes it if it already exists.
// An existing password is left alone.
func (a *Accounts) EnsureAdmin(ctx context.Context, email, name, password string) (models.AuthUser, error) {
	email = normalizeEmail(email)
	if email == "" {
		return models.AuthUser{}, fmt.Errorf("%w: email", ErrRequired)
	}

	if _, ok := a.users.Get(ctx, email); ok {
		return a.promote(ctx, email)
	}

	if password == "" {
		return models.AuthUser{}, fmt.Errorf("%w: password", ErrRequired)
	}
	hash, err := a.hash(password)
	if err != nil {
		return models.AuthUser{}, err
	}
	if name == "" {
		name = "Administrador"
	}
	u, err := a.users.CreateIf(ctx, models.StoredUser{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		CreatedAt:    time.Now().UTC(),
	}, emailFree(email))
	if errors.Is(err, ErrEmailInUse) {
		// registered while we were hashing
		return a.promote(ctx, email)
	}
	if err != nil {
		return models.AuthUser{}, err
	}
	logger.L().Info("admin seeded", "email", email)
	return u.Public(), nil
}

func (a *Accounts) promote(ctx context.Context, email string) (models.AuthUser, error) {
	promoted := false
	u, ok := a.users.Update(ctx, email, func(u *models.StoredUser) {
		promoted = u.Role != models.RoleAdmin
		u.Role = models.RoleAdmin
	})
	if !ok {
		return models.AuthUser{}, ErrUserNotFound
	}
	if promoted {
		logger.L().Info("admin promoted", "email", email)
	}
	return u.Public(), nil
}

// List returns every account without credentials.
func (a *Accounts) List(ctx context.Context, q string) []models.AuthUser {
	out := []models.AuthUser{}
	for _, u := range a.users.List(ctx) {
		if records.MatchQuery(q, u.Name, u.Email, u.NIF) {
			out = append(out, u.Public())
		}
	}
	return out
}
