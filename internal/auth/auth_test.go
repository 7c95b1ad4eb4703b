package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"terradjunto/internal/models"
	"terradjunto/internal/store"

	"golang.org/x/crypto/bcrypt"
)

func setupAccounts(t *testing.T) *Accounts {
	t.Helper()
	kv, err := store.New(store.Config{Backend: store.BackendSQLite, SQLitePath: ":memory:"})
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { kv.Close() })
	return NewAccounts(kv).WithCost(bcrypt.MinCost)
}

func validRegistration() Registration {
	return Registration{
		Name:            "Maria Tavares",
		Email:           "Maria@Example.cv",
		NIF:             "123456789",
		Password:        "morabeza",
		ConfirmPassword: "morabeza",
	}
}

func TestValidNIF(t *testing.T) {
	for nif, want := range map[string]bool{
		"123456789":  true,
		"12345678":   false,
		"1234567890": false,
		"12345678a":  false,
		"":           false,
	} {
		if got := ValidNIF(nif); got != want {
			t.Errorf("ValidNIF(%q) = %v, want %v", nif, got, want)
		}
	}
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	a := setupAccounts(t)

	u, err := a.Register(ctx, validRegistration())
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if u.Email != "maria@example.cv" || u.Role != models.RoleUser {
		t.Errorf("Unexpected user %+v", u)
	}

	stored, _ := a.Users().Get(ctx, "maria@example.cv")
	if stored.PasswordHash == "" || stored.PasswordHash == "morabeza" {
		t.Error("Password should be stored hashed")
	}

	tests := []struct {
		name   string
		modify func(*Registration)
		want   error
	}{
		{"duplicate email", func(r *Registration) { r.Email = " MARIA@example.cv " }, ErrEmailInUse},
		{"short NIF", func(r *Registration) { r.Email = "a@b.cv"; r.NIF = "1234" }, ErrInvalidNIF},
		{"mismatch", func(r *Registration) { r.Email = "a@b.cv"; r.ConfirmPassword = "x" }, ErrPasswordMismatch},
		{"missing name", func(r *Registration) { r.Email = "a@b.cv"; r.Name = " " }, ErrRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := validRegistration()
			tt.modify(&reg)
			if _, err := a.Register(ctx, reg); !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}

	if n := len(a.List(ctx, "")); n != 1 {
		t.Errorf("Expected 1 user after rejected registrations, got %d", n)
	}
}

func TestRegisterConcurrent(t *testing.T) {
	ctx := context.Background()
	a := setupAccounts(t)

	const n = 8
	start := make(chan struct{})
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := a.Register(ctx, validRegistration())
			errs <- err
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	created, inUse := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			created++
		case errors.Is(err, ErrEmailInUse):
			inUse++
		default:
			t.Errorf("Unexpected error %v", err)
		}
	}
	if created != 1 || inUse != n-1 {
		t.Errorf("Expected 1 account and %d rejections, got %d/%d", n-1, created, inUse)
	}

	stored := 0
	for _, u := range a.Users().Reload(ctx) {
		if u.Email == "maria@example.cv" {
			stored++
		}
	}
	if stored != 1 {
		t.Errorf("Expected one stored account, got %d", stored)
	}

	// the seeded admin promotes instead of duplicating
	u, err := a.EnsureAdmin(ctx, "maria@example.cv", "", "outra")
	if err != nil || u.Role != models.RoleAdmin {
		t.Fatalf("EnsureAdmin = %+v, %v", u, err)
	}
	if _, err := a.Login(ctx, "maria@example.cv", "morabeza"); err != nil {
		t.Errorf("Promoted account should keep its password, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	a := setupAccounts(t)
	if _, err := a.Register(ctx, validRegistration()); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	u, err := a.Login(ctx, "maria@example.cv", "morabeza")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if u.Name != "Maria Tavares" {
		t.Errorf("Unexpected user %+v", u)
	}

	if _, err := a.Login(ctx, "maria@example.cv", "wrong"); !errors.Is(err, ErrWrongPassword) {
		t.Errorf("Expected ErrWrongPassword, got %v", err)
	}
	if _, err := a.Login(ctx, "nobody@example.cv", "morabeza"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
}

func TestResetPassword(t *testing.T) {
	ctx := context.Background()
	a := setupAccounts(t)
	if _, err := a.Register(ctx, validRegistration()); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if err := a.ResetPassword(ctx, "maria@example.cv", "nova", "nova"); err != nil {
		t.Fatalf("ResetPassword failed: %v", err)
	}
	if _, err := a.Login(ctx, "maria@example.cv", "morabeza"); !errors.Is(err, ErrWrongPassword) {
		t.Errorf("Old password should stop working, got %v", err)
	}
	if _, err := a.Login(ctx, "maria@example.cv", "nova"); err != nil {
		t.Errorf("New password should work, got %v", err)
	}

	if err := a.ResetPassword(ctx, "nobody@example.cv", "x", "x"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
	if err := a.ResetPassword(ctx, "maria@example.cv", "x", "y"); !errors.Is(err, ErrPasswordMismatch) {
		t.Errorf("Expected ErrPasswordMismatch, got %v", err)
	}
}

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()
	a := setupAccounts(t)

	t.Run("seed", func(t *testing.T) {
		u, err := a.EnsureAdmin(ctx, "admin@terradjunto.cv", "", "segredo")
		if err != nil {
			t.Fatalf("EnsureAdmin failed: %v", err)
		}
		if !u.IsAdmin() || u.Name != "Administrador" {
			t.Errorf("Unexpected admin %+v", u)
		}
		if _, err := a.Login(ctx, "admin@terradjunto.cv", "segredo"); err != nil {
			t.Errorf("Admin login failed: %v", err)
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		if _, err := a.EnsureAdmin(ctx, "admin@terradjunto.cv", "", "outra"); err != nil {
			t.Fatalf("EnsureAdmin failed: %v", err)
		}
		if _, err := a.Login(ctx, "admin@terradjunto.cv", "segredo"); err != nil {
			t.Errorf("Existing password should be kept, got %v", err)
		}
		if n := len(a.List(ctx, "admin")); n != 1 {
			t.Errorf("Expected 1 admin, got %d", n)
		}
	})

	t.Run("promote", func(t *testing.T) {
		if _, err := a.Register(ctx, validRegistration()); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
		u, err := a.EnsureAdmin(ctx, "maria@example.cv", "", "")
		if err != nil {
			t.Fatalf("EnsureAdmin failed: %v", err)
		}
		if !u.IsAdmin() {
			t.Errorf("Expected promotion, got %+v", u)
		}
	})
}

func TestSessions(t *testing.T) {
	s := NewSessions([]byte("0123456789abcdef0123456789abcdef"), false)
	user := models.AuthUser{Name: "Maria", Email: "maria@example.cv", Role: models.RoleUser}

	login := func(remember bool) *http.Cookie {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", nil)
		if err := s.Login(w, r, user, remember); err != nil {
			t.Fatalf("Login failed: %v", err)
		}
		cookies := w.Result().Cookies()
		if len(cookies) != 1 {
			t.Fatalf("Expected 1 cookie, got %d", len(cookies))
		}
		return cookies[0]
	}

	t.Run("remember me", func(t *testing.T) {
		c := login(true)
		if c.MaxAge != int(RememberDuration.Seconds()) {
			t.Errorf("Expected 6 month cookie, got MaxAge %d", c.MaxAge)
		}

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(c)
		got, ok := s.User(r)
		if !ok || got != user {
			t.Errorf("Expected %+v, got %+v", user, got)
		}
		if !s.Remembered(r) {
			t.Error("Expected rememberMe")
		}
	})

	t.Run("browser session", func(t *testing.T) {
		c := login(false)
		if c.MaxAge != 0 || strings.Contains(c.String(), "Max-Age") {
			t.Errorf("Expected session cookie, got %s", c.String())
		}
	})

	t.Run("tampered cookie", func(t *testing.T) {
		c := login(true)
		c.Value = "x" + c.Value
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(c)
		if _, ok := s.User(r); ok {
			t.Error("Tampered cookie should not authenticate")
		}
	})

	t.Run("logout keeps language", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPut, "/", nil)
		r.AddCookie(login(false))
		if err := s.SetLang(w, r, "fr"); err != nil {
			t.Fatalf("SetLang failed: %v", err)
		}
		if err := s.Logout(w, r); err != nil {
			t.Fatalf("Logout failed: %v", err)
		}
		cookies := w.Result().Cookies()
		next := httptest.NewRequest(http.MethodGet, "/", nil)
		next.AddCookie(cookies[len(cookies)-1])
		if _, ok := s.User(next); ok {
			t.Error("Expected logged out")
		}
		if lang, ok := s.Lang(next); !ok || lang != "fr" {
			t.Errorf("Expected fr, got %q", lang)
		}
	})

	t.Run("visitor id is stable", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		id, err := s.Visitor(w, r)
		if err != nil || id == "" {
			t.Fatalf("Visitor failed: %q %v", id, err)
		}
		next := httptest.NewRequest(http.MethodGet, "/", nil)
		next.AddCookie(w.Result().Cookies()[0])
		again, err := s.Visitor(httptest.NewRecorder(), next)
		if err != nil || again != id {
			t.Errorf("Expected %q, got %q", id, again)
		}
	})
}
