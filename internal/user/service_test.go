package user

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"github.com/inventoryapp/inventoryapp/internal/common/config"
	"github.com/inventoryapp/inventoryapp/internal/common/logger"
)

type mockUserStore struct {
	byEmail map[string]*User
	byID    map[string]*User
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{
		byEmail: make(map[string]*User),
		byID:    make(map[string]*User),
	}
}

func (m *mockUserStore) Create(ctx context.Context, u *User) error {
	cp := *u
	m.byEmail[u.Email] = &cp
	m.byID[u.ID] = &cp
	return nil
}

func (m *mockUserStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	u, ok := m.byEmail[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserStore) FindByID(ctx context.Context, id string) (*User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		Enabled:       true,
		JWTSecret:     "test-secret",
		Issuer:        "inventoryapp",
		Audience:      "inventoryapp",
		TokenTTLMin:   60,
		SeedGuest:     true,
		GuestEmail:    "guest@inventoryapp.com",
		GuestPassword: "GuestViewOnly2024!",
	}
}

func TestLoginAndSession(t *testing.T) {
	store := newMockUserStore()
	svc := NewService(store, testAuthConfig(), logger.Nop())
	ctx := context.Background()

	hash, err := HashPassword("secret123")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if err := store.Create(ctx, &User{ID: "u-1", Email: "staff@inventoryapp.com", PasswordHash: hash, Roles: "staff"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	token, exp, u, err := svc.Login(ctx, "Staff@inventoryapp.com", "secret123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if token == "" || u.ID != "u-1" {
		t.Fatalf("unexpected login result: token=%q user=%#v", token, u)
	}
	if exp.IsZero() {
		t.Fatalf("expected expiry")
	}

	sess, err := svc.Session(ctx, token)
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if sess.UserID != "u-1" || sess.Email != "staff@inventoryapp.com" {
		t.Fatalf("unexpected session: %#v", sess)
	}
	if len(sess.Roles) != 1 || sess.Roles[0] != "staff" {
		t.Fatalf("unexpected roles: %#v", sess.Roles)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	store := newMockUserStore()
	svc := NewService(store, testAuthConfig(), logger.Nop())
	ctx := context.Background()

	hash, _ := HashPassword("secret123")
	_ = store.Create(ctx, &User{ID: "u-1", Email: "staff@inventoryapp.com", PasswordHash: hash})

	if _, _, _, err := svc.Login(ctx, "staff@inventoryapp.com", "nope"); err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, _, err := svc.Login(ctx, "nobody@inventoryapp.com", "nope"); err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestEnsureGuestAccount(t *testing.T) {
	store := newMockUserStore()
	svc := NewService(store, testAuthConfig(), logger.Nop())
	ctx := context.Background()

	if err := svc.EnsureGuestAccount(ctx); err != nil {
		t.Fatalf("EnsureGuestAccount: %v", err)
	}
	u, err := store.FindByEmail(ctx, "guest@inventoryapp.com")
	if err != nil {
		t.Fatalf("guest not seeded: %v", err)
	}
	if !VerifyPassword("GuestViewOnly2024!", u.PasswordHash) {
		t.Fatalf("guest password mismatch")
	}

	// 再跑一次应当是幂等的。
	if err := svc.EnsureGuestAccount(ctx); err != nil {
		t.Fatalf("EnsureGuestAccount second run: %v", err)
	}

	// guest 登录走普通流程，无特殊逻辑。
	if _, _, _, err := svc.Login(ctx, "guest@inventoryapp.com", "GuestViewOnly2024!"); err != nil {
		t.Fatalf("guest login: %v", err)
	}
}
