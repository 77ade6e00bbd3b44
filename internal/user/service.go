package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/inventoryapp/inventoryapp/internal/common/auth"
	"github.com/inventoryapp/inventoryapp/internal/common/config"
	"github.com/inventoryapp/inventoryapp/internal/common/logger"
)

// ErrInvalidCredentials 账号不存在或密码不匹配（对外不区分两者）。
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserStore 用户表的存储端口；*Repo 是 MySQL 实现。
type UserStore interface {
	Create(ctx context.Context, u *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
}

// SessionInfo 当前会话的最小信息。
type SessionInfo struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Roles     []string  `json:"roles"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Service 员工账号的登录和会话查询。
type Service struct {
	store   UserStore
	authCfg config.AuthConfig
	log     logger.Logger
}

func NewService(store UserStore, authCfg config.AuthConfig, log logger.Logger) *Service {
	return &Service{store: store, authCfg: authCfg, log: log}
}

// Login 按 email/password 登录，成功返回 HS256 access token。
func (s *Service) Login(ctx context.Context, email, password string) (string, time.Time, *User, error) {
	if s == nil || s.store == nil {
		return "", time.Time{}, nil, fmt.Errorf("service not initialized")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", time.Time{}, nil, ErrInvalidCredentials
	}

	u, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", time.Time{}, nil, ErrInvalidCredentials
		}
		return "", time.Time{}, nil, err
	}
	if !VerifyPassword(password, u.PasswordHash) {
		return "", time.Time{}, nil, ErrInvalidCredentials
	}

	ttl := time.Duration(s.authCfg.TokenTTLMin) * time.Minute
	token, expiresAt, err := auth.GenerateAccessToken(s.authCfg, u.ID, u.RolesSlice(), ttl)
	if err != nil {
		return "", time.Time{}, nil, err
	}
	return token, expiresAt, u, nil
}

// Session 校验 token 并返回当前会话信息；token 无效或用户已删除时报错。
func (s *Service) Session(ctx context.Context, token string) (*SessionInfo, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	claims, err := auth.ParseAccessToken(s.authCfg, token)
	if err != nil {
		return nil, err
	}
	u, err := s.store.FindByID(ctx, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("session user not found: %w", err)
	}
	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	return &SessionInfo{
		UserID:    u.ID,
		Email:     u.Email,
		Roles:     claims.Roles,
		ExpiresAt: expiresAt,
	}, nil
}

// EnsureGuestAccount 确保配置里的 guest 账号存在（只是普通一行）。
// 已存在时不做任何修改。
func (s *Service) EnsureGuestAccount(ctx context.Context) error {
	if s == nil || s.store == nil {
		return fmt.Errorf("service not initialized")
	}
	if !s.authCfg.SeedGuest || s.authCfg.GuestEmail == "" {
		return nil
	}

	email := strings.ToLower(strings.TrimSpace(s.authCfg.GuestEmail))
	if _, err := s.store.FindByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := HashPassword(s.authCfg.GuestPassword)
	if err != nil {
		return fmt.Errorf("failed to hash guest password: %w", err)
	}
	u := &User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Nickname:     "Guest",
		Roles:        RolesJoin([]string{"guest"}),
	}
	if err := s.store.Create(ctx, u); err != nil {
		return fmt.Errorf("failed to seed guest account: %w", err)
	}
	if s.log != nil {
		s.log.Infof("guest account seeded: %s", email)
	}
	return nil
}
