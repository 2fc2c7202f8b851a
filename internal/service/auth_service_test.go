package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"classhub/config"
	"classhub/internal/dto"
	"classhub/internal/model"
	"classhub/pkg/jwt"
)

// ── Mock Blacklist ──

type mockBlacklist struct {
	entries map[string]time.Duration
	err     error
}

func newMockBlacklist() *mockBlacklist {
	return &mockBlacklist{entries: make(map[string]time.Duration)}
}

func (m *mockBlacklist) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	if m.err != nil {
		return m.err
	}
	m.entries[jti] = ttl
	return nil
}

// ── 测试辅助 ──

func setupTestAuthService() (AuthService, *memStore, *mockBlacklist, *jwt.Manager) {
	repo, store := newTestRepo()
	jwtMgr := jwt.NewManager(&config.AuthConfig{
		JWTSecret:               "test-secret-key-for-unit-testing-2026",
		AccessTokenTTL:          15 * time.Minute,
		RefreshTokenTTLDefault:  24 * time.Hour,
		RefreshTokenTTLRemember: 7 * 24 * time.Hour,
	})
	bl := newMockBlacklist()
	return NewAuthService(repo, jwtMgr, bl, zap.NewNop()), store, bl, jwtMgr
}

func createTestUser(store *memStore, id, email, password string, role model.Role) {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	store.mu.Lock()
	defer store.mu.Unlock()
	store.users[id] = &model.User{
		UserID:       id,
		Name:         "测试用户",
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}
}

// ── 登录测试 ──

func TestLogin_Success(t *testing.T) {
	svc, store, _, jwtMgr := setupTestAuthService()
	createTestUser(store, "teacher-1", "wang@school.test", "password123", model.RoleTeacher)

	result, err := svc.Login(context.Background(), &dto.LoginRequest{
		Email:    " Wang@School.test ",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("Login 应成功，但返回错误: %v", err)
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Error("Token 不应为空")
	}
	if result.ExpiresIn != 900 {
		t.Errorf("期望 ExpiresIn=900，实际=%d", result.ExpiresIn)
	}
	if result.User.Role != "teacher" {
		t.Errorf("期望角色 teacher，实际 %s", result.User.Role)
	}

	claims, err := jwtMgr.ParseToken(result.AccessToken)
	if err != nil {
		t.Fatalf("AccessToken 应可解析: %v", err)
	}
	if claims.UserID != "teacher-1" || claims.TokenType != jwt.TokenTypeAccess {
		t.Errorf("Claims 不符: %+v", claims)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, store, _, _ := setupTestAuthService()
	createTestUser(store, "u1", "a@school.test", "password123", model.RoleStudent)

	_, err := svc.Login(context.Background(), &dto.LoginRequest{Email: "a@school.test", Password: "wrong_password"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("期望 ErrInvalidCredentials，实际: %v", err)
	}
}

func TestLogin_UserNotFound(t *testing.T) {
	svc, _, _, _ := setupTestAuthService()

	_, err := svc.Login(context.Background(), &dto.LoginRequest{Email: "nobody@school.test", Password: "password123"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("期望 ErrInvalidCredentials，实际: %v", err)
	}
}

// ── 注册测试 ──

func TestRegister_Success(t *testing.T) {
	svc, _, _, _ := setupTestAuthService()

	user, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Name:     "新同学",
		Email:    "New@School.test",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("Register 应成功: %v", err)
	}
	if user.Role != "student" {
		t.Errorf("注册用户应为 student，实际 %s", user.Role)
	}
	if user.Email != "new@school.test" {
		t.Errorf("邮箱应规范化为小写，实际 %s", user.Email)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, store, _, _ := setupTestAuthService()
	createTestUser(store, "u1", "dup@school.test", "password123", model.RoleStudent)

	_, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Name:     "重复",
		Email:    "dup@school.test",
		Password: "password123",
	})
	if !errors.Is(err, ErrEmailExists) {
		t.Errorf("期望 ErrEmailExists，实际: %v", err)
	}
}

func TestRegister_BlankName(t *testing.T) {
	svc, _, _, _ := setupTestAuthService()

	_, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Name:     "   ",
		Email:    "blank@school.test",
		Password: "password123",
	})
	if !errors.Is(err, ErrBlankField) {
		t.Errorf("期望 ErrBlankField，实际: %v", err)
	}
}

// ── 登出 / 当前用户 ──

func TestLogout_Blacklists(t *testing.T) {
	svc, _, bl, _ := setupTestAuthService()

	if err := svc.Logout(context.Background(), "jti-1", time.Now().Add(10*time.Minute)); err != nil {
		t.Fatalf("Logout 应成功: %v", err)
	}
	ttl, ok := bl.entries["jti-1"]
	if !ok || ttl <= 0 {
		t.Errorf("期望加入黑名单且 TTL > 0，实际 ok=%v ttl=%v", ok, ttl)
	}
}

func TestLogout_NoBlacklist(t *testing.T) {
	repo, _ := newTestRepo()
	jwtMgr := jwt.NewManager(&config.AuthConfig{JWTSecret: "test-secret-key-for-unit-testing-2026"})
	svc := NewAuthService(repo, jwtMgr, nil, zap.NewNop())

	if err := svc.Logout(context.Background(), "jti-1", time.Now().Add(time.Minute)); err != nil {
		t.Errorf("未启用黑名单时 Logout 应直接成功: %v", err)
	}
}

func TestGetCurrentUser(t *testing.T) {
	svc, store, _, _ := setupTestAuthService()
	createTestUser(store, "u1", "me@school.test", "password123", model.RoleStaff)

	me, err := svc.GetCurrentUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetCurrentUser 应成功: %v", err)
	}
	if me.Role != "staff" {
		t.Errorf("期望 staff，实际 %s", me.Role)
	}

	if _, err := svc.GetCurrentUser(context.Background(), "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("期望 ErrUserNotFound，实际: %v", err)
	}
}
