package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/fathom-backend/internal/platform/logger"
	"github.com/yungbote/fathom-backend/internal/requestdata"
	"github.com/yungbote/fathom-backend/internal/types"
)

type fakeUserRepo struct {
	byEmail map[string]*types.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byEmail: map[string]*types.User{}}
}

func (f *fakeUserRepo) Create(ctx context.Context, tx *gorm.DB, user *types.User) (*types.User, error) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	f.byEmail[user.Email] = user
	return user, nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.User, error) {
	for _, u := range f.byEmail {
		if u.ID == userID {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*types.User, error) {
	return f.byEmail[email], nil
}

func (f *fakeUserRepo) EmailExists(ctx context.Context, tx *gorm.DB, email string) (bool, error) {
	_, ok := f.byEmail[email]
	return ok, nil
}

type fakeTokenRepo struct {
	byRefresh map[string]*types.UserToken
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{byRefresh: map[string]*types.UserToken{}}
}

func (f *fakeTokenRepo) Create(ctx context.Context, tx *gorm.DB, token *types.UserToken) (*types.UserToken, error) {
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	f.byRefresh[token.RefreshToken] = token
	return token, nil
}

func (f *fakeTokenRepo) GetByRefreshToken(ctx context.Context, tx *gorm.DB, refreshToken string) (*types.UserToken, error) {
	return f.byRefresh[refreshToken], nil
}

func (f *fakeTokenRepo) DeleteByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	for k, t := range f.byRefresh {
		if t.UserID == userID {
			delete(f.byRefresh, k)
		}
	}
	return nil
}

func (f *fakeTokenRepo) DeleteExpired(ctx context.Context, tx *gorm.DB, cutoff time.Time) error {
	for k, t := range f.byRefresh {
		if t.ExpiresAt.Before(cutoff) {
			delete(f.byRefresh, k)
		}
	}
	return nil
}

func newTestAuth(t *testing.T) (AuthService, *fakeUserRepo, *fakeTokenRepo) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	users := newFakeUserRepo()
	tokens := newFakeTokenRepo()
	svc, err := NewAuthService(nil, log, users, tokens)
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}
	return svc, users, tokens
}

func TestRegisterIssuesVerifiableToken(t *testing.T) {
	svc, _, _ := newTestAuth(t)
	ctx := context.Background()

	user, pair, err := svc.Register(ctx, "Ada@Example.com", "hunter2hunter2", "Ada")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Email != "ada@example.com" {
		t.Fatalf("email not normalized: %q", user.Email)
	}
	if user.Password == "hunter2hunter2" {
		t.Fatalf("password stored in plaintext")
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("empty token pair: %+v", pair)
	}

	authed, err := svc.ContextFromToken(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("ContextFromToken: %v", err)
	}
	if got := requestdata.UserID(authed); got != user.ID {
		t.Fatalf("context user = %s, want %s", got, user.ID)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc, _, _ := newTestAuth(t)
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "ada@example.com", "hunter2hunter2", "Ada"); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if _, _, err := svc.Register(ctx, "ada@example.com", "hunter2hunter2", "Ada"); err == nil {
		t.Fatalf("expected conflict on duplicate email")
	}
}

func TestRegisterValidatesInput(t *testing.T) {
	svc, _, _ := newTestAuth(t)
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "not-an-email", "hunter2hunter2", ""); err == nil {
		t.Fatalf("expected error for malformed email")
	}
	if _, _, err := svc.Register(ctx, "ada@example.com", "short", ""); err == nil {
		t.Fatalf("expected error for short password")
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	svc, _, _ := newTestAuth(t)
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "ada@example.com", "hunter2hunter2", "Ada"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, _, err := svc.Login(ctx, "ada@example.com", "wrong-password"); err == nil {
		t.Fatalf("expected unauthorized for wrong password")
	}
	if _, _, err := svc.Login(ctx, "ada@example.com", "hunter2hunter2"); err != nil {
		t.Fatalf("Login with correct password: %v", err)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	svc, _, tokens := newTestAuth(t)
	ctx := context.Background()

	_, pair, err := svc.Register(ctx, "ada@example.com", "hunter2hunter2", "Ada")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	next, err := svc.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if next.RefreshToken == pair.RefreshToken {
		t.Fatalf("refresh token not rotated")
	}
	if _, err := svc.Refresh(ctx, pair.RefreshToken); err == nil {
		t.Fatalf("expected old refresh token to be revoked")
	}
	if len(tokens.byRefresh) != 1 {
		t.Fatalf("token rows = %d, want 1", len(tokens.byRefresh))
	}
}

func TestRefreshRejectsExpiredToken(t *testing.T) {
	svc, _, tokens := newTestAuth(t)
	ctx := context.Background()

	_, pair, err := svc.Register(ctx, "ada@example.com", "hunter2hunter2", "Ada")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	tokens.byRefresh[pair.RefreshToken].ExpiresAt = time.Now().UTC().Add(-time.Minute)
	if _, err := svc.Refresh(ctx, pair.RefreshToken); err == nil {
		t.Fatalf("expected expired refresh token to be rejected")
	}
}

func TestLogoutRevokesSessions(t *testing.T) {
	svc, _, tokens := newTestAuth(t)
	ctx := context.Background()

	user, pair, err := svc.Register(ctx, "ada@example.com", "hunter2hunter2", "Ada")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := svc.Logout(ctx, user.ID); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := svc.Refresh(ctx, pair.RefreshToken); err == nil {
		t.Fatalf("expected refresh to fail after logout")
	}
	if len(tokens.byRefresh) != 0 {
		t.Fatalf("token rows = %d, want 0", len(tokens.byRefresh))
	}
}

func TestContextFromTokenRejectsGarbage(t *testing.T) {
	svc, _, _ := newTestAuth(t)
	if _, err := svc.ContextFromToken(context.Background(), "not.a.jwt"); err == nil {
		t.Fatalf("expected error for malformed token")
	}
}
