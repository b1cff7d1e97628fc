package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/yungbote/fathom-backend/internal/platform/apierr"
	"github.com/yungbote/fathom-backend/internal/platform/envutil"
	"github.com/yungbote/fathom-backend/internal/platform/logger"
	"github.com/yungbote/fathom-backend/internal/repos"
	"github.com/yungbote/fathom-backend/internal/requestdata"
	"github.com/yungbote/fathom-backend/internal/types"
)

// TokenPair is what a successful register, login or refresh hands back.
// Access tokens are short-lived HS256 JWTs; refresh tokens are opaque and
// stored server-side.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type AuthService interface {
	Register(ctx context.Context, email, password, displayName string) (*types.User, *TokenPair, error)
	Login(ctx context.Context, email, password string) (*types.User, *TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, userID uuid.UUID) error
	// ContextFromToken verifies a bearer token and returns a context
	// carrying the authenticated request data.
	ContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
}

type authService struct {
	db         *gorm.DB
	log        *logger.Logger
	users      repos.UserRepo
	tokens     repos.UserTokenRepo
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewAuthService(db *gorm.DB, log *logger.Logger, users repos.UserRepo, tokens repos.UserTokenRepo) (AuthService, error) {
	secret := envutil.Str("JWT_SECRET", "")
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET not set")
	}
	return &authService{
		db:         db,
		log:        log.With("service", "AuthService"),
		users:      users,
		tokens:     tokens,
		secret:     []byte(secret),
		accessTTL:  envutil.Dur("JWT_ACCESS_TTL", 15*time.Minute),
		refreshTTL: envutil.Dur("JWT_REFRESH_TTL", 30*24*time.Hour),
	}, nil
}

func (s *authService) Register(ctx context.Context, email, password, displayName string) (*types.User, *TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, nil, apierr.BadRequest("email_invalid", fmt.Errorf("email %q is not valid", email))
	}
	if len(password) < 8 {
		return nil, nil, apierr.BadRequest("password_too_short", fmt.Errorf("password must be at least 8 characters"))
	}

	exists, err := s.users.EmailExists(ctx, nil, email)
	if err != nil {
		return nil, nil, apierr.Internal("user_lookup_failed", err)
	}
	if exists {
		return nil, nil, apierr.Conflict("email_taken", fmt.Errorf("email already registered"))
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, apierr.Internal("password_hash_failed", err)
	}
	user, err := s.users.Create(ctx, nil, &types.User{
		Email:       email,
		Password:    string(hashed),
		DisplayName: strings.TrimSpace(displayName),
	})
	if err != nil {
		return nil, nil, apierr.Internal("user_create_failed", err)
	}

	pair, err := s.issue(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	s.log.Info("user registered", "user_id", user.ID.String())
	return user, pair, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*types.User, *TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.GetByEmail(ctx, nil, email)
	if err != nil {
		return nil, nil, apierr.Internal("user_lookup_failed", err)
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, nil, apierr.Unauthorized("invalid_credentials", fmt.Errorf("email or password incorrect"))
	}
	pair, err := s.issue(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Refresh rotates the session: the presented refresh token must exist and
// be unexpired, and every prior token for the user is revoked with it.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	row, err := s.tokens.GetByRefreshToken(ctx, nil, refreshToken)
	if err != nil {
		return nil, apierr.Internal("token_lookup_failed", err)
	}
	if row == nil || time.Now().UTC().After(row.ExpiresAt) {
		return nil, apierr.Unauthorized("refresh_invalid", fmt.Errorf("refresh token unknown or expired"))
	}
	if err := s.tokens.DeleteByUserID(ctx, nil, row.UserID); err != nil {
		return nil, apierr.Internal("token_rotate_failed", err)
	}
	return s.issue(ctx, row.UserID)
}

func (s *authService) Logout(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return nil
	}
	if err := s.tokens.DeleteByUserID(ctx, nil, userID); err != nil {
		return apierr.Internal("logout_failed", err)
	}
	return nil
}

func (s *authService) ContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return ctx, apierr.Unauthorized("token_invalid", err)
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil || userID == uuid.Nil {
		return ctx, apierr.Unauthorized("token_subject_invalid", err)
	}
	return requestdata.WithRequestData(ctx, &requestdata.RequestData{
		TokenString: tokenString,
		UserID:      userID,
	}), nil
}

func (s *authService) issue(ctx context.Context, userID uuid.UUID) (*TokenPair, error) {
	now := time.Now().UTC()
	expires := now.Add(s.accessTTL)
	access := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	})
	signed, err := access.SignedString(s.secret)
	if err != nil {
		return nil, apierr.Internal("token_sign_failed", err)
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, apierr.Internal("token_generate_failed", err)
	}
	refresh := hex.EncodeToString(raw)
	if _, err := s.tokens.Create(ctx, nil, &types.UserToken{
		UserID:       userID,
		RefreshToken: refresh,
		ExpiresAt:    now.Add(s.refreshTTL),
	}); err != nil {
		return nil, apierr.Internal("token_store_failed", err)
	}

	return &TokenPair{AccessToken: signed, RefreshToken: refresh, ExpiresAt: expires}, nil
}
