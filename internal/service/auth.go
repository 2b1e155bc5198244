package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/faucetdb/codespace/internal/model"
	"github.com/faucetdb/codespace/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrValidation         = errors.New("validation failed")
)

// Token types carried in the "typ" claim.
const (
	tokenAccess  = "access"
	tokenRefresh = "refresh"
)

// Default JWT lifetimes.
const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 24 * time.Hour
)

// Principal is the identity carried by a valid access token.
type Principal struct {
	UserID string
	Email  string
}

type AuthService struct {
	store      *store.Store
	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewAuthService returns an AuthService signing with jwtSecret. Zero TTLs
// select the defaults.
func NewAuthService(store *store.Store, jwtSecret string, accessTTL, refreshTTL time.Duration) *AuthService {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	return &AuthService{
		store:      store,
		jwtSecret:  []byte(jwtSecret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Authenticate checks an email and password pair.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	u, err := s.store.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		// Burn the same time as a real comparison.
		checkPassword(string(dummyHash), password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !checkPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// Login authenticates and issues a token pair.
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.TokenPair, error) {
	u, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.IssueTokens(ctx, u)
}

// IssueTokens creates an access and a refresh token for u.
func (s *AuthService) IssueTokens(ctx context.Context, u *model.User) (*model.TokenPair, error) {
	access, err := s.IssueJWT(ctx, u.ID, u.Email, tokenAccess, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.IssueJWT(ctx, u.ID, u.Email, tokenRefresh, s.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &model.TokenPair{Access: access, Refresh: refresh, User: u}, nil
}

// Refresh exchanges a refresh token for a new access token. The user must
// still exist.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*model.TokenPair, error) {
	claims, err := s.parse(refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.Type != tokenRefresh {
		return nil, ErrInvalidCredentials
	}
	u, err := s.store.GetUser(ctx, claims.Subject)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	access, err := s.IssueJWT(ctx, u.ID, u.Email, tokenAccess, s.accessTTL)
	if err != nil {
		return nil, err
	}
	return &model.TokenPair{Access: access}, nil
}

// ValidateJWT verifies an access token and returns the associated identity.
func (s *AuthService) ValidateJWT(ctx context.Context, tokenStr string) (*Principal, error) {
	claims, err := s.parse(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.Type != tokenAccess {
		return nil, ErrInvalidCredentials
	}
	return &Principal{UserID: claims.Subject, Email: claims.Email}, nil
}

// IssueJWT creates a new signed JWT of the given type for a user.
func (s *AuthService) IssueJWT(ctx context.Context, userID, email, typ string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwtClaims{
		Email: email,
		Type:  typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    "codespace",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, nil
}

func (s *AuthService) parse(tokenStr string) (*jwtClaims, error) {
	claims := &jwtClaims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.jwtSecret, nil
	})
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, ErrTokenExpired
	}
	if err != nil || !token.Valid {
		return nil, ErrInvalidCredentials
	}
	return claims, nil
}

type jwtClaims struct {
	Email string `json:"email"`
	Type  string `json:"typ"`
	jwt.RegisteredClaims
}
