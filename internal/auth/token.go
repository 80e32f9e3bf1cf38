package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TokenType separates short-lived access tokens from refresh tokens.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// TokenManager handles issuing and validating JWT tokens.
type TokenManager struct {
	secret     []byte
	ttl        time.Duration
	refreshTTL time.Duration
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, ttl, refreshTTL time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if refreshTTL <= 0 {
		refreshTTL = 24 * time.Hour
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, refreshTTL: refreshTTL}
}

// Claims describes JWT payload.
type Claims struct {
	Type TokenType   `json:"typ"`
	Role domain.Role `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// IssuedToken is a signed token with its identifiers.
type IssuedToken struct {
	Token     string
	ID        string
	ExpiresAt time.Time
}

// RefreshTTL returns the configured refresh lifetime.
func (tm *TokenManager) RefreshTTL() time.Duration {
	return tm.refreshTTL
}

// GenerateAccessToken signs an access token for the user.
func (tm *TokenManager) GenerateAccessToken(userID string, role domain.Role) (IssuedToken, error) {
	return tm.generate(userID, role, TokenTypeAccess, tm.ttl)
}

// GenerateRefreshToken signs a refresh token. Its ID is the session key.
func (tm *TokenManager) GenerateRefreshToken(userID string) (IssuedToken, error) {
	return tm.generate(userID, "", TokenTypeRefresh, tm.refreshTTL)
}

func (tm *TokenManager) generate(userID string, role domain.Role, typ TokenType, ttl time.Duration) (IssuedToken, error) {
	now := time.Now()
	expiresAt := now.Add(ttl)
	jti := uuid.NewString()
	claims := &Claims{
		Type: typ,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return IssuedToken{}, err
	}
	return IssuedToken{Token: tokenString, ID: jti, ExpiresAt: expiresAt}, nil
}

// ParseToken validates signature and expiry and checks the token type.
func (tm *TokenManager) ParseToken(tokenStr string, want TokenType) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.Type != want {
		return nil, errors.New("unexpected token type")
	}
	return claims, nil
}
