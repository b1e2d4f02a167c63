package service

import (
	"fmt"
	"time"

	"github.com/coursecraft/backend/libs/auth/principal"
	"github.com/golang-jwt/jwt/v5"
)

// TokenValidator validates access tokens issued by the identity provider
//
// Tokens are HS256 signed and carry "user_id", "role" and "type" claims.
type TokenValidator struct {
	secret            string
	accessTokenExpiry time.Duration
}

// NewTokenValidator creates a new token validator
//
// "accessExpiry" is only used when minting tokens for operators and tests.
func NewTokenValidator(secret string, accessExpiry time.Duration) *TokenValidator {
	return &TokenValidator{
		secret:            secret,
		accessTokenExpiry: accessExpiry,
	}
}

// GenerateAccessToken mints an access token for a user
func (tv *TokenValidator) GenerateAccessToken(userID int, role principal.Role) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    string(role),
		"exp":     now.Add(tv.accessTokenExpiry).Unix(),
		"iat":     now.Unix(),
		"type":    "access",
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(tv.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return tokenString, nil
}

// ValidateAccessToken validates an access token and returns the principal it names
func (tv *TokenValidator) ValidateAccessToken(tokenString string) (principal.Principal, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(tv.secret), nil
	})
	if err != nil {
		return principal.Principal{}, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return principal.Principal{}, fmt.Errorf("invalid token claims")
	}

	if tokenType, _ := claims["type"].(string); tokenType != "access" {
		return principal.Principal{}, fmt.Errorf("token is not an access token")
	}

	// JWT claims decode numbers as float64
	userID, ok := claims["user_id"].(float64)
	if !ok || userID <= 0 {
		return principal.Principal{}, fmt.Errorf("user_id not found in token")
	}

	role := principal.Role(fmt.Sprint(claims["role"]))
	if !role.IsValid() {
		return principal.Principal{}, fmt.Errorf("role not found in token")
	}

	return principal.Principal{UserID: int(userID), Role: role}, nil
}
