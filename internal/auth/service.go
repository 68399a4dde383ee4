package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Service handles token issuing and validation. User credential storage
// lives in the booking backend; this service only deals in signed claims.
type Service struct {
	secret []byte
}

// NewService creates a new auth service with the signing secret injected
// by the composition root
func NewService(secret string) *Service {
	return &Service{secret: []byte(secret)}
}

// TokenClaims represents JWT token claims
type TokenClaims struct {
	UserID    string `json:"user_id"`
	CompanyID string `json:"company_id,omitempty"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken issues a signed access token for the given identity
func (s *Service) GenerateToken(userID, companyID, name, role string, duration time.Duration) (string, error) {
	if duration == 0 {
		duration = 15 * time.Minute
	}

	claims := TokenClaims{
		UserID:    userID,
		CompanyID: companyID,
		Name:      name,
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(duration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "citaly",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateToken validates and parses a JWT token
func (s *Service) ValidateToken(tokenString string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.secret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*TokenClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}
