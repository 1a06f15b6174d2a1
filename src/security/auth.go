package security

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/Roifine/us-stocks-cgt-helper/src/config"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrConfigNotLoaded  = errors.New("configuration not loaded, cannot determine token expiry")
	ErrUnexpectedMethod = errors.New("unexpected signing method")
)

// AuthService issues and validates the access tokens and opaque refresh
// tokens carried by sessions. Passwords are hashed on the user model; this
// service only deals in tokens.
type AuthService struct {
	JWTSecret string
}

func NewAuthService(secret string) *AuthService {
	return &AuthService{
		JWTSecret: secret,
	}
}

// GenerateToken signs a short-lived HS256 access token for the user id.
func (a *AuthService) GenerateToken(userID string) (string, error) {
	if config.Cfg == nil {
		return "", ErrConfigNotLoaded
	}
	claims := jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(config.Cfg.AccessTokenExpiry).Unix(),
		"iat": time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(a.JWTSecret))
}

// GenerateRefreshToken returns an opaque 32-byte random token.
func (a *AuthService) GenerateRefreshToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// ValidateToken checks the signature and expiry and returns the subject.
func (a *AuthService) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrUnexpectedMethod
		}
		return []byte(a.JWTSecret), nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return "", errors.New("invalid token: 'sub' claim missing or not a string")
	}
	return sub, nil
}
