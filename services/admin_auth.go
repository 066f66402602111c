package services

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type AdminClaims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// AdminAuthenticator is the stubbed credential check for the single admin.
type AdminAuthenticator struct {
	name         string
	passwordHash []byte
	secret       []byte
	ttl          time.Duration
	now          func() time.Time
}

func NewAdminAuthenticator(name, passwordHash, secret string, ttl time.Duration) *AdminAuthenticator {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &AdminAuthenticator{
		name:         name,
		passwordHash: []byte(passwordHash),
		secret:       []byte(secret),
		ttl:          ttl,
		now:          time.Now,
	}
}

// Login checks the credentials and returns a signed token.
func (a *AdminAuthenticator) Login(name, password string) (string, error) {
	if len(a.passwordHash) == 0 || len(a.secret) == 0 || name != a.name {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	now := a.now()
	claims := &AdminClaims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "ruangcerita",
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *AdminAuthenticator) Validate(tokenString string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Name != a.name {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
