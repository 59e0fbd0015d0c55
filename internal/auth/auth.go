package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"kasirlokal/internal/domain"
	"kasirlokal/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactiveAccount    = errors.New("account is inactive")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// UserFinder is the slice of the user service the manager needs.
type UserFinder interface {
	GetByUsername(ctx context.Context, username string) (domain.User, error)
}

type Manager struct {
	secret   []byte
	tokenTTL time.Duration
	users    UserFinder
	now      func() time.Time
}

// Session is what a successful login yields and what the application state persists.
type Session struct {
	UserID     string      `json:"userId"`
	Username   string      `json:"username"`
	Role       domain.Role `json:"role"`
	Token      string      `json:"token"`
	ExpiresAt  time.Time   `json:"expiresAt"`
	LoggedInAt time.Time   `json:"loggedInAt"`
}

func (s Session) Actor() domain.Actor {
	return domain.Actor{UserID: s.UserID, Username: s.Username, Role: s.Role}
}

type sessionClaims struct {
	jwtlib.RegisteredClaims
	Username string      `json:"username"`
	Role     domain.Role `json:"role"`
}

func NewManager(secret string, tokenTTL time.Duration, users UserFinder) *Manager {
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}
	return &Manager{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		users:    users,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (m *Manager) Login(ctx context.Context, username string, password string) (Session, error) {
	user, err := m.users.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, store.ErrNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if !VerifyPassword(user.PasswordHash, password) {
		return Session{}, ErrInvalidCredentials
	}
	if !user.Active {
		return Session{}, ErrInactiveAccount
	}

	now := m.now()
	expiresAt := now.Add(m.tokenTTL)
	token, err := m.sign(user, now, expiresAt)
	if err != nil {
		return Session{}, err
	}

	return Session{
		UserID:     user.ID,
		Username:   user.Username,
		Role:       user.Role,
		Token:      token,
		ExpiresAt:  expiresAt,
		LoggedInAt: now,
	}, nil
}

func (m *Manager) ParseToken(tokenStr string) (domain.Actor, error) {
	claims := &sessionClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		return m.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}), jwtlib.WithTimeFunc(m.now))
	if err != nil || !token.Valid {
		return domain.Actor{}, ErrInvalidToken
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.Actor{}, ErrInvalidToken
	}
	return domain.Actor{UserID: sub, Username: claims.Username, Role: claims.Role}, nil
}

func (m *Manager) sign(user domain.User, issuedAt time.Time, expiresAt time.Time) (string, error) {
	claims := sessionClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwtlib.NewNumericDate(issuedAt),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    "kasirlokal",
		},
		Username: user.Username,
		Role:     user.Role,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Cost is the bcrypt work factor used by HashPassword.
var Cost = bcrypt.DefaultCost

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), Cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func VerifyPassword(stored string, input string) bool {
	if stored == "" || strings.TrimSpace(input) == "" || !IsPasswordHash(stored) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(input)) == nil
}

func IsPasswordHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}
