package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"slotbooking/backend/internal/apperr"
	"slotbooking/backend/internal/authz"
	"slotbooking/backend/internal/models"
)

const msgBadCredentials = "Incorrect email/username or password"

// TokenIssuer signs access tokens for authenticated users.
type TokenIssuer interface {
	IssueToken(user models.User) (string, error)
	TTL() time.Duration
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	AccessToken string
	TokenType   string
	ExpiresIn   time.Duration
	User        models.User
}

type AuthService struct {
	db     *gorm.DB
	hasher PasswordHasher
	tokens TokenIssuer
}

func NewAuthService(db *gorm.DB, hasher PasswordHasher, tokens TokenIssuer) *AuthService {
	return &AuthService{db: db, hasher: hasher, tokens: tokens}
}

// Login checks a password against the user identified by email or username.
func (s *AuthService) Login(ctx context.Context, login, password string) (*LoginResult, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, apperr.Unauthorized(msgBadCredentials)
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ? OR username = ?", login, login).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Unauthorized(msgBadCredentials)
	}
	if err != nil {
		return nil, err
	}
	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return nil, apperr.Unauthorized(msgBadCredentials)
	}

	token, err := s.tokens.IssueToken(user)
	if err != nil {
		return nil, err
	}
	return &LoginResult{AccessToken: token, TokenType: "bearer", ExpiresIn: s.tokens.TTL(), User: user}, nil
}

// Actor resolves the current role of userID. Roles are read from the store so
// a demotion takes effect before the token expires.
func (s *AuthService) Actor(ctx context.Context, userID uint) (authz.Actor, error) {
	var user models.User
	err := s.db.WithContext(ctx).Select("id", "role").First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return authz.Actor{}, apperr.Unauthorized("Could not validate credentials")
	}
	if err != nil {
		return authz.Actor{}, err
	}
	return authz.Actor{ID: user.ID, Role: user.Role}, nil
}

// Me returns the profile of the authenticated user.
func (s *AuthService) Me(ctx context.Context, actor authz.Actor) (*UserWithBookings, error) {
	return loadUserWithBookings(s.db.WithContext(ctx), actor.ID)
}
