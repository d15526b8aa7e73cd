// Package auth authenticates API principals and issues access tokens.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"paycore/internal/models"
	"paycore/internal/repositories"
	"paycore/internal/utils"
	"paycore/internal/validation"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("too many failed attempts, try again later")
	ErrSessionExpired     = errors.New("session expired")
)

const (
	DefaultTokenTTL          = 24 * time.Hour
	DefaultMaxFailedAttempts = 5
	DefaultLockoutDuration   = 15 * time.Minute
)

type Service interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	// Authenticate validates an access token against the current user
	// record and returns its claims.
	Authenticate(ctx context.Context, token string) (*models.UserClaims, error)
	CreateUser(ctx context.Context, email, name, password, role string) (*models.User, error)
}

type LoginResult struct {
	User      *models.User `json:"user"`
	Token     string       `json:"access_token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

type Config struct {
	JWTSecret         string
	TokenTTL          time.Duration
	MaxFailedAttempts int
	LockoutDuration   time.Duration
	Now               func() time.Time
}

type service struct {
	users  repositories.UserRepository
	config Config
	log    zerolog.Logger
}

func NewService(users repositories.UserRepository, config Config, log zerolog.Logger) Service {
	if users == nil {
		panic("users is required")
	}
	if config.TokenTTL <= 0 {
		config.TokenTTL = DefaultTokenTTL
	}
	if config.MaxFailedAttempts <= 0 {
		config.MaxFailedAttempts = DefaultMaxFailedAttempts
	}
	if config.LockoutDuration <= 0 {
		config.LockoutDuration = DefaultLockoutDuration
	}
	if config.Now == nil {
		config.Now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		users:  users,
		config: config,
		log:    log.With().Str("component", "auth").Logger(),
	}
}

func (s *service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			s.log.Info().Str("email", email).Msg("login failed: unknown user")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	now := s.config.Now()
	if user.AccountLockoutUntil != nil && now.Before(*user.AccountLockoutUntil) {
		return nil, ErrAccountLocked
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		var lockUntil *time.Time
		if user.FailedLoginAttempts+1 >= s.config.MaxFailedAttempts {
			until := now.Add(s.config.LockoutDuration)
			lockUntil = &until
		}
		if rerr := s.users.RecordFailedLogin(ctx, user.ID, lockUntil); rerr != nil {
			s.log.Error().Err(rerr).Str("user_id", user.ID).Msg("failed to record failed login")
		}
		s.log.Info().Str("user_id", user.ID).Msg("login failed: wrong password")
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := utils.GenerateToken(s.config.JWTSecret, s.config.TokenTTL, &models.UserClaims{
		UserID:       user.ID,
		Email:        user.Email,
		Role:         user.Role,
		Permissions:  models.GetDefaultPermissions(user.Role),
		TokenVersion: user.TokenVersion,
	}, now)
	if err != nil {
		return nil, err
	}

	if err := s.users.RecordLogin(ctx, user.ID, now); err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("failed to record login")
	}
	return &LoginResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

func (s *service) Authenticate(ctx context.Context, token string) (*models.UserClaims, error) {
	claims, err := utils.ParseToken(s.config.JWTSecret, token)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, utils.ErrInvalidToken
		}
		return nil, err
	}
	if user.TokenVersion != claims.TokenVersion {
		return nil, ErrSessionExpired
	}
	return claims, nil
}

func (s *service) CreateUser(ctx context.Context, email, name, password, role string) (*models.User, error) {
	v := validation.New()
	v.Email("email", email)
	v.Required("name", name)
	v.Password("password", password)
	v.Check(role == models.RoleUser || role == models.RoleAdmin, "role", "must be user or admin")
	if err := v.Err(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        strings.ToLower(strings.TrimSpace(email)),
		Name:         strings.TrimSpace(name),
		Password:     string(hash),
		Role:         role,
		Status:       "active",
		TokenVersion: 1,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
