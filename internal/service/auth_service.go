package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"mini-social-server/internal/domain"
	"mini-social-server/internal/repository"
	"mini-social-server/pkg/hash"
	"mini-social-server/pkg/jwt"
	"mini-social-server/pkg/logger"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type TokenManager interface {
	IssueAccessToken(userID, username string) (string, error)
	IssueRefreshToken(userID string) (string, error)
	VerifyAccess(token string) (*jwt.Claims, error)
	VerifyRefresh(token string) (*jwt.Claims, error)
}

// unknownAccountHash is compared against when a login key matches no
// account, so an unknown user costs the same bcrypt work as a wrong password.
var unknownAccountHash = sync.OnceValue(func() string {
	h, _ := hash.Hash("mini-social-unknown-account")
	return h
})

type AuthService struct {
	userRepo  repository.UserRepository
	tokens    TokenManager
	log       logrus.FieldLogger
	dummyHash string
}

// NewAuthService computes the unknown-account hash up front so no login
// request pays for it.
func NewAuthService(userRepo repository.UserRepository, tokens TokenManager, log logrus.FieldLogger) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		tokens:    tokens,
		log:       log.WithField("component", "auth"),
		dummyHash: unknownAccountHash(),
	}
}

func (s *AuthService) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.AuthResponse, error) {
	username := repository.NormalizeUsername(req.Username)
	email := repository.NormalizeEmail(req.Email)
	if username == "" || email == "" || req.Password == "" {
		return nil, ErrMissingField
	}

	hashedPassword, err := hash.Hash(req.Password)
	if err != nil {
		if errors.Is(err, hash.ErrPasswordTooLong) {
			return nil, ErrPasswordTooLong
		}
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: hashedPassword,
		DisplayName:  strings.TrimSpace(req.DisplayName),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	access, refresh, err := s.issueTokenPair(user)
	if err != nil {
		return nil, err
	}

	// The refresh token is part of the initial document so the account and
	// its session become visible in one write.
	user.RefreshToken = &refresh

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateIdentity
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"user_id": user.ID,
		"email":   logger.RedactEmail(user.Email),
	}).Info("user registered")

	return &domain.AuthResponse{
		Token:        access,
		RefreshToken: refresh,
		User:         user.Public(),
	}, nil
}

func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.AuthResponse, error) {
	key := strings.TrimSpace(req.LoginKey())
	if key == "" || req.Password == "" {
		return nil, ErrMissingField
	}

	user, err := s.userRepo.FindByLoginKey(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			hash.Verify(req.Password, s.dummyHash)
			s.log.Debug("login rejected: unknown account")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if !s.VerifyPassword(user, req.Password) {
		s.log.WithField("user_id", user.ID).Info("login rejected: wrong password")
		return nil, ErrInvalidCredentials
	}

	access, refresh, err := s.issueTokenPair(user)
	if err != nil {
		return nil, err
	}

	// Overwriting the slot revokes the refresh token of any earlier session.
	if err := s.userRepo.SetRefreshToken(ctx, user.ID, &refresh); err != nil {
		return nil, fmt.Errorf("failed to persist refresh token: %w", err)
	}

	s.log.WithField("user_id", user.ID).Info("user logged in")

	return &domain.AuthResponse{
		Token:        access,
		RefreshToken: refresh,
		User:         user.Public(),
	}, nil
}

// VerifyPassword never errors; a mismatch or a malformed hash is false.
func (s *AuthService) VerifyPassword(user *domain.User, password string) bool {
	return hash.Verify(password, user.PasswordHash)
}

// Refresh exchanges a refresh token for a new access token. The refresh
// token itself is not rotated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenResponse, error) {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if user.RefreshToken == nil ||
		subtle.ConstantTimeCompare([]byte(*user.RefreshToken), []byte(refreshToken)) != 1 {
		s.log.WithField("user_id", user.ID).Info("refresh rejected: token superseded")
		return nil, ErrTokenNotRecognized
	}

	access, err := s.tokens.IssueAccessToken(user.ID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return &domain.TokenResponse{Token: access}, nil
}

// Logout empties the refresh slot, invalidating the current refresh token.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	if err := s.userRepo.SetRefreshToken(ctx, userID, nil); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to clear refresh token: %w", err)
	}

	s.log.WithField("user_id", userID).Info("user logged out")
	return nil
}

// Identity verifies an access token and returns its claims. It reads no
// state and writes none.
func (s *AuthService) Identity(accessToken string) (*jwt.Claims, error) {
	claims, err := s.tokens.VerifyAccess(accessToken)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *AuthService) issueTokenPair(user *domain.User) (string, string, error) {
	access, err := s.tokens.IssueAccessToken(user.ID, user.Username)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate access token: %w", err)
	}

	refresh, err := s.tokens.IssueRefreshToken(user.ID)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return access, refresh, nil
}
