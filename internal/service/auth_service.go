package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hostel-management-backend/internal/models"
	"hostel-management-backend/internal/repository"
	"hostel-management-backend/pkg/utils"

	"go.uber.org/zap"
)

var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidRefreshToken = errors.New("invalid or revoked refresh token")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)

type AuthService struct {
	store repository.Store
	log   *zap.Logger
}

func NewAuthService(store repository.Store, log *zap.Logger) *AuthService {
	return &AuthService{
		store: store,
		log:   log.Named("auth"),
	}
}

// LoginResponse represents the response structure for login
type LoginResponse struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"-"`
	User         UserResponse `json:"user"`
}

type UserResponse struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	FullName string `json:"fullName,omitempty"`
	Role     string `json:"role"`
}

type RegisterInput struct {
	Username string
	Password string
	Email    string
	FullName string
	Role     string
}

// Login authenticates a user and returns tokens
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	user, err := s.store.Users().FindUserByUsername(ctx, username)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !utils.ComparePassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	resp, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	writeAudit(ctx, s.store, s.log, user.ID, "user_login", fmt.Sprintf("User %s logged in", username), nil)
	return resp, nil
}

// RefreshAccessToken generates a new access token from a refresh token
func (s *AuthService) RefreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	token, err := s.store.Users().FindRefreshTokenByHash(ctx, utils.HashRefreshToken(refreshToken))
	if err != nil {
		return "", ErrInvalidRefreshToken
	}
	if time.Now().After(token.ExpiresAt) {
		return "", ErrRefreshTokenExpired
	}

	accessToken, err := utils.GenerateAccessToken(token.User.ID, token.User.Role)
	if err != nil {
		return "", fmt.Errorf("failed to generate access token: %w", err)
	}
	return accessToken, nil
}

// Logout revokes a refresh token
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if err := s.store.Users().RevokeRefreshTokenByHash(ctx, utils.HashRefreshToken(refreshToken)); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

// Register creates a new user account
func (s *AuthService) Register(ctx context.Context, in RegisterInput, performedBy uint) (*UserResponse, error) {
	if in.Role == "" {
		in.Role = models.RoleStaff
	}
	passwordHash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     in.Username,
		Email:        in.Email,
		FullName:     in.FullName,
		PasswordHash: passwordHash,
		Role:         in.Role,
	}
	if err := s.store.Users().CreateUser(ctx, user); err != nil {
		return nil, err
	}

	writeAudit(ctx, s.store, s.log, performedBy, "user_registration",
		fmt.Sprintf("User %s registered with role %s", user.Username, user.Role), nil)
	return &UserResponse{ID: user.ID, Username: user.Username, FullName: user.FullName, Role: user.Role}, nil
}

// EnsureAdmin creates the bootstrap administrator if it does not exist yet.
func (s *AuthService) EnsureAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}
	if _, err := s.store.Users().FindUserByUsername(ctx, username); err == nil {
		return nil
	} else if !errors.Is(err, models.ErrUserNotFound) {
		return err
	}

	_, err := s.Register(ctx, RegisterInput{Username: username, Password: password, Role: models.RoleAdmin}, 0)
	if err != nil && !errors.Is(err, models.ErrDuplicateUser) {
		return err
	}
	s.log.Info("Bootstrap administrator created", zap.String("username", username))
	return nil
}

func (s *AuthService) issueTokens(ctx context.Context, user *models.User) (*LoginResponse, error) {
	accessToken, err := utils.GenerateAccessToken(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := utils.GenerateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	if err := s.store.Users().CreateRefreshToken(ctx, &models.RefreshToken{
		UserID:    user.ID,
		TokenHash: utils.HashRefreshToken(refreshToken),
		ExpiresAt: time.Now().Add(utils.GetRefreshTokenExpiry()),
	}); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User: UserResponse{
			ID:       user.ID,
			Username: user.Username,
			FullName: user.FullName,
			Role:     user.Role,
		},
	}, nil
}
