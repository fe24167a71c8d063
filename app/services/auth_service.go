package services

import (
	"errors"

	"github.com/feirahub/feira/app/models"
	"github.com/feirahub/feira/app/repositories"
	"github.com/feirahub/feira/pkg/auth"
)

var (
	ErrEmailTaken         = errors.New("auth: email already registered")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrInvalidRole        = errors.New("auth: invalid role")
)

// AuthService handles registration and login.
type AuthService struct {
	users *repositories.UserRepository
}

func NewAuthService(users *repositories.UserRepository) *AuthService {
	return &AuthService{users: users}
}

// Register creates a new user with a hashed password and returns it with a
// fresh token pair.
func (s *AuthService) Register(name, email, password, role string) (models.User, auth.TokenPair, error) {
	if !models.ValidRole(role) {
		return models.User{}, auth.TokenPair{}, ErrInvalidRole
	}

	if _, err := s.users.FindByEmail(email); err == nil {
		return models.User{}, auth.TokenPair{}, ErrEmailTaken
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return models.User{}, auth.TokenPair{}, err
	}

	user := models.User{
		Name:     name,
		Email:    email,
		Password: hash,
		Role:     role,
	}
	if err := s.users.Create(&user); err != nil {
		return models.User{}, auth.TokenPair{}, err
	}

	tokens, err := auth.GenerateTokenPair(user.ID, user.Role)
	if err != nil {
		return models.User{}, auth.TokenPair{}, err
	}
	return user, tokens, nil
}

// Login verifies the credentials and returns the user with a fresh token pair.
func (s *AuthService) Login(email, password string) (models.User, auth.TokenPair, error) {
	user, err := s.users.FindByEmail(email)
	if err != nil {
		return models.User{}, auth.TokenPair{}, ErrInvalidCredentials
	}

	if !auth.CheckPassword(user.Password, password) {
		return models.User{}, auth.TokenPair{}, ErrInvalidCredentials
	}

	tokens, err := auth.GenerateTokenPair(user.ID, user.Role)
	if err != nil {
		return models.User{}, auth.TokenPair{}, err
	}
	return user, tokens, nil
}

// Me returns the profile of the authenticated user.
func (s *AuthService) Me(userID uint) (models.User, error) {
	return s.users.FindByID(userID)
}

// Refresh exchanges a valid refresh token for a new token pair.
func (s *AuthService) Refresh(refreshToken string) (auth.TokenPair, error) {
	claims, err := auth.ValidateToken(refreshToken)
	if err != nil {
		return auth.TokenPair{}, ErrInvalidCredentials
	}

	user, err := s.users.FindByID(claims.UserID)
	if err != nil {
		return auth.TokenPair{}, ErrInvalidCredentials
	}
	return auth.GenerateTokenPair(user.ID, user.Role)
}
