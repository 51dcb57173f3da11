package services

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/oliveedge/oliveedge/app/models"
	"github.com/oliveedge/oliveedge/app/repositories"
	"github.com/oliveedge/oliveedge/pkg/apperr"
	"github.com/oliveedge/oliveedge/pkg/auth"
)

// RegisterInput is the payload for account creation.
type RegisterInput struct {
	Name     string `json:"name"     validate:"required,min=2,max=100"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginInput is the payload for authentication.
type LoginInput struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResult bundles a user with their issued tokens.
type AuthResult struct {
	User         *models.User `json:"user"`
	Token        string       `json:"token"`
	RefreshToken string       `json:"refreshToken"`
}

type AuthService struct {
	users *repositories.UserRepository
}

func NewAuthService() *AuthService {
	return &AuthService{users: repositories.NewUserRepository()}
}

// Register creates an account and signs the user in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:     in.Name,
		Email:    in.Email,
		Password: hash,
		Role:     "user",
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	return s.issueTokens(user)
}

// Login authenticates by email and password.
// NotFound collapses into the same Unauthorized as a wrong password so the
// endpoint cannot be used to probe for registered emails.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.Unauthorized("invalid credentials")
		}
		return nil, err
	}
	if !auth.CheckPassword(user.Password, in.Password) {
		return nil, apperr.Unauthorized("invalid credentials")
	}

	return s.issueTokens(user)
}

// Profile returns the account behind an authenticated request.
func (s *AuthService) Profile(ctx context.Context, userID string) (*models.User, error) {
	id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, apperr.Unauthorized("invalid token subject")
	}
	return s.users.FindByID(ctx, id)
}

func (s *AuthService) issueTokens(user *models.User) (*AuthResult, error) {
	token, err := auth.GenerateToken(user.ID.Hex(), user.Role)
	if err != nil {
		return nil, err
	}
	refresh, err := auth.GenerateRefreshToken(user.ID.Hex(), user.Role)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token, RefreshToken: refresh}, nil
}
