package services

import (
	"errors"
	"strings"

	"acervo_backend/internal/auth"
	"acervo_backend/internal/dto"
	"acervo_backend/internal/repositories"
	"acervo_backend/pkg/apperrors"
)

// AuthService authenticates users against their local credentials and issues
// the bearer tokens the catalog and admin routes expect.
type AuthService interface {
	Login(req *dto.LoginRequest) (*dto.LoginResponse, error)
}

type authService struct {
	userRepo repositories.UserRepository
}

func NewAuthService(userRepo repositories.UserRepository) AuthService {
	return &authService{userRepo: userRepo}
}

func (s *authService) Login(req *dto.LoginRequest) (*dto.LoginResponse, error) {
	emailAddr := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.userRepo.FindByEmail(emailAddr)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		return nil, apperrors.ErrInvalidCredentials
	}

	token, err := auth.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	return &dto.LoginResponse{
		AccessToken: token,
		User: dto.AuthUser{
			ID:               user.ID,
			Name:             user.Name,
			Email:            user.Email,
			Role:             string(user.Role),
			SubscriptionTier: string(user.SubscriptionTier),
		},
	}, nil
}
