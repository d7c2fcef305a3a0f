package service

import (
	"context"
	"time"

	"invoicepilot/internal/logger"
	"invoicepilot/internal/model"
	"invoicepilot/internal/repository"
)

type authService struct {
	userRepo repository.UserRepository
	logger   *logger.Logger
}

func NewAuthService(userRepo repository.UserRepository, logger *logger.Logger) AuthService {
	return &authService{
		userRepo: userRepo,
		logger:   logger,
	}
}

func (s *authService) GetOrCreateUser(ctx context.Context, googleID, email, name, accessToken, refreshToken string, tokenExpiry interface{}) (*model.User, error) {
	// Try to find existing user by Google ID
	existingUser, err := s.userRepo.FindByGoogleID(ctx, googleID)
	if err != nil {
		// User doesn't exist, create new one
		newUser := model.NewUser(googleID, email, name, accessToken, refreshToken, parseExpiry(tokenExpiry))
		if err := s.userRepo.Create(ctx, newUser); err != nil {
			s.logger.Error("Failed to create user:", err)
			return nil, err
		}
		s.logger.Info("Created new user:", newUser.ID)
		return newUser, nil
	}

	// User exists, update tokens if provided. The refresh token is only
	// replaced when Google actually sent a new one, so the scheduled path
	// keeps working after logins that omit it.
	if accessToken != "" {
		existingUser.AccessToken = accessToken
	}
	if refreshToken != "" {
		existingUser.RefreshToken = refreshToken
	}
	if exp := parseExpiry(tokenExpiry); !exp.IsZero() {
		existingUser.TokenExpiry = exp
	}
	if err := s.userRepo.Update(ctx, existingUser); err != nil {
		s.logger.Error("Failed to update user:", err)
		return nil, err
	}
	s.logger.Info("Updated existing user:", existingUser.ID)

	return existingUser, nil
}

func parseExpiry(tokenExpiry interface{}) time.Time {
	switch exp := tokenExpiry.(type) {
	case time.Time:
		return exp
	case string:
		if parsed, err := time.Parse(time.RFC3339, exp); err == nil {
			return parsed
		}
	}
	return time.Time{}
}

func (s *authService) GetUser(ctx context.Context, userID string) (*model.User, error) {
	return s.userRepo.FindByID(ctx, userID)
}

func (s *authService) UpdateSheetID(ctx context.Context, userID, sheetID string) (*model.User, error) {
	if err := s.userRepo.UpdateSheetID(ctx, userID, sheetID); err != nil {
		s.logger.Error("Failed to update sheet id for user", userID, ":", err)
		return nil, err
	}
	return s.userRepo.FindByID(ctx, userID)
}
