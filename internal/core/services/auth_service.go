package services

import (
	"context"
	"log/slog"
	"time"

	portssvc "github.com/lexledger/lexledger_backend/internal/core/ports/services"
	"github.com/lexledger/lexledger_backend/internal/dto"
	"github.com/lexledger/lexledger_backend/internal/utils"
)

// authService issues JWTs for verified users.
type authService struct {
	BaseService
	userSvc portssvc.UserSvcFacade

	jwtSecret         string
	jwtExpiryDuration time.Duration
	jwtIssuer         string
}

// NewAuthService creates a new AuthService.
func NewAuthService(userSvc portssvc.UserSvcFacade, jwtSecret string, jwtExpiryDuration time.Duration, jwtIssuer string) portssvc.AuthSvcFacade {
	return &authService{
		userSvc:           userSvc,
		jwtSecret:         jwtSecret,
		jwtExpiryDuration: jwtExpiryDuration,
		jwtIssuer:         jwtIssuer,
	}
}

// Ensure authService implements the portssvc.AuthSvcFacade interface
var _ portssvc.AuthSvcFacade = (*authService)(nil)

// Login verifies credentials and returns a signed token plus the user.
func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := s.userSvc.VerifyCredentials(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	token, err := utils.GenerateJWT(user.UserID, s.jwtSecret, s.jwtExpiryDuration, s.jwtIssuer)
	if err != nil {
		s.LogError(ctx, err, "Failed to generate JWT", slog.String("user_id", user.UserID))
		return nil, err
	}

	s.LogInfo(ctx, "User logged in", slog.String("user_id", user.UserID))
	return &dto.LoginResponse{
		Token: token,
		User:  dto.ToUserResponse(user),
	}, nil
}
