package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"gearhire-backend/internal/domain"
	"gearhire-backend/internal/logger"
	"gearhire-backend/internal/metrics"
	"gearhire-backend/internal/repository"
	"gearhire-backend/internal/security"
)

var errInvalidCredentials = &domain.AuthenticationError{Message: "invalid email or password"}

type authService struct {
	userRepo repository.UserRepository
	tokens   security.TokenManager
	now      func() time.Time
}

func NewAuthService(userRepo repository.UserRepository, tokens security.TokenManager) AuthService {
	return &authService{
		userRepo: userRepo,
		tokens:   tokens,
		now:      time.Now,
	}
}

func (s *authService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	logger.EnterMethod(ctx, "authService.Register", "email", in.Email)

	user, err := s.CreateUser(ctx, in, domain.RoleCustomer)
	if err != nil {
		logger.ExitMethodWithError(ctx, "authService.Register", err)
		return nil, err
	}

	token, exp, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "User registered", "user_id", user.ID)
	return &AuthResult{User: user, Token: token, ExpiresAt: exp}, nil
}

func (s *authService) CreateUser(ctx context.Context, in RegisterInput, role domain.Role) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	name := strings.TrimSpace(in.Name)

	v := domain.NewValidationError("invalid registration")
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		v.WithField("email", "must be a valid email address")
	}
	if name == "" {
		v.WithField("name", "is required")
	}
	if len(in.Password) < security.MinPasswordLength {
		v.WithField("password", "must be at least 8 characters")
	}
	if !role.Valid() {
		v.WithField("role", "must be one of customer, staff, admin")
	}
	if v.HasFields() {
		return nil, v
	}

	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return nil, &domain.ConflictError{Message: "email is already registered"}
	} else if !isNotFound(err) {
		return nil, err
	}

	hash, err := security.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Phone:        strings.TrimSpace(in.Phone),
		CustomerType: strings.TrimSpace(in.CustomerType),
		Role:         role,
		IsActive:     true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	logger.EnterMethod(ctx, "authService.Login", "email", email)

	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if isNotFound(err) {
			metrics.LoginAttempts.WithLabelValues("invalid").Inc()
			return nil, errInvalidCredentials
		}
		return nil, err
	}

	if !security.CheckPassword(user.PasswordHash, password) {
		metrics.LoginAttempts.WithLabelValues("invalid").Inc()
		return nil, errInvalidCredentials
	}
	if !user.IsActive {
		metrics.LoginAttempts.WithLabelValues("inactive").Inc()
		return nil, &domain.AuthenticationError{Message: "account is deactivated"}
	}

	now := s.now().UTC()
	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		logger.WarnContext(ctx, "Failed to record last login", "user_id", user.ID, "error", err)
	} else {
		user.LastLoginAt = &now
	}

	token, exp, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		return nil, err
	}
	metrics.LoginAttempts.WithLabelValues("success").Inc()
	logger.InfoContext(ctx, "User logged in", "user_id", user.ID)
	return &AuthResult{User: user, Token: token, ExpiresAt: exp}, nil
}

func (s *authService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		if errors.Is(err, security.ErrExpiredToken) {
			return nil, &domain.AuthenticationError{Message: "token has expired"}
		}
		return nil, &domain.AuthenticationError{Message: "invalid token"}
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if isNotFound(err) {
			return nil, &domain.AuthenticationError{Message: "user no longer exists"}
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, &domain.AuthenticationError{Message: "account is deactivated"}
	}
	return user, nil
}

func (s *authService) GetUser(ctx context.Context, id int32) (*domain.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

func isNotFound(err error) bool {
	var nf *domain.NotFoundError
	return errors.As(err, &nf)
}
