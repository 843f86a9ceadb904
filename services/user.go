package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"go-storefront/dto"
	"go-storefront/models"
	"go-storefront/repository"
	"go-storefront/utils"
)

const emailTimeout = 10 * time.Second

// WelcomeMailer sends the registration email.
type WelcomeMailer interface {
	SendWelcomeEmail(ctx context.Context, user *models.User) error
}

type UserService struct {
	users            repository.UserRepository
	mailer           WelcomeMailer
	validate         *validator.Validate
	jwtSecret        []byte
	jwtExpiry        time.Duration
	allowAdminSignup bool
	log              *slog.Logger
}

type UserServiceConfig struct {
	JWTSecret        string
	JWTExpiry        time.Duration
	AllowAdminSignup bool
}

func NewUserService(users repository.UserRepository, mailer WelcomeMailer, cfg UserServiceConfig, log *slog.Logger) *UserService {
	return &UserService{
		users:            users,
		mailer:           mailer,
		validate:         NewValidator(),
		jwtSecret:        []byte(cfg.JWTSecret),
		jwtExpiry:        cfg.JWTExpiry,
		allowAdminSignup: cfg.AllowAdminSignup,
		log:              log,
	}
}

// Register creates a user unless the email is taken. The welcome email is
// best-effort: a delivery failure is logged and the user is still returned.
func (s *UserService) Register(ctx context.Context, req dto.RegisterRequest) (*models.User, error) {
	req.Email = normalizeEmail(req.Email)
	if err := validateStruct(s.validate, req); err != nil {
		return nil, err
	}
	if req.Role == "" {
		req.Role = models.RoleCustomer
	}
	if req.Role == models.RoleAdmin && !s.allowAdminSignup {
		return nil, ErrAdminSignupDisabled
	}

	existing, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("check user: %w", err)
	}
	if existing != nil {
		return nil, ErrUserExists
	}

	user, err := NewUser(req)
	if err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	mailCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), emailTimeout)
	defer cancel()
	if err := s.mailer.SendWelcomeEmail(mailCtx, user); err != nil {
		s.log.Error("send welcome email", "user_id", user.ID.Hex(), "error", err)
	}

	user.Password = ""
	return user, nil
}

// NewUser builds a user document with a bcrypt-hashed password.
func NewUser(req dto.RegisterRequest) (*models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return &models.User{
		Username:  strings.TrimSpace(req.Username),
		Email:     normalizeEmail(req.Email),
		Agent:     strings.TrimSpace(req.Agent),
		Phone:     strings.TrimSpace(req.Phone),
		Address:   strings.TrimSpace(req.Address),
		Role:      req.Role,
		Password:  string(hashed),
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Login checks the password and issues a token carrying the user id and role.
func (s *UserService) Login(ctx context.Context, req dto.LoginRequest) (*dto.AuthResponse, error) {
	req.Email = normalizeEmail(req.Email)
	if err := validateStruct(s.validate, req); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := utils.GenerateJWT(user.ID.Hex(), user.Role, s.jwtSecret, s.jwtExpiry)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	user.Password = ""
	return &dto.AuthResponse{Token: token, User: user}, nil
}

// GetUser returns the user without its password hash.
func (s *UserService) GetUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	user.Password = ""
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
