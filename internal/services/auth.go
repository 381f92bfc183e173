package services

import (
	"context"
	"errors"
	"time"

	"medtransit-telemetry/internal/models"
	"medtransit-telemetry/internal/repository"
	"medtransit-telemetry/pkg/jwt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// UserStore is the persistence surface AuthService needs.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id primitive.ObjectID) error
}

var ErrInvalidCredentials = errors.New("invalid email or password")

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required,oneof=admin dispatcher viewer"`
}

type LoginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// AuthService backs the dispatcher/admin login surface.
type AuthService struct {
	users   UserStore
	jwtUtil *jwt.JWTUtil
}

func NewAuthService(users UserStore, jwtUtil *jwt.JWTUtil) *AuthService {
	return &AuthService{users: users, jwtUtil: jwtUtil}
}

// Login verifies credentials and issues a token. Unknown email and bad
// password return the same error so the endpoint does not leak which
// accounts exist.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.jwtUtil.GenerateToken(user.ID.Hex(), user.Email, user.Role)
	if err != nil {
		return nil, err
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID); err == nil {
		now := time.Now()
		user.LastLogin = &now
	}

	user.Password = ""
	return &LoginResponse{Token: token, User: user}, nil
}

// Register creates an account with a bcrypt-hashed password.
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*models.User, error) {
	if existing, err := s.users.FindByEmail(ctx, req.Email); err == nil && existing != nil {
		return nil, errors.New("email already registered")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user, err := s.users.Create(ctx, &models.User{
		Email:    req.Email,
		Name:     req.Name,
		Password: string(hashed),
		Role:     req.Role,
	})
	if err != nil {
		return nil, err
	}

	user.Password = ""
	return user, nil
}
