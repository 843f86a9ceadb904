package controllers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"go-storefront/dto"
	"go-storefront/middleware"
	"go-storefront/models"
)

// UserService is the part of services.UserService the controller needs.
type UserService interface {
	Register(ctx context.Context, req dto.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, req dto.LoginRequest) (*dto.AuthResponse, error)
	GetUser(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// UserController handles user-related requests
type UserController struct {
	users        UserService
	tokenTTL     time.Duration
	secureCookie bool
	log          *slog.Logger
}

// NewUserController creates a UserController. tokenTTL sets the lifetime of
// the token cookie written on login.
func NewUserController(users UserService, tokenTTL time.Duration, secureCookie bool, log *slog.Logger) *UserController {
	return &UserController{users: users, tokenTTL: tokenTTL, secureCookie: secureCookie, log: log}
}

// Register handles user registration
func (uc *UserController) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, uc.log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	user, err := uc.users.Register(ctx, req)
	if err != nil {
		writeServiceError(w, r, uc.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "User registered successfully",
		"user":    user,
	})
}

// Login handles user authentication
func (uc *UserController) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, uc.log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	resp, err := uc.users.Login(ctx, req)
	if err != nil {
		writeServiceError(w, r, uc.log, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    resp.Token,
		Path:     "/",
		MaxAge:   int(uc.tokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   uc.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, resp)
}

// Logout clears the token cookie. Bearer tokens stay valid until they expire.
func (uc *UserController) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   uc.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	writeMessage(w, http.StatusOK, "Logged out")
}

// GetUser returns a user to themselves or to an admin
func (uc *UserController) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathObjectID(r, "userId")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Invalid user id")
		return
	}
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Authorization token missing")
		return
	}
	if claims.UserID != id.Hex() && claims.Role != models.RoleAdmin {
		writeMessage(w, http.StatusForbidden, "Forbidden")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	user, err := uc.users.GetUser(ctx, id)
	if err != nil {
		writeServiceError(w, r, uc.log, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
