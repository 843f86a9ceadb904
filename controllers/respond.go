package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"go-storefront/services"
)

const (
	requestTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 20
)

var errInvalidBody = errors.New("invalid request body")

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errInvalidBody
	}
	return nil
}

func pathObjectID(r *http.Request, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(mux.Vars(r)[name])
	return id, err == nil
}

// writeServiceError maps service errors to status codes. Anything it does
// not recognise is logged and reported as a generic 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	var verr *services.ValidationError
	var missing *services.ProductMissingError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"message": "Validation failed",
			"errors":  verr.Fields,
		})
	case errors.Is(err, errInvalidBody):
		writeMessage(w, http.StatusBadRequest, "Invalid input")
	case errors.Is(err, services.ErrEmptyOrder):
		writeMessage(w, http.StatusBadRequest, "Order must contain at least one product")
	case errors.Is(err, services.ErrInvalidQuantity):
		writeMessage(w, http.StatusBadRequest, fmt.Sprintf("Quantity must be between 1 and %d", services.MaxLineQuantity))
	case errors.Is(err, services.ErrInvalidCredentials):
		writeMessage(w, http.StatusUnauthorized, "Invalid password")
	case errors.Is(err, services.ErrAdminSignupDisabled):
		writeMessage(w, http.StatusForbidden, "Admin accounts cannot be self-registered")
	case errors.As(err, &missing):
		writeMessage(w, http.StatusNotFound, "Product "+missing.ID+" not found")
	case errors.Is(err, services.ErrProductNotFound):
		writeMessage(w, http.StatusNotFound, "Product not found")
	case errors.Is(err, services.ErrUserNotFound):
		writeMessage(w, http.StatusNotFound, "User not found")
	case errors.Is(err, services.ErrUserExists):
		writeMessage(w, http.StatusConflict, "User already exists")
	default:
		log.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
	}
}
