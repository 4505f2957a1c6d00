package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"artlens/core/auth"
	"artlens/logger"
)

type contextKey string

const userIDKey contextKey = "userID"

var errNoUser = errors.New("user ID not found in context")

// AuthMiddleware checks for a valid bearer token and puts the user into the context.
func (h *APIHandler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		claims, err := auth.ParseToken(h.cfg.JWTSecret, strings.TrimSpace(parts[1]))
		if err != nil {
			logger.Debug("Rejected bearer token", logger.ErrorField(err))
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, claims.UserID())
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// GetUserIDFromContext extracts the user ID from the request context.
func GetUserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDKey).(string)
	if !ok || userID == "" {
		return "", errNoUser
	}
	return userID, nil
}
