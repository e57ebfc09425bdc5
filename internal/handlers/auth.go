package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/taskhub/apiserver/config"
	"github.com/taskhub/apiserver/internal/services"
	"github.com/taskhub/apiserver/internal/store"
	"github.com/taskhub/apiserver/internal/validation"
	"github.com/taskhub/apiserver/types"
)

// AuthHandler provides JWT authentication endpoints.
type AuthHandler struct {
	userService *services.UserService
	secret      []byte
	tokenTTL    time.Duration
	logger      *slog.Logger
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(userService *services.UserService, cfg config.JWTConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		secret:      []byte(cfg.Secret),
		tokenTTL:    cfg.TokenTTL,
		logger:      logger,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, handler *AuthHandler) {
	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.With(handler.RequireAuth).Post("/logout", handler.Logout)
	r.With(handler.RequireAuth).Get("/me", handler.Me)
}

// RequireAuth verifies the bearer token, resolves it to an active user and
// injects the user into the request context. Any failure is terminal for the
// request: missing/malformed/expired tokens and missing or deactivated users
// all yield 401.
func (h *AuthHandler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, err := bearerToken(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		userID, err := parseTokenSubject(tokenString, h.secret)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		user, err := h.userService.GetByID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			writeError(w, http.StatusInternalServerError, "Server error")
			return
		}
		if !user.IsActive {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), contextUserKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Register creates a new account and returns the user plus a JWT.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input services.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.userService.Register(r.Context(), input)
	if err != nil {
		writeServiceError(w, err, "User not found", "Username or email already exists")
		return
	}

	token, err := issueToken(user.ID, h.secret, h.tokenTTL)
	if err != nil {
		h.logger.Error("failed to issue token", "error", err)
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeMessage(w, http.StatusCreated, "Registration successful", AuthData{User: user, Token: token})
}

// Login verifies credentials and returns the user plus a JWT.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var errs validation.Errors
	validation.Email(&errs, strings.ToLower(strings.TrimSpace(req.Email)))
	if req.Password == "" {
		errs = append(errs, validation.FieldError{Field: "password", Message: "Password is required"})
	}
	if len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}

	user, err := h.userService.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		h.logger.Error("login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	token, err := issueToken(user.ID, h.secret, h.tokenTTL)
	if err != nil {
		h.logger.Error("failed to issue token", "error", err)
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeMessage(w, http.StatusOK, "Login successful", AuthData{User: user, Token: token})
}

// Logout acknowledges the logout. Tokens are stateless; the client discards
// its copy.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusOK, "Logged out successfully", nil)
}

// Me returns the current authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	writeData(w, http.StatusOK, user)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthData is the payload of register/login responses.
type AuthData struct {
	User  types.User `json:"user"`
	Token string     `json:"token"`
}

func issueToken(userID int, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.Itoa(userID),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func parseTokenSubject(tokenString string, secret []byte) (int, error) {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return secret, nil
	})
	if err != nil {
		return 0, err
	}
	if !token.Valid {
		return 0, errors.New("invalid token")
	}
	userID, err := strconv.Atoi(strings.TrimSpace(claims.Subject))
	if err != nil || userID < 1 {
		return 0, errors.New("invalid subject")
	}
	return userID, nil
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
