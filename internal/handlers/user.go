package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/taskhub/apiserver/internal/services"
	"github.com/taskhub/apiserver/internal/storage"
)

const maxAvatarBytes = 5 << 20

// UserHandler provides HTTP handlers for profile management and the
// admin-only account listing.
type UserHandler struct {
	userService *services.UserService
	avatars     *storage.Avatars
	logger      *slog.Logger
}

// NewUserHandler constructs a handler. avatars may be nil when no object
// storage is configured; avatar uploads then return 503.
func NewUserHandler(userService *services.UserService, avatars *storage.Avatars, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		avatars:     avatars,
		logger:      logger,
	}
}

// UserRouter registers user routes on the given router.
func UserRouter(r chi.Router, handler *UserHandler, authMiddleware func(http.Handler) http.Handler) {
	r.Use(authMiddleware)
	r.With(handler.requireAdmin).Get("/", handler.ListUsers)
	r.Get("/profile", handler.GetProfile)
	r.Put("/profile", handler.UpdateProfile)
	r.Post("/profile/avatar", handler.UploadAvatar)
	r.Put("/change-password", handler.ChangePassword)
}

// requireAdmin rejects requests whose authenticated user lacks the admin
// role. Role checks are explicit; nothing else in the API consults the role.
func (h *UserHandler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		if !user.IsAdmin() {
			writeError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list users", "error", err)
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}
	writeData(w, http.StatusOK, users)
}

func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	writeData(w, http.StatusOK, user)
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var patch services.ProfilePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, err := h.userService.UpdateProfile(r.Context(), user.ID, patch)
	if err != nil {
		writeServiceError(w, err, "User not found", "Username or email already exists")
		return
	}

	writeMessage(w, http.StatusOK, "Profile updated successfully", updated)
}

func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.CurrentPassword == "" {
		writeError(w, http.StatusBadRequest, "Current password is required")
		return
	}

	err := h.userService.ChangePassword(r.Context(), user.ID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		if errors.Is(err, services.ErrWrongPassword) {
			writeError(w, http.StatusBadRequest, "Current password is incorrect")
			return
		}
		writeServiceError(w, err, "User not found", "")
		return
	}

	writeMessage(w, http.StatusOK, "Password changed successfully", nil)
}

// UploadAvatar stores a profile picture in object storage and records its URL
// on the user.
func (h *UserHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if h.avatars == nil {
		writeError(w, http.StatusServiceUnavailable, "Avatar storage is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarBytes)
	if err := r.ParseMultipartForm(maxAvatarBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Avatar must be an image up to 5 MiB")
		return
	}

	file, header, err := r.FormFile("avatar")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Avatar file is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		writeError(w, http.StatusBadRequest, "Avatar must be an image")
		return
	}

	url, err := h.avatars.Upload(r.Context(), user.ID, file, header.Size, contentType)
	if err != nil {
		h.logger.Error("failed to upload avatar", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	updated, err := h.userService.SetAvatarURL(r.Context(), user.ID, url)
	if err != nil {
		writeServiceError(w, err, "User not found", "")
		return
	}

	writeMessage(w, http.StatusOK, "Avatar updated successfully", updated)
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}
