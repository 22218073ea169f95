package api

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/achados/internal/i18n"
	"github.com/erazemk/achados/internal/model"
	"github.com/erazemk/achados/internal/store"
	"github.com/erazemk/achados/internal/validate"
)

// User payload field names.
const (
	fieldUsername    = "username"
	fieldPassword    = "password"
	fieldNewPassword = "new_password"
	fieldRole        = "role"
)

// maxUsernameLength matches the login form limit.
const maxUsernameLength = 150

// Operation labels for validation metrics.
const (
	opUserCreate     = "user_create"
	opUserUpdate     = "user_update"
	opPasswordReset  = "password_reset"
	opPasswordChange = "password_change"
)

// UsersHandler handles user management endpoints (admin only).
type UsersHandler struct {
	DB *sql.DB
}

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (req *createUserRequest) clean() validate.Errors {
	errs := validate.Errors{}

	req.Username = strings.TrimSpace(req.Username)
	if err := validate.Required(fieldUsername, req.Username); err != nil {
		errs.Add(err)
	} else {
		errs.Add(validate.MaxLength(fieldUsername, req.Username, maxUsernameLength))
	}

	errs.Add(cleanPassword(fieldPassword, req.Password))
	errs.Add(cleanRole(req.Role))
	return errs
}

type updateUserRequest struct {
	Role string `json:"role"`
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

func cleanPassword(field, password string) *validate.FieldError {
	if err := validate.Required(field, password); err != nil {
		return err
	}
	return validate.Password(field, password)
}

func cleanRole(role string) *validate.FieldError {
	if err := validate.Required(fieldRole, role); err != nil {
		return err
	}
	return validate.Choice(fieldRole, role, model.ValidRole)
}

// targetName returns the username for log lines, falling back to the id.
func (h *UsersHandler) targetName(r *http.Request, id int64) string {
	if u, _ := store.GetUser(r.Context(), h.DB, id); u != nil {
		return u.Username
	}
	return fmt.Sprintf("id:%d", id)
}

// List handles GET /api/users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := store.ListUsers(r.Context(), h.DB)
	if err != nil {
		slog.Error("failed to list users", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	if users == nil {
		users = []model.User{}
	}
	jsonResponse(w, http.StatusOK, users)
}

// Create handles POST /api/users. A taken username is reported as a field
// error, like any other payload problem.
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if errs := req.clean(); !errs.Empty() {
		validationError(w, r, errs, opUserCreate)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	user, err := store.CreateUser(r.Context(), h.DB, req.Username, string(hash), req.Role)
	switch {
	case isUniqueViolation(err):
		errs := validate.Errors{}
		errs.Add(&validate.FieldError{Field: fieldUsername, Key: i18n.KeyUsernameTaken})
		validationError(w, r, errs, opUserCreate)
		return
	case err != nil:
		slog.Error("failed to create user", "username", req.Username, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	slog.Info("user created", "user", GetClaims(r.Context()).Username, "new_user", user.Username, "role", user.Role)
	jsonResponse(w, http.StatusCreated, user)
}

// Get handles GET /api/users/{id}.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "user")
	if !ok {
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get user", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get user")
		return
	}
	if user == nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}
	jsonResponse(w, http.StatusOK, user)
}

// Update handles PUT /api/users/{id}. Only the role can change, and admins
// cannot change their own.
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "user")
	if !ok {
		return
	}

	claims := GetClaims(r.Context())
	if claims.UserID == id {
		jsonError(w, http.StatusBadRequest, "cannot change your own role")
		return
	}

	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	errs := validate.Errors{}
	errs.Add(cleanRole(strings.TrimSpace(req.Role)))
	if !errs.Empty() {
		validationError(w, r, errs, opUserUpdate)
		return
	}

	if err := store.UpdateUser(r.Context(), h.DB, id, strings.TrimSpace(req.Role)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			jsonError(w, http.StatusNotFound, "user not found")
			return
		}
		slog.Error("failed to update user", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update user")
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil || user == nil {
		slog.Error("failed to reload user", "id", id, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update user")
		return
	}

	slog.Info("user role updated", "user", claims.Username, "target_user", user.Username, "new_role", user.Role)
	jsonResponse(w, http.StatusOK, user)
}

// ResetPassword handles PUT /api/users/{id}/password.
func (h *UsersHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "user")
	if !ok {
		return
	}

	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	errs := validate.Errors{}
	errs.Add(cleanPassword(fieldPassword, req.Password))
	if !errs.Empty() {
		validationError(w, r, errs, opPasswordReset)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	if err := store.UpdateUserPassword(r.Context(), h.DB, id, string(hash)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			jsonError(w, http.StatusNotFound, "user not found")
			return
		}
		slog.Error("failed to reset password", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to reset password")
		return
	}

	slog.Info("user password reset", "user", GetClaims(r.Context()).Username, "target_user", h.targetName(r, id))
	jsonResponse(w, http.StatusOK, map[string]string{"message": "password reset"})
}

// Delete handles DELETE /api/users/{id}. Users who still have live item
// reports are kept; their items must be removed or closed first.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "user")
	if !ok {
		return
	}

	claims := GetClaims(r.Context())
	if claims.UserID == id {
		jsonError(w, http.StatusBadRequest, "cannot delete yourself")
		return
	}

	name := h.targetName(r, id)
	if err := store.DeleteUser(r.Context(), h.DB, id); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			jsonError(w, http.StatusNotFound, "user not found")
		case errors.Is(err, store.ErrInUse):
			slog.Warn("refused to delete user with items", "user", claims.Username, "target_user", name)
			jsonError(w, http.StatusConflict, "user still has reported items")
		default:
			slog.Error("failed to delete user", "error", err)
			jsonError(w, http.StatusInternalServerError, "failed to delete user")
		}
		return
	}

	slog.Info("user deleted", "user", claims.Username, "deleted_user", name)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "user deleted"})
}
