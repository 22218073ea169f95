package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/erazemk/achados/internal/store"
)

type lookupRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// decodeLookup reads and trims a category or location body, writing a 400
// itself on failure.
func decodeLookup(w http.ResponseWriter, r *http.Request) (*lookupRequest, bool) {
	var req lookupRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	req.Code = strings.TrimSpace(req.Code)
	req.Name = strings.TrimSpace(req.Name)
	if req.Code == "" || req.Name == "" {
		jsonError(w, http.StatusBadRequest, "code and name required")
		return nil, false
	}
	return &req, true
}

// lookupWriteError maps store errors from create, update and delete to
// responses.
func lookupWriteError(w http.ResponseWriter, err error, what string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		jsonError(w, http.StatusNotFound, what+" not found")
	case errors.Is(err, store.ErrInUse):
		jsonError(w, http.StatusConflict, what+" is still used by items")
	case isUniqueViolation(err):
		jsonError(w, http.StatusConflict, what+" code already exists")
	default:
		slog.Error("lookup write failed", "kind", what, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to save "+what)
	}
}

// isUniqueViolation matches SQLite's unique constraint error text.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func pathID(w http.ResponseWriter, r *http.Request, what string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid "+what+" id")
		return 0, false
	}
	return id, true
}

// CategoriesHandler handles category endpoints.
type CategoriesHandler struct {
	DB *sql.DB
}

// List handles GET /api/categories.
func (h *CategoriesHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := store.ListCategories(r.Context(), h.DB)
	if err != nil {
		slog.Error("failed to list categories", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list categories")
		return
	}
	jsonResponse(w, http.StatusOK, categories)
}

// Create handles POST /api/categories.
func (h *CategoriesHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeLookup(w, r)
	if !ok {
		return
	}

	category, err := store.CreateCategory(r.Context(), h.DB, req.Code, req.Name)
	if err != nil {
		lookupWriteError(w, err, "category")
		return
	}

	slog.Info("category created", "user", GetClaims(r.Context()).Username, "code", req.Code)
	jsonResponse(w, http.StatusCreated, category)
}

// Get handles GET /api/categories/{id}.
func (h *CategoriesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "category")
	if !ok {
		return
	}

	category, err := store.GetCategory(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get category", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get category")
		return
	}
	if category == nil {
		jsonError(w, http.StatusNotFound, "category not found")
		return
	}
	jsonResponse(w, http.StatusOK, category)
}

// Update handles PUT /api/categories/{id}.
func (h *CategoriesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "category")
	if !ok {
		return
	}
	req, ok := decodeLookup(w, r)
	if !ok {
		return
	}

	if err := store.UpdateCategory(r.Context(), h.DB, id, req.Code, req.Name); err != nil {
		lookupWriteError(w, err, "category")
		return
	}

	category, _ := store.GetCategory(r.Context(), h.DB, id)
	slog.Info("category updated", "user", GetClaims(r.Context()).Username, "code", req.Code)
	jsonResponse(w, http.StatusOK, category)
}

// Delete handles DELETE /api/categories/{id}.
func (h *CategoriesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "category")
	if !ok {
		return
	}

	if err := store.DeleteCategory(r.Context(), h.DB, id); err != nil {
		lookupWriteError(w, err, "category")
		return
	}

	slog.Info("category deleted", "user", GetClaims(r.Context()).Username, "id", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "category deleted"})
}

// LocationsHandler handles location endpoints.
type LocationsHandler struct {
	DB *sql.DB
}

// List handles GET /api/locations.
func (h *LocationsHandler) List(w http.ResponseWriter, r *http.Request) {
	locations, err := store.ListLocations(r.Context(), h.DB)
	if err != nil {
		slog.Error("failed to list locations", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list locations")
		return
	}
	jsonResponse(w, http.StatusOK, locations)
}

// Create handles POST /api/locations.
func (h *LocationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeLookup(w, r)
	if !ok {
		return
	}

	location, err := store.CreateLocation(r.Context(), h.DB, req.Code, req.Name)
	if err != nil {
		lookupWriteError(w, err, "location")
		return
	}

	slog.Info("location created", "user", GetClaims(r.Context()).Username, "code", req.Code)
	jsonResponse(w, http.StatusCreated, location)
}

// Get handles GET /api/locations/{id}.
func (h *LocationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "location")
	if !ok {
		return
	}

	location, err := store.GetLocation(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get location", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get location")
		return
	}
	if location == nil {
		jsonError(w, http.StatusNotFound, "location not found")
		return
	}
	jsonResponse(w, http.StatusOK, location)
}

// Update handles PUT /api/locations/{id}.
func (h *LocationsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "location")
	if !ok {
		return
	}
	req, ok := decodeLookup(w, r)
	if !ok {
		return
	}

	if err := store.UpdateLocation(r.Context(), h.DB, id, req.Code, req.Name); err != nil {
		lookupWriteError(w, err, "location")
		return
	}

	location, _ := store.GetLocation(r.Context(), h.DB, id)
	slog.Info("location updated", "user", GetClaims(r.Context()).Username, "code", req.Code)
	jsonResponse(w, http.StatusOK, location)
}

// Delete handles DELETE /api/locations/{id}.
func (h *LocationsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "location")
	if !ok {
		return
	}

	if err := store.DeleteLocation(r.Context(), h.DB, id); err != nil {
		lookupWriteError(w, err, "location")
		return
	}

	slog.Info("location deleted", "user", GetClaims(r.Context()).Username, "id", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "location deleted"})
}
