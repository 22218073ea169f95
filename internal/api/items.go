package api

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/erazemk/achados/internal/auth"
	"github.com/erazemk/achados/internal/i18n"
	"github.com/erazemk/achados/internal/imaging"
	"github.com/erazemk/achados/internal/model"
	"github.com/erazemk/achados/internal/store"
	"github.com/erazemk/achados/internal/validate"
)

// Operation labels for validation metrics.
const (
	opCreate = "create"
	opUpdate = "update"
	opPatch  = "patch"
)

// ItemsHandler handles item CRUD endpoints.
type ItemsHandler struct {
	DB *sql.DB
	// Now is the clock used for the found_lost_date rule.
	Now func() time.Time
}

func (h *ItemsHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// canModify reports whether the caller may change the item: its owner, or
// any manager or admin.
func canModify(claims *auth.Claims, item *model.Item) bool {
	return claims.UserID == item.UserID || model.RoleAtLeast(claims.Role, model.RoleManager)
}

// checkItem runs field rules and then verifies that referenced lookups
// exist. The lookup checks only run for fields whose own rules passed.
func (h *ItemsHandler) checkItem(ctx context.Context, req *itemRequest, item *model.Item, partial bool) (validate.Errors, error) {
	errs := req.clean(item, partial, h.now())

	if req.Category.Set && len(errs[fieldCategory]) == 0 {
		c, err := store.GetCategory(ctx, h.DB, item.CategoryID)
		if err != nil {
			return nil, err
		}
		if c == nil {
			errs.Add(&validate.FieldError{Field: fieldCategory, Key: i18n.KeyUnknownCategory})
		}
	}

	if req.Location.Set && len(errs[fieldLocation]) == 0 {
		l, err := store.GetLocation(ctx, h.DB, item.LocationID)
		if err != nil {
			return nil, err
		}
		if l == nil {
			errs.Add(&validate.FieldError{Field: fieldLocation, Key: i18n.KeyUnknownLocation})
		}
	}

	return errs, nil
}

// List handles GET /api/items.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, ok := itemFilter(w, r)
	if !ok {
		return
	}

	items, err := store.ListItems(r.Context(), h.DB, filter)
	if err != nil {
		slog.Error("failed to list items", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// itemFilter reads the status, q, category, location and mine query
// parameters shared by the list and export endpoints.
func itemFilter(w http.ResponseWriter, r *http.Request) (model.ItemFilter, bool) {
	q := r.URL.Query()
	filter := model.ItemFilter{
		Status: q.Get("status"),
		Query:  q.Get("q"),
	}
	if filter.Status != "" && !model.ValidItemStatus(filter.Status) {
		jsonError(w, http.StatusBadRequest, "invalid status")
		return filter, false
	}
	var err error
	if filter.CategoryID, err = queryID(q.Get("category")); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid category id")
		return filter, false
	}
	if filter.LocationID, err = queryID(q.Get("location")); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid location id")
		return filter, false
	}
	if q.Get("mine") == "1" {
		filter.UserID = GetClaims(r.Context()).UserID
	}
	return filter, true
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item := &model.Item{UserID: claims.UserID}
	errs, err := h.checkItem(r.Context(), &req, item, false)
	if err != nil {
		slog.Error("failed to validate item", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to create item")
		return
	}
	if !errs.Empty() {
		validationError(w, r, errs, opCreate)
		return
	}

	created, err := store.CreateItem(r.Context(), h.DB, item)
	if err != nil {
		slog.Error("failed to create item", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to create item")
		return
	}

	slog.Info("item reported", "user", claims.Username, "item", created.Name, "status", created.Status)
	jsonResponse(w, http.StatusCreated, created)
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, ok := h.loadItem(w, r)
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Update handles PUT /api/items/{id}.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, false)
}

// Patch handles PATCH /api/items/{id}.
func (h *ItemsHandler) Patch(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, true)
}

func (h *ItemsHandler) update(w http.ResponseWriter, r *http.Request, partial bool) {
	existing, ok := h.loadItem(w, r)
	if !ok {
		return
	}

	claims := GetClaims(r.Context())
	if !canModify(claims, existing) {
		jsonError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item := *existing
	errs, err := h.checkItem(r.Context(), &req, &item, partial)
	if err != nil {
		slog.Error("failed to validate item", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update item")
		return
	}
	if !errs.Empty() {
		op := opUpdate
		if partial {
			op = opPatch
		}
		validationError(w, r, errs, op)
		return
	}

	if err := store.UpdateItem(r.Context(), h.DB, &item); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			jsonError(w, http.StatusNotFound, "item not found")
			return
		}
		slog.Error("failed to update item", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update item")
		return
	}

	updated, err := store.GetItem(r.Context(), h.DB, item.ID)
	if err != nil {
		slog.Error("failed to reload item", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update item")
		return
	}

	slog.Info("item updated", "user", claims.Username, "item", updated.Name, "partial", partial)
	jsonResponse(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	item, ok := h.loadItem(w, r)
	if !ok {
		return
	}

	claims := GetClaims(r.Context())
	if !canModify(claims, item) {
		jsonError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	if err := store.DeleteItem(r.Context(), h.DB, item.ID); err != nil {
		slog.Error("failed to delete item", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to delete item")
		return
	}

	slog.Info("item deleted", "user", claims.Username, "item", item.Name)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

// UploadImage handles PUT /api/items/{id}/image.
func (h *ItemsHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	item, ok := h.loadItem(w, r)
	if !ok {
		return
	}

	claims := GetClaims(r.Context())
	if !canModify(claims, item) {
		jsonError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	// Leave room for multipart framing around the image itself.
	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes+(64<<10))
	if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer file.Close()

	photo, err := imaging.Process(file)
	if err != nil {
		slog.Warn("rejected item image", "item", item.ID, "error", err)
		jsonError(w, http.StatusBadRequest, "image must be JPEG, PNG, or WebP")
		return
	}

	if err := store.SetItemImage(r.Context(), h.DB, item.ID, photo.Data, photo.MIME); err != nil {
		slog.Error("failed to save image", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to save image")
		return
	}

	slog.Info("item image uploaded", "user", claims.Username, "item", item.Name,
		"width", photo.Width, "height", photo.Height, "bytes", len(photo.Data))
	jsonResponse(w, http.StatusOK, map[string]string{"message": "image uploaded"})
}

// GetImage handles GET /api/items/{id}/image.
func (h *ItemsHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	data, mime, err := store.GetItemImage(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get image", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get image")
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no image")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if _, err := w.Write(data); err != nil {
		slog.Error("failed to write image response", "error", err)
	}
}

// loadItem parses the {id} path value and fetches the live item. It writes
// the error response itself and reports false if the handler should stop.
func (h *ItemsHandler) loadItem(w http.ResponseWriter, r *http.Request) (*model.Item, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return nil, false
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get item", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get item")
		return nil, false
	}
	if item == nil || item.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return nil, false
	}
	return item, true
}

// queryID parses an optional numeric query parameter. Empty means 0.
func queryID(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}
