package api

import (
	"bytes"
	"log/slog"
	"net/http"
	"time"

	"github.com/erazemk/achados/internal/export"
	"github.com/erazemk/achados/internal/i18n"
	"github.com/erazemk/achados/internal/store"
)

// Export handles GET /api/items/export. It accepts the same filters as List
// and returns an XLSX workbook in the request's language.
func (h *ItemsHandler) Export(w http.ResponseWriter, r *http.Request) {
	filter, ok := itemFilter(w, r)
	if !ok {
		return
	}

	items, err := store.ListItems(r.Context(), h.DB, filter)
	if err != nil {
		slog.Error("failed to list items for export", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to export items")
		return
	}

	loc := time.UTC
	if name := r.URL.Query().Get("tz"); name != "" {
		if loc, err = time.LoadLocation(name); err != nil {
			jsonError(w, http.StatusBadRequest, "invalid time zone")
			return
		}
	}

	tag := i18n.Resolve(r)
	var buf bytes.Buffer
	if err := export.Items(&buf, items, tag, loc); err != nil {
		slog.Error("failed to render export", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to export items")
		return
	}

	filename := "itens-" + h.now().UTC().Format("20060102") + ".xlsx"
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Language", tag.String())
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("failed to write export response", "error", err)
	}

	slog.Info("items exported", "user", GetClaims(r.Context()).Username, "count", len(items))
}
