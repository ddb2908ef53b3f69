package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hoanghai1803/threadscout/internal/models"
	"github.com/hoanghai1803/threadscout/internal/storage"
)

// MaxListLimit caps the limit query parameter on list endpoints.
const MaxListLimit = 500

// ListItems handles GET /api/items. It returns stored items newest first,
// optionally filtered by the "status" and "pipeline" query parameters.
func ListItems(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		q := r.URL.Query()

		limit, err := parseLimit(r, storage.DefaultListLimit, MaxListLimit)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		status := models.ItemStatus(q.Get("status"))
		if status != "" && !status.Valid() {
			writeError(w, http.StatusBadRequest, "invalid status filter")
			return
		}

		items, err := store.ListItems(ctx, storage.ItemFilter{
			Status:   status,
			Pipeline: q.Get("pipeline"),
			Limit:    limit,
		})
		if err != nil {
			slog.Error("failed to list items", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to list items")
			return
		}

		if items == nil {
			items = []models.StoredItem{}
		}

		writeJSON(w, http.StatusOK, items)
	}
}

// GetItem handles GET /api/items/{itemID}.
func GetItem(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := urlParam(r, "itemID")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		item, err := store.GetItem(r.Context(), itemID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				writeError(w, http.StatusNotFound, "Item not found")
				return
			}
			slog.Error("failed to get item", "item_id", itemID, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to get item")
			return
		}

		writeJSON(w, http.StatusOK, item)
	}
}

// UpdateItemStatus handles PATCH /api/items/{itemID}/status. It moves an
// item through the review workflow.
func UpdateItemStatus(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		itemID, err := urlParam(r, "itemID")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		var body struct {
			Status string `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}
		if body.Status == "" {
			writeError(w, http.StatusBadRequest, "status is required")
			return
		}

		if err := store.UpdateItemStatus(ctx, itemID, models.ItemStatus(body.Status)); err != nil {
			switch {
			case errors.Is(err, storage.ErrInvalidStatus):
				writeError(w, http.StatusBadRequest, err.Error())
			case errors.Is(err, storage.ErrNotFound):
				writeError(w, http.StatusNotFound, "Item not found")
			default:
				slog.Error("failed to update item status", "item_id", itemID, "error", err)
				writeError(w, http.StatusInternalServerError, "Failed to update status")
			}
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": body.Status})
	}
}
