package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/hoanghai1803/threadscout/internal/models"
	"github.com/hoanghai1803/threadscout/internal/scheduler"
	"github.com/hoanghai1803/threadscout/internal/storage"
)

// CycleTrigger starts a cycle in the background.
type CycleTrigger interface {
	Trigger() error
}

// ListCycles handles GET /api/cycles. It returns recent cycle reports,
// newest first.
func ListCycles(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := parseLimit(r, storage.DefaultListLimit, MaxListLimit)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		cycles, err := store.RecentCycles(r.Context(), limit)
		if err != nil {
			slog.Error("failed to list cycles", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to list cycles")
			return
		}

		if cycles == nil {
			cycles = []models.CycleReport{}
		}

		writeJSON(w, http.StatusOK, cycles)
	}
}

// TriggerCycle handles POST /api/cycles. It starts a cycle of every
// pipeline and answers 409 while one is already running.
func TriggerCycle(trigger CycleTrigger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := trigger.Trigger(); err != nil {
			if errors.Is(err, scheduler.ErrCycleInProgress) {
				writeError(w, http.StatusConflict, err.Error())
				return
			}
			slog.Error("failed to trigger cycle", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to trigger cycle")
			return
		}

		writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
	}
}

// Health handles GET /healthz.
func Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
