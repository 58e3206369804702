package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/innovaplus/innova/internal/memory"
	"github.com/innovaplus/innova/internal/turn"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

type handler struct {
	turns Turns
	store *memory.Store
}

type healthResponse struct {
	Status         string `json:"status"`
	ContentEntries int    `json:"content_entries"`
}

type messageRequest struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Health handles GET /health
func (h *handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:         "ok",
		ContentEntries: len(h.store.ContentHistory()),
	})
}

// SendMessage handles POST /api/messages
func (h *handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	// A turn runs to completion even if the client goes away.
	reply, err := h.turns.Handle(context.WithoutCancel(r.Context()), req.Message)
	switch {
	case errors.Is(err, turn.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, "message is required")
		return
	case errors.Is(err, turn.ErrBusy):
		writeError(w, http.StatusConflict, "a message is already being processed")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

// ListContent handles GET /api/content
func (h *handler) ListContent(w http.ResponseWriter, r *http.Request) {
	entries := h.store.ContentHistory()
	if entries == nil {
		entries = []memory.ContentEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// GetContent handles GET /api/content/{id}
func (h *handler) GetContent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	entry, ok := h.store.FindEntry(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("content %q not found", id))
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// Summary handles GET /api/memory/summary
func (h *handler) Summary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Summarize(r.URL.Query().Get("q")))
}

// ClearMemory handles DELETE /api/memory
func (h *handler) ClearMemory(w http.ResponseWriter, r *http.Request) {
	if err := h.turns.ClearHistory(); err != nil {
		if errors.Is(err, turn.ErrBusy) {
			writeError(w, http.StatusConflict, "a message is being processed")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
