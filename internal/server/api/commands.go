package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ayusman/mudra/internal/store"
)

const (
	defaultCommandLimit = 50
	maxCommandLimit     = 1000
)

// CommandHandler serves the command journal.
type CommandHandler struct {
	journal *store.JournalRepository
}

// NewCommandHandler creates a new CommandHandler reading from s.
func NewCommandHandler(s *store.Store) *CommandHandler {
	return &CommandHandler{journal: s.Journal()}
}

type listCommandsResponse struct {
	Commands []*store.Entry `json:"commands"`
	Total    int            `json:"total"`
}

// ServeHTTP handles /api/commands and /api/commands/{id}.
func (h *CommandHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/commands")
	id = strings.TrimPrefix(id, "/")
	if id != "" {
		h.get(w, id)
		return
	}
	h.list(w, r)
}

// list handles GET /api/commands?limit=N and returns the newest entries first.
func (h *CommandHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := defaultCommandLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxCommandLimit)
	}

	entries, err := h.journal.Recent(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list commands")
		return
	}
	total, err := h.journal.Count()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count commands")
		return
	}

	if entries == nil {
		entries = []*store.Entry{}
	}
	writeJSON(w, http.StatusOK, listCommandsResponse{Commands: entries, Total: total})
}

func (h *CommandHandler) get(w http.ResponseWriter, id string) {
	entry, err := h.journal.GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Command not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get command")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
