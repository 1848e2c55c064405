package api

import (
	"encoding/json"
	"net/http"

	"github.com/ayusman/mudra/internal/emitter"
	"github.com/ayusman/mudra/internal/pipeline"
)

// Status is a snapshot of the running pipeline.
type Status struct {
	Enabled bool                 `json:"enabled"`
	Source  string               `json:"source"`
	Rules   []string             `json:"rules"`
	Runner  pipeline.RunnerStats `json:"runner"`
	Muted   bool                 `json:"muted"`
	Level   *float64             `json:"level,omitempty"`
	MQTT    *emitter.Stats       `json:"mqtt,omitempty"`
}

// Controller is the part of the application the API can drive.
type Controller interface {
	Status() Status
	Enabled() bool
	SetEnabled(enabled bool) error
}

// StatusHandler serves GET /api/status.
type StatusHandler struct {
	control Controller
}

// NewStatusHandler creates a new StatusHandler.
func NewStatusHandler(c Controller) *StatusHandler {
	return &StatusHandler{control: c}
}

func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.control.Status())
}

type detectionBody struct {
	Enabled *bool `json:"enabled"`
}

type detectionResponse struct {
	Enabled bool `json:"enabled"`
}

// DetectionHandler reads and toggles gesture detection.
type DetectionHandler struct {
	control Controller
}

// NewDetectionHandler creates a new DetectionHandler.
func NewDetectionHandler(c Controller) *DetectionHandler {
	return &DetectionHandler{control: c}
}

// ServeHTTP handles GET and PUT /api/detection.
func (h *DetectionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, detectionResponse{Enabled: h.control.Enabled()})
	case http.MethodPut:
		var body detectionBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		if body.Enabled == nil {
			writeError(w, http.StatusBadRequest, "enabled is required")
			return
		}
		if err := h.control.SetEnabled(*body.Enabled); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to update detection")
			return
		}
		writeJSON(w, http.StatusOK, detectionResponse{Enabled: h.control.Enabled()})
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
