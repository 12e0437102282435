package assignment

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

type Handler struct {
	svc Service
	log *slog.Logger
}

func NewHandler(svc Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}
}

// registerPayload accepts both "agent_id" and the legacy "agent" key.
type registerPayload struct {
	RegisterInput
	Agent string `json:"agent"`
}

// Register handles POST /researchers.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var payload registerPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, `{"error":"invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	input := payload.RegisterInput
	if input.AgentID == "" {
		input.AgentID = payload.Agent
	}
	res := h.svc.RegisterResearcher(r.Context(), input)
	writeResult(w, res, http.StatusCreated)
}

// CompleteDocumentation handles POST /documentation.
func (h *Handler) CompleteDocumentation(w http.ResponseWriter, r *http.Request) {
	var input DocumentationInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, `{"error":"invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	res := h.svc.CompleteDocumentation(r.Context(), input)
	writeResult(w, res, http.StatusOK)
}

// Availability handles GET /agents/{id}/availability.
func (h *Handler) Availability(w http.ResponseWriter, r *http.Request) {
	agentID := r.PathValue("id")
	avail, err := h.svc.CheckAvailability(r.Context(), agentID)
	if errors.Is(err, ErrAgentNotFound) {
		http.Error(w, `{"error":"agent not found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error("availability check failed", "agent_id", agentID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, avail)
}

// statusForKind maps coordinator outcomes onto HTTP status codes.
func statusForKind(kind Kind) int {
	switch kind {
	case KindMissingField, KindIdentityUnverified:
		return http.StatusBadRequest
	case KindAgentNotFound:
		return http.StatusNotFound
	case KindEmailExists, KindAgentAssigned, KindNoActiveAssignment:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeResult(w http.ResponseWriter, res *Result, successStatus int) {
	status := successStatus
	if !res.Success {
		status = statusForKind(res.Kind)
	}
	writeJSON(w, status, res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
