package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/parleychat/parley/internal/agents"
	"github.com/parleychat/parley/internal/database"
)

type AgentsHandler struct {
	db *database.DB
}

func NewAgentsHandler(db *database.DB) *AgentsHandler {
	return &AgentsHandler{db: db}
}

func (h *AgentsHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.db.ListAgents()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list agents")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *AgentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Personality string `json:"personality"`
		Context     string `json:"context"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "agent name required")
		return
	}

	if _, err := h.db.GetAgentByName(req.Name); err == nil {
		writeError(w, http.StatusBadRequest, "agent already exists")
		return
	}

	if req.Personality == "" {
		req.Personality = agents.DefaultPersonality
	}

	agent, err := h.db.CreateAgent(req.Name, req.Personality, req.Context, true)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create agent")
		return
	}
	writeJSON(w, http.StatusCreated, agent)
}

func (h *AgentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	agent, err := h.db.GetAgentByID(chi.URLParam(r, "id"))
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, http.StatusNotFound, "agent not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load agent")
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

// Update patches an agent profile. Name is immutable because mentions
// resolve agents by name.
func (h *AgentsHandler) Update(w http.ResponseWriter, r *http.Request) {
	agent, err := h.db.GetAgentByID(chi.URLParam(r, "id"))
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, http.StatusNotFound, "agent not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load agent")
		return
	}

	var req struct {
		Personality *string `json:"personality"`
		Context     *string `json:"context"`
		IsActive    *bool   `json:"is_active"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Personality != nil {
		agent.Personality = *req.Personality
	}
	if req.Context != nil {
		agent.Context = *req.Context
	}
	if req.IsActive != nil {
		agent.IsActive = *req.IsActive
	}

	if err := h.db.UpdateAgent(agent); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update agent")
		return
	}
	writeJSON(w, http.StatusOK, agent)
}
