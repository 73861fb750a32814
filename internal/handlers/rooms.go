package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	"github.com/parleychat/parley/internal/database"
	"github.com/parleychat/parley/internal/hub"
	"github.com/parleychat/parley/internal/middleware"
	"github.com/parleychat/parley/internal/models"
)

type RoomsHandler struct {
	db  *database.DB
	hub *hub.Hub
}

func NewRoomsHandler(db *database.DB, h *hub.Hub) *RoomsHandler {
	return &RoomsHandler{db: db, hub: h}
}

// roomSummary is a room plus its live occupancy.
type roomSummary struct {
	*models.Room
	MemberCount int `json:"member_count"`
}

func (h *RoomsHandler) List(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.db.ListRooms()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list rooms")
		return
	}

	summaries := lo.Map(rooms, func(room *models.Room, _ int) roomSummary {
		return roomSummary{Room: room, MemberCount: h.hub.RoomSize(room.Name)}
	})
	writeJSON(w, http.StatusOK, summaries)
}

func (h *RoomsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		IsPublic *bool  `json:"is_public"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "room name required")
		return
	}

	if _, err := h.db.GetRoomByName(req.Name); err == nil {
		writeError(w, http.StatusBadRequest, "room already exists")
		return
	}

	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}

	room, err := h.db.CreateRoom(req.Name, isPublic, middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create room")
		return
	}

	writeJSON(w, http.StatusCreated, room)
}

func (h *RoomsHandler) Get(w http.ResponseWriter, r *http.Request) {
	room, err := h.db.GetRoomByID(chi.URLParam(r, "id"))
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, http.StatusNotFound, "room not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load room")
		return
	}
	writeJSON(w, http.StatusOK, roomSummary{Room: room, MemberCount: h.hub.RoomSize(room.Name)})
}

func (h *RoomsHandler) Update(w http.ResponseWriter, r *http.Request) {
	room, err := h.db.GetRoomByID(chi.URLParam(r, "id"))
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, http.StatusNotFound, "room not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load room")
		return
	}

	if !h.canModerate(r, room) {
		writeError(w, http.StatusForbidden, "moderator access required")
		return
	}

	var req struct {
		Name     *string `json:"name"`
		IsPublic *bool   `json:"is_public"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name != nil && *req.Name != "" {
		room.Name = *req.Name
	}
	if req.IsPublic != nil {
		room.IsPublic = *req.IsPublic
	}

	if err := h.db.UpdateRoom(room); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update room")
		return
	}
	writeJSON(w, http.StatusOK, room)
}

// SetAgent toggles one agent on or off inside one room.
func (h *RoomsHandler) SetAgent(w http.ResponseWriter, r *http.Request) {
	room, err := h.db.GetRoomByID(chi.URLParam(r, "id"))
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, http.StatusNotFound, "room not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load room")
		return
	}

	if !h.canModerate(r, room) {
		writeError(w, http.StatusForbidden, "moderator access required")
		return
	}

	agentID := chi.URLParam(r, "agentID")
	if _, err := h.db.GetAgentByID(agentID); errors.Is(err, database.ErrNotFound) {
		writeError(w, http.StatusNotFound, "agent not found")
		return
	} else if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load agent")
		return
	}

	var req struct {
		IsActive bool `json:"is_active"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.db.SetRoomAgent(room.ID, agentID, req.IsActive); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update room agent")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"room_id":   room.ID,
		"agent_id":  agentID,
		"is_active": req.IsActive,
	})
}

// SetCommand toggles a chat command (iask, iexplain, ...) per room.
func (h *RoomsHandler) SetCommand(w http.ResponseWriter, r *http.Request) {
	room, err := h.db.GetRoomByID(chi.URLParam(r, "id"))
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, http.StatusNotFound, "room not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load room")
		return
	}

	if !h.canModerate(r, room) {
		writeError(w, http.StatusForbidden, "moderator access required")
		return
	}

	command := chi.URLParam(r, "command")
	if command == "" {
		writeError(w, http.StatusBadRequest, "command required")
		return
	}

	var req struct {
		IsActive bool `json:"is_active"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.db.SetRoomCommand(room.ID, command, req.IsActive); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update room command")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"room_id":   room.ID,
		"command":   command,
		"is_active": req.IsActive,
	})
}

// canModerate allows the room creator and site moderators.
func (h *RoomsHandler) canModerate(r *http.Request, room *models.Room) bool {
	userID := middleware.GetUserID(r.Context())
	if userID == room.CreatedBy {
		return true
	}
	user, err := h.db.GetUserByID(userID)
	if err != nil {
		return false
	}
	return user.IsModerator
}
