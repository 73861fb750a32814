package models

import "time"

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	IsModerator  bool      `json:"is_moderator"`
	Avatar       string    `json:"avatar,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Room struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	IsPublic  bool      `json:"is_public"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Agent is a persisted behavior profile keyed by name. Profiles are
// created lazily on first mention and never deleted by the relay.
type Agent struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Personality string    `json:"personality"`
	Context     string    `json:"context"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RoomAgent toggles an agent on or off inside one room.
type RoomAgent struct {
	ID       string `json:"id"`
	RoomID   string `json:"room_id"`
	AgentID  string `json:"agent_id"`
	IsActive bool   `json:"is_active"`
}

// RoomCommand toggles a slash-style command (iask, iexplain, ...) per room.
type RoomCommand struct {
	ID       string `json:"id"`
	RoomID   string `json:"room_id"`
	Command  string `json:"command"`
	IsActive bool   `json:"is_active"`
}
