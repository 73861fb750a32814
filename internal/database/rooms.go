package database

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/parleychat/parley/internal/models"
)

const roomColumns = "id, name, is_public, created_by, created_at, updated_at"

func scanRoom(row *sql.Row) (*models.Room, error) {
	var r models.Room
	err := row.Scan(&r.ID, &r.Name, &r.IsPublic, &r.CreatedBy, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (db *DB) CreateRoom(name string, isPublic bool, createdBy string) (*models.Room, error) {
	now := time.Now().UTC()
	r := &models.Room{
		ID:        uuid.New().String(),
		Name:      name,
		IsPublic:  isPublic,
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := db.Exec(
		"INSERT INTO rooms (id, name, is_public, created_by, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		r.ID, r.Name, r.IsPublic, r.CreatedBy, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (db *DB) GetRoomByID(id string) (*models.Room, error) {
	return scanRoom(db.QueryRow("SELECT "+roomColumns+" FROM rooms WHERE id = ?", id))
}

func (db *DB) GetRoomByName(name string) (*models.Room, error) {
	return scanRoom(db.QueryRow("SELECT "+roomColumns+" FROM rooms WHERE name = ?", name))
}

func (db *DB) ListRooms() ([]*models.Room, error) {
	rows, err := db.Query("SELECT " + roomColumns + " FROM rooms ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []*models.Room
	for rows.Next() {
		var r models.Room
		if err := rows.Scan(&r.ID, &r.Name, &r.IsPublic, &r.CreatedBy, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		rooms = append(rooms, &r)
	}
	return rooms, rows.Err()
}

func (db *DB) UpdateRoom(r *models.Room) error {
	r.UpdatedAt = time.Now().UTC()
	_, err := db.Exec(
		"UPDATE rooms SET name = ?, is_public = ?, updated_at = ? WHERE id = ?",
		r.Name, r.IsPublic, r.UpdatedAt, r.ID,
	)
	return err
}

// SetRoomAgent toggles an agent on or off for one room, inserting the
// association row on first use.
func (db *DB) SetRoomAgent(roomID, agentID string, isActive bool) error {
	_, err := db.Exec(
		`INSERT INTO room_agents (id, room_id, agent_id, is_active) VALUES (?, ?, ?, ?)
		 ON CONFLICT(room_id, agent_id) DO UPDATE SET is_active = excluded.is_active`,
		uuid.New().String(), roomID, agentID, isActive,
	)
	return err
}

// SetRoomCommand toggles a command on or off for one room.
func (db *DB) SetRoomCommand(roomID, command string, isActive bool) error {
	_, err := db.Exec(
		`INSERT INTO room_commands (id, room_id, command, is_active) VALUES (?, ?, ?, ?)
		 ON CONFLICT(room_id, command) DO UPDATE SET is_active = excluded.is_active`,
		uuid.New().String(), roomID, command, isActive,
	)
	return err
}
