package database

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/parleychat/parley/internal/models"
)

const agentColumns = "id, name, personality, context, is_active, created_at, updated_at"

func scanAgent(row *sql.Row) (*models.Agent, error) {
	var a models.Agent
	err := row.Scan(&a.ID, &a.Name, &a.Personality, &a.Context, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (db *DB) GetAgentByName(name string) (*models.Agent, error) {
	return scanAgent(db.QueryRow("SELECT "+agentColumns+" FROM agents WHERE name = ?", name))
}

func (db *DB) GetAgentByID(id string) (*models.Agent, error) {
	return scanAgent(db.QueryRow("SELECT "+agentColumns+" FROM agents WHERE id = ?", id))
}

func (db *DB) CreateAgent(name, personality, context string, isActive bool) (*models.Agent, error) {
	now := time.Now().UTC()
	a := &models.Agent{
		ID:          uuid.New().String(),
		Name:        name,
		Personality: personality,
		Context:     context,
		IsActive:    isActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err := db.Exec(
		"INSERT INTO agents (id, name, personality, context, is_active, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		a.ID, a.Name, a.Personality, a.Context, a.IsActive, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// InsertAgentIfAbsent inserts an agent only when no row with the same
// name exists yet. It reports nothing on conflict; callers re-read to
// observe whichever profile won the race.
func (db *DB) InsertAgentIfAbsent(name, personality, context string, isActive bool) error {
	now := time.Now().UTC()
	_, err := db.Exec(
		`INSERT INTO agents (id, name, personality, context, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?) ON CONFLICT(name) DO NOTHING`,
		uuid.New().String(), name, personality, context, isActive, now, now,
	)
	return err
}

func (db *DB) ListAgents() ([]*models.Agent, error) {
	rows, err := db.Query("SELECT " + agentColumns + " FROM agents ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var agents []*models.Agent
	for rows.Next() {
		var a models.Agent
		if err := rows.Scan(&a.ID, &a.Name, &a.Personality, &a.Context, &a.IsActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		agents = append(agents, &a)
	}
	return agents, rows.Err()
}

func (db *DB) UpdateAgent(a *models.Agent) error {
	a.UpdatedAt = time.Now().UTC()
	_, err := db.Exec(
		"UPDATE agents SET personality = ?, context = ?, is_active = ?, updated_at = ? WHERE id = ?",
		a.Personality, a.Context, a.IsActive, a.UpdatedAt, a.ID,
	)
	return err
}
