package database

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/parleychat/parley/internal/models"
)

var ErrNotFound = errors.New("not found")

const userColumns = "id, username, password_hash, is_moderator, avatar, status, created_at, updated_at"

func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.IsModerator, &u.Avatar, &u.Status, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (db *DB) CreateUser(username, passwordHash string) (*models.User, error) {
	now := time.Now().UTC()
	u := &models.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: passwordHash,
		Status:       "online",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	_, err := db.Exec(
		"INSERT INTO users (id, username, password_hash, is_moderator, avatar, status, created_at, updated_at) VALUES (?, ?, ?, 0, '', ?, ?, ?)",
		u.ID, u.Username, u.PasswordHash, u.Status, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (db *DB) GetUserByUsername(username string) (*models.User, error) {
	return scanUser(db.QueryRow("SELECT "+userColumns+" FROM users WHERE username = ?", username))
}

func (db *DB) GetUserByID(id string) (*models.User, error) {
	return scanUser(db.QueryRow("SELECT "+userColumns+" FROM users WHERE id = ?", id))
}

func (db *DB) UpdateUser(u *models.User) error {
	u.UpdatedAt = time.Now().UTC()
	_, err := db.Exec(
		"UPDATE users SET avatar = ?, status = ?, is_moderator = ?, updated_at = ? WHERE id = ?",
		u.Avatar, u.Status, u.IsModerator, u.UpdatedAt, u.ID,
	)
	return err
}
