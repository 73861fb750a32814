package database

import (
	"errors"
	"testing"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestUserRoundTrip(t *testing.T) {
	db := testDB(t)

	u, err := db.CreateUser("alice", "hash")
	if err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}

	got, err := db.GetUserByUsername("alice")
	if err != nil {
		t.Fatalf("GetUserByUsername returned error: %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("ID = %q, want %q", got.ID, u.ID)
	}
	if got.Status != "online" {
		t.Errorf("Status = %q, want online", got.Status)
	}

	if _, err := db.GetUserByUsername("nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDuplicateUsernameRejected(t *testing.T) {
	db := testDB(t)

	if _, err := db.CreateUser("alice", "hash"); err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}
	if _, err := db.CreateUser("alice", "hash2"); err == nil {
		t.Error("expected unique constraint error for duplicate username")
	}
}

func TestRoomRoundTrip(t *testing.T) {
	db := testDB(t)

	u, err := db.CreateUser("alice", "hash")
	if err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}

	r, err := db.CreateRoom("lobby", true, u.ID)
	if err != nil {
		t.Fatalf("CreateRoom returned error: %v", err)
	}

	got, err := db.GetRoomByName("lobby")
	if err != nil {
		t.Fatalf("GetRoomByName returned error: %v", err)
	}
	if got.ID != r.ID || !got.IsPublic {
		t.Errorf("room mismatch: %+v", got)
	}

	rooms, err := db.ListRooms()
	if err != nil {
		t.Fatalf("ListRooms returned error: %v", err)
	}
	if len(rooms) != 1 {
		t.Errorf("expected 1 room, got %d", len(rooms))
	}
}

func TestInsertAgentIfAbsent(t *testing.T) {
	db := testDB(t)

	if err := db.InsertAgentIfAbsent("Bot", "auto-generated", "", true); err != nil {
		t.Fatalf("InsertAgentIfAbsent returned error: %v", err)
	}
	first, err := db.GetAgentByName("Bot")
	if err != nil {
		t.Fatalf("GetAgentByName returned error: %v", err)
	}

	// Second insert for the same name must be a silent no-op, not an error.
	if err := db.InsertAgentIfAbsent("Bot", "other personality", "", true); err != nil {
		t.Fatalf("second InsertAgentIfAbsent returned error: %v", err)
	}
	second, err := db.GetAgentByName("Bot")
	if err != nil {
		t.Fatalf("GetAgentByName returned error: %v", err)
	}
	if second.ID != first.ID {
		t.Error("conflicting insert replaced the existing agent")
	}
	if second.Personality != "auto-generated" {
		t.Errorf("Personality = %q, want the original profile", second.Personality)
	}
}

func TestRoomAgentAndCommandToggles(t *testing.T) {
	db := testDB(t)

	u, _ := db.CreateUser("mod", "hash")
	r, err := db.CreateRoom("lobby", true, u.ID)
	if err != nil {
		t.Fatalf("CreateRoom returned error: %v", err)
	}
	a, err := db.CreateAgent("Helper", "friendly", "", true)
	if err != nil {
		t.Fatalf("CreateAgent returned error: %v", err)
	}

	if err := db.SetRoomAgent(r.ID, a.ID, true); err != nil {
		t.Fatalf("SetRoomAgent returned error: %v", err)
	}
	// Toggling again updates in place rather than duplicating the row.
	if err := db.SetRoomAgent(r.ID, a.ID, false); err != nil {
		t.Fatalf("SetRoomAgent toggle returned error: %v", err)
	}
	var count int
	db.QueryRow("SELECT COUNT(*) FROM room_agents WHERE room_id = ?", r.ID).Scan(&count)
	if count != 1 {
		t.Errorf("expected 1 room_agents row, got %d", count)
	}

	if err := db.SetRoomCommand(r.ID, "iask", true); err != nil {
		t.Fatalf("SetRoomCommand returned error: %v", err)
	}
	if err := db.SetRoomCommand(r.ID, "iask", false); err != nil {
		t.Fatalf("SetRoomCommand toggle returned error: %v", err)
	}
	db.QueryRow("SELECT COUNT(*) FROM room_commands WHERE room_id = ?", r.ID).Scan(&count)
	if count != 1 {
		t.Errorf("expected 1 room_commands row, got %d", count)
	}
}

func TestSettings(t *testing.T) {
	db := testDB(t)

	if got := db.GetSetting("jwt_secret"); got != "" {
		t.Errorf("expected empty setting, got %q", got)
	}
	if err := db.SetSetting("jwt_secret", "abc"); err != nil {
		t.Fatalf("SetSetting returned error: %v", err)
	}
	if err := db.SetSetting("jwt_secret", "def"); err != nil {
		t.Fatalf("SetSetting upsert returned error: %v", err)
	}
	if got := db.GetSetting("jwt_secret"); got != "def" {
		t.Errorf("GetSetting = %q, want def", got)
	}
}
