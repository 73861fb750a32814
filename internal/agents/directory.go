// Package agents resolves mentioned agent names to behavior profiles and
// drives agent invocations end to end, streaming replies back into the
// originating room.
package agents

import (
	"errors"
	"fmt"

	"github.com/parleychat/parley/internal/database"
	"github.com/parleychat/parley/internal/models"
)

// DefaultPersonality marks profiles created implicitly by a mention.
const DefaultPersonality = "auto-generated"

// Directory resolves agent names against the store, creating a default
// profile the first time a name is mentioned.
type Directory struct {
	db *database.DB
}

func NewDirectory(db *database.DB) *Directory {
	return &Directory{db: db}
}

// ResolveOrCreate returns the profile for name, creating it if absent.
// Creation is a conditional insert followed by a re-read, so two
// messages mentioning a new name at the same time converge on a single
// profile instead of racing to create duplicates.
func (d *Directory) ResolveOrCreate(name string) (*models.Agent, error) {
	agent, err := d.db.GetAgentByName(name)
	if err == nil {
		return agent, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("agent lookup %q: %w", name, err)
	}

	if err := d.db.InsertAgentIfAbsent(name, DefaultPersonality, "", true); err != nil {
		return nil, fmt.Errorf("agent create %q: %w", name, err)
	}
	agent, err = d.db.GetAgentByName(name)
	if err != nil {
		return nil, fmt.Errorf("agent re-read %q: %w", name, err)
	}
	return agent, nil
}
