package identity

import (
	"context"
	"strings"

	"github.com/crm/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Team groups salespeople under one or more managers.
type Team struct {
	shared.BaseAggregateRoot
	Name        string
	Description string
}

// NewTeam creates a team with a unique name.
func NewTeam(name, description string) (*Team, error) {
	t := &Team{BaseAggregateRoot: shared.NewBaseAggregateRoot()}
	if err := t.setName(name, description); err != nil {
		return nil, err
	}
	return t, nil
}

// Rename sets the team's name and description.
func (t *Team) Rename(name, description string) error {
	if err := t.setName(name, description); err != nil {
		return err
	}
	t.Touch()
	t.IncrementVersion()
	return nil
}

func (t *Team) setName(name, description string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewValidationError("team name is required")
	}
	if len(name) > 100 {
		return shared.NewValidationError("team name cannot exceed 100 characters")
	}
	t.Name = name
	t.Description = strings.TrimSpace(description)
	return nil
}

// TeamRepository persists teams.
type TeamRepository interface {
	Create(ctx context.Context, team *Team) error
	Update(ctx context.Context, team *Team, expectedVersion int) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*Team, error)
	FindAll(ctx context.Context) ([]*Team, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	// CountMembers returns how many users reference the team.
	CountMembers(ctx context.Context, id uuid.UUID) (int64, error)
}
