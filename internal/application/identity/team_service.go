package identity

import (
	"context"
	"fmt"

	"github.com/crm/backend/internal/domain/access"
	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrTeamNameExists = shared.NewDomainError(shared.CodeAlreadyExists, "Team name already exists")
	ErrTeamHasMembers = shared.NewDomainError(shared.CodeInvalidState, "Team still has members")
)

// TeamService manages teams. Admins have full access; managers may list.
type TeamService struct {
	teams  identity.TeamRepository
	logger *zap.Logger
}

func NewTeamService(teams identity.TeamRepository, logger *zap.Logger) *TeamService {
	return &TeamService{teams: teams, logger: logger}
}

// List returns every team ordered by name.
func (s *TeamService) List(ctx context.Context, p access.Principal) ([]TeamDTO, error) {
	if d := access.Authorize(p, access.Collection(access.KindTeam), access.ActionReadList); !d.Allowed {
		return nil, d.Err()
	}
	teams, err := s.teams.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	out := make([]TeamDTO, len(teams))
	for i, t := range teams {
		out[i] = toTeamDTO(t)
	}
	return out, nil
}

func (s *TeamService) Create(ctx context.Context, p access.Principal, input TeamInput) (*TeamDTO, error) {
	if d := access.Authorize(p, access.Collection(access.KindTeam), access.ActionCreate); !d.Allowed {
		return nil, d.Err()
	}
	team, err := identity.NewTeam(input.Name, input.Description)
	if err != nil {
		return nil, err
	}
	exists, err := s.teams.ExistsByName(ctx, team.Name)
	if err != nil {
		return nil, fmt.Errorf("check team name: %w", err)
	}
	if exists {
		return nil, ErrTeamNameExists
	}
	if err := s.teams.Create(ctx, team); err != nil {
		return nil, err
	}
	logger.Ctx(ctx, s.logger).Info("Team created", zap.String("team_id", team.ID.String()), zap.String("name", team.Name))
	dto := toTeamDTO(team)
	return &dto, nil
}

func (s *TeamService) Update(ctx context.Context, p access.Principal, id uuid.UUID, input TeamInput) (*TeamDTO, error) {
	team, err := s.load(ctx, p, id, access.ActionUpdate)
	if err != nil {
		return nil, err
	}
	expected := team.Version
	if input.Version != nil && *input.Version != expected {
		return nil, shared.ErrConcurrencyConflict
	}
	oldName := team.Name
	if err := team.Rename(input.Name, input.Description); err != nil {
		return nil, err
	}
	if team.Name != oldName {
		exists, err := s.teams.ExistsByName(ctx, team.Name)
		if err != nil {
			return nil, fmt.Errorf("check team name: %w", err)
		}
		if exists {
			return nil, ErrTeamNameExists
		}
	}
	if err := s.teams.Update(ctx, team, expected); err != nil {
		return nil, err
	}
	dto := toTeamDTO(team)
	return &dto, nil
}

// Delete removes an empty team.
func (s *TeamService) Delete(ctx context.Context, p access.Principal, id uuid.UUID) error {
	team, err := s.load(ctx, p, id, access.ActionDelete)
	if err != nil {
		return err
	}
	members, err := s.teams.CountMembers(ctx, team.ID)
	if err != nil {
		return fmt.Errorf("count team members: %w", err)
	}
	if members > 0 {
		return ErrTeamHasMembers
	}
	if err := s.teams.Delete(ctx, team.ID); err != nil {
		return err
	}
	logger.Ctx(ctx, s.logger).Info("Team deleted", zap.String("team_id", team.ID.String()))
	return nil
}

func (s *TeamService) load(ctx context.Context, p access.Principal, id uuid.UUID, action access.Action) (*identity.Team, error) {
	if d := access.Authorize(p, access.Collection(access.KindTeam), action); !d.Allowed {
		return nil, d.Err()
	}
	return s.teams.FindByID(ctx, id)
}
