package crm

import (
	"context"
	"fmt"

	"github.com/crm/backend/internal/domain/access"
	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NoteService manages notes. Access to a note follows its parent account.
type NoteService struct {
	notes    crm.NoteRepository
	accounts crm.AccountRepository
	logger   *zap.Logger
}

func NewNoteService(notes crm.NoteRepository, accounts crm.AccountRepository, logger *zap.Logger) *NoteService {
	return &NoteService{notes: notes, accounts: accounts, logger: logger}
}

// ListByAccount returns an account's notes, newest first.
func (s *NoteService) ListByAccount(ctx context.Context, p access.Principal, accountID uuid.UUID) ([]NoteDTO, error) {
	account, err := s.visibleAccount(ctx, p, accountID)
	if err != nil {
		return nil, err
	}
	if d := access.Authorize(p, access.Owned(access.KindNote, account.OwnerID, account.OwnerTeamID), access.ActionReadList); !d.Allowed {
		return nil, crm.ErrAccountNotFound
	}
	notes, err := s.notes.FindByAccount(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return mapSlice(notes, toNoteDTO), nil
}

func (s *NoteService) Create(ctx context.Context, p access.Principal, input NoteInput) (*NoteDTO, error) {
	account, err := s.visibleAccount(ctx, p, input.AccountID)
	if err != nil {
		return nil, err
	}
	if d := access.Authorize(p, access.Owned(access.KindNote, account.OwnerID, account.OwnerTeamID), access.ActionCreate); !d.Allowed {
		return nil, d.Err()
	}
	noteType, err := crm.ParseNoteType(input.Type)
	if err != nil {
		return nil, err
	}
	note, err := crm.NewNote(account, p.UserID, input.Content, noteType, input.NoteDate)
	if err != nil {
		return nil, err
	}
	if err := s.notes.Create(ctx, note); err != nil {
		return nil, err
	}
	dto := toNoteDTO(note)
	return &dto, nil
}

func (s *NoteService) Update(ctx context.Context, p access.Principal, id uuid.UUID, input NoteInput) (*NoteDTO, error) {
	note, err := s.visible(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if d := access.Authorize(p, note.Resource(), access.ActionUpdate); !d.Allowed {
		return nil, d.Err()
	}
	noteType, err := crm.ParseNoteType(input.Type)
	if err != nil {
		return nil, err
	}
	if err := note.Edit(input.Content, noteType, input.NoteDate); err != nil {
		return nil, err
	}
	if err := s.notes.Update(ctx, note); err != nil {
		return nil, err
	}
	dto := toNoteDTO(note)
	return &dto, nil
}

func (s *NoteService) Delete(ctx context.Context, p access.Principal, id uuid.UUID) error {
	note, err := s.visible(ctx, p, id)
	if err != nil {
		return err
	}
	if d := access.Authorize(p, note.Resource(), access.ActionDelete); !d.Allowed {
		return d.Err()
	}
	return s.notes.Delete(ctx, note.ID)
}

func (s *NoteService) visible(ctx context.Context, p access.Principal, id uuid.UUID) (*crm.Note, error) {
	if !p.IsAuthenticated() {
		return nil, shared.ErrUnauthorized
	}
	note, err := s.notes.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !access.Authorize(p, note.Resource(), access.ActionReadOne).Allowed {
		return nil, crm.ErrNoteNotFound
	}
	return note, nil
}

func (s *NoteService) visibleAccount(ctx context.Context, p access.Principal, id uuid.UUID) (*crm.Account, error) {
	if !p.IsAuthenticated() {
		return nil, shared.ErrUnauthorized
	}
	account, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !access.Authorize(p, account.Resource(), access.ActionReadOne).Allowed {
		return nil, crm.ErrAccountNotFound
	}
	return account, nil
}
