package crm

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/crm/backend/internal/domain/access"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// MaxNoteContent is the longest note body accepted, in characters.
const MaxNoteContent = 2000

// NoteType classifies the interaction a note records.
type NoteType string

const (
	NoteTypeMeeting   NoteType = "MEETING"
	NoteTypePhoneCall NoteType = "PHONE_CALL"
	NoteTypeEmail     NoteType = "EMAIL"
	NoteTypeFollowUp  NoteType = "FOLLOW_UP"
	NoteTypeGeneral   NoteType = "GENERAL"
	NoteTypeOther     NoteType = "OTHER"
)

// ParseNoteType defaults an empty value to OTHER.
func ParseNoteType(s string) (NoteType, error) {
	t := NoteType(strings.ToUpper(strings.TrimSpace(s)))
	switch t {
	case "":
		return NoteTypeOther, nil
	case NoteTypeMeeting, NoteTypePhoneCall, NoteTypeEmail, NoteTypeFollowUp, NoteTypeGeneral, NoteTypeOther:
		return t, nil
	}
	return "", shared.NewValidationError("invalid note type %q", s)
}

// Note is a free-form record attached to an account.
type Note struct {
	shared.BaseEntity
	AccountID uuid.UUID
	AuthorID  uuid.UUID
	Content   string
	Type      NoteType
	NoteDate  time.Time

	// Ownership of the parent account, resolved on load.
	OwnerID     uuid.UUID
	OwnerTeamID *uuid.UUID
}

// NewNote attaches a note written by authorID to account.
func NewNote(account *Account, authorID uuid.UUID, content string, noteType NoteType, noteDate time.Time) (*Note, error) {
	if account == nil {
		return nil, ErrAccountNotFound
	}
	n := &Note{
		BaseEntity:  shared.NewBaseEntity(),
		AccountID:   account.ID,
		AuthorID:    authorID,
		OwnerID:     account.OwnerID,
		OwnerTeamID: account.OwnerTeamID,
	}
	if err := n.apply(content, noteType, noteDate); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *Note) Resource() access.Resource {
	return access.Owned(access.KindNote, n.OwnerID, n.OwnerTeamID)
}

// Edit replaces the note's content, type and date.
func (n *Note) Edit(content string, noteType NoteType, noteDate time.Time) error {
	if err := n.apply(content, noteType, noteDate); err != nil {
		return err
	}
	n.Touch()
	return nil
}

func (n *Note) apply(content string, noteType NoteType, noteDate time.Time) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return shared.NewValidationError("note content is required")
	}
	if utf8.RuneCountInString(content) > MaxNoteContent {
		return shared.NewValidationError("note content cannot exceed %d characters", MaxNoteContent)
	}
	if noteType == "" {
		noteType = NoteTypeOther
	}
	if noteDate.IsZero() {
		noteDate = time.Now().UTC()
	}
	n.Content = content
	n.Type = noteType
	n.NoteDate = noteDate.UTC()
	return nil
}
