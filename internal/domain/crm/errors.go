package crm

import "github.com/crm/backend/internal/domain/shared"

var (
	ErrUnknownStatus   = shared.NewDomainError(shared.CodeInvalidTransition, "unknown status")
	ErrLeadClosed      = shared.NewDomainError(shared.CodeInvalidTransition, "lead already closed")
	ErrSameStatus      = shared.NewDomainError(shared.CodeInvalidTransition, "lead already in requested status")
	ErrLeadNotFound    = shared.NewNotFoundError("lead")
	ErrAccountNotFound = shared.NewNotFoundError("account")
	ErrNoteNotFound    = shared.NewNotFoundError("note")
	ErrSaleNotFound    = shared.NewNotFoundError("sale")
)
