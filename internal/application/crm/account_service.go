package crm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/crm/backend/internal/domain/access"
	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/infrastructure/logger"
	"github.com/crm/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrAccountEmailExists = shared.NewDomainError(shared.CodeAlreadyExists, "An account with this email already exists")
	ErrAccountHasHistory  = shared.NewDomainError(shared.CodeInvalidState, "Account has closed leads and cannot be deleted")
)

// AccountService manages client accounts.
type AccountService struct {
	accounts crm.AccountRepository
	leads    crm.LeadRepository
	users    identity.UserRepository
	logger   *zap.Logger
}

func NewAccountService(
	accounts crm.AccountRepository,
	leads crm.LeadRepository,
	users identity.UserRepository,
	logger *zap.Logger,
) *AccountService {
	return &AccountService{
		accounts: accounts,
		leads:    leads,
		users:    users,
		logger:   logger,
	}
}

// List returns the accounts visible to p.
func (s *AccountService) List(ctx context.Context, p access.Principal, input AccountListInput) (*shared.Paginated[AccountDTO], error) {
	return s.list(ctx, p, access.KindAccount, input)
}

// MyClients returns the accounts p personally owns. Admins own no clients.
func (s *AccountService) MyClients(ctx context.Context, p access.Principal, input AccountListInput) (*shared.Paginated[AccountDTO], error) {
	return s.list(ctx, p, access.KindMyClients, input)
}

func (s *AccountService) list(ctx context.Context, p access.Principal, kind access.Kind, input AccountListInput) (*shared.Paginated[AccountDTO], error) {
	d := access.Authorize(p, access.Collection(kind), access.ActionReadList)
	if !d.Allowed {
		return nil, d.Err()
	}
	filter := crm.AccountFilter{
		Filter:  input.Filter,
		Scope:   d.Predicate(p),
		OwnerID: input.OwnerID,
	}
	if input.Status != "" {
		status := crm.AccountStatus(input.Status)
		if !status.IsValid() {
			return nil, shared.NewValidationError("invalid account status %q", input.Status)
		}
		filter.Status = &status
	}

	accounts, total, err := s.accounts.FindAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	page := shared.NewPaginated(mapSlice(accounts, toAccountDTO), total, max(input.Page, 1), input.Limit())
	return &page, nil
}

func (s *AccountService) Get(ctx context.Context, p access.Principal, id uuid.UUID) (*AccountDTO, error) {
	account, err := s.visible(ctx, p, id)
	if err != nil {
		return nil, err
	}
	dto := toAccountDTO(account)
	return &dto, nil
}

// Create adds an account. The owner defaults to the caller; admins and
// managers may name another owner inside their scope.
func (s *AccountService) Create(ctx context.Context, p access.Principal, input AccountInput) (*AccountDTO, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "account", "Create")
	defer span.End()

	if d := access.Authorize(p, access.Collection(access.KindAccount), access.ActionCreate); !d.Allowed {
		return nil, d.Err()
	}
	ownerID, ownerTeam, err := s.resolveOwner(ctx, p, input.OwnerID)
	if err != nil {
		return nil, err
	}
	if err := s.requireUniqueEmail(ctx, input.Email, nil); err != nil {
		return nil, err
	}

	account, err := crm.NewAccount(ownerID, ownerTeam, detailsOf(input))
	if err != nil {
		return nil, err
	}
	if input.Status != "" && input.Status != string(account.Status) {
		if err := account.SetStatus(crm.AccountStatus(input.Status)); err != nil {
			return nil, err
		}
		account.Version = 1
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	logger.Ctx(ctx, s.logger).Info("Account created",
		zap.String("account_id", account.ID.String()),
		zap.String("owner_id", ownerID.String()))
	dto := toAccountDTO(account)
	return &dto, nil
}

// Update replaces the editable fields and, when given, the status and owner.
func (s *AccountService) Update(ctx context.Context, p access.Principal, id uuid.UUID, input AccountInput) (*AccountDTO, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "account", "Update", telemetry.SpanAttrAccountID, id.String())
	defer span.End()

	account, err := s.visible(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if d := access.Authorize(p, account.Resource(), access.ActionUpdate); !d.Allowed {
		return nil, d.Err()
	}
	expected := account.Version
	if input.Version != nil && *input.Version != expected {
		return nil, shared.ErrConcurrencyConflict
	}
	if err := s.requireUniqueEmail(ctx, input.Email, &account.ID); err != nil {
		return nil, err
	}

	if err := account.Update(detailsOf(input)); err != nil {
		return nil, err
	}
	if input.Status != "" && input.Status != string(account.Status) {
		if err := account.SetStatus(crm.AccountStatus(input.Status)); err != nil {
			return nil, err
		}
	}
	if input.OwnerID != nil && *input.OwnerID != account.OwnerID {
		ownerID, ownerTeam, err := s.resolveOwner(ctx, p, input.OwnerID)
		if err != nil {
			return nil, err
		}
		if err := account.Reassign(ownerID, ownerTeam); err != nil {
			return nil, err
		}
	}
	account.Version = expected + 1

	if err := s.accounts.Update(ctx, account, expected); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	dto := toAccountDTO(account)
	return &dto, nil
}

// Delete removes an account with its notes and open leads. Accounts with a
// closed lead are kept because the lead backs a sale or a recorded loss.
func (s *AccountService) Delete(ctx context.Context, p access.Principal, id uuid.UUID) error {
	account, err := s.visible(ctx, p, id)
	if err != nil {
		return err
	}
	if d := access.Authorize(p, account.Resource(), access.ActionDelete); !d.Allowed {
		return d.Err()
	}
	closed, err := s.leads.HasClosedLeads(ctx, account.ID)
	if err != nil {
		return fmt.Errorf("check closed leads: %w", err)
	}
	if closed {
		return ErrAccountHasHistory
	}
	if err := s.accounts.Delete(ctx, account.ID); err != nil {
		return err
	}
	logger.Ctx(ctx, s.logger).Info("Account deleted", zap.String("account_id", account.ID.String()))
	return nil
}

// visible loads an account and hides it as not found when p may not read it.
func (s *AccountService) visible(ctx context.Context, p access.Principal, id uuid.UUID) (*crm.Account, error) {
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

// resolveOwner picks the owner of a new or reassigned account. The owner
// must be an active non-admin whose records p could manage.
func (s *AccountService) resolveOwner(ctx context.Context, p access.Principal, requested *uuid.UUID) (uuid.UUID, *uuid.UUID, error) {
	if requested == nil || *requested == p.UserID {
		if p.Role == access.RoleAdmin {
			return uuid.Nil, nil, shared.NewValidationError("owner_id is required")
		}
		return p.UserID, p.TeamID, nil
	}
	owner, err := s.users.FindByID(ctx, *requested)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return uuid.Nil, nil, shared.NewValidationError("owner %s does not exist", requested)
		}
		return uuid.Nil, nil, fmt.Errorf("find owner: %w", err)
	}
	if !owner.Active || owner.Role == access.RoleAdmin {
		return uuid.Nil, nil, shared.NewValidationError("owner must be an active salesperson or manager")
	}
	if d := access.Authorize(p, access.Owned(access.KindAccount, owner.ID, owner.TeamID), access.ActionCreate); !d.Allowed {
		return uuid.Nil, nil, d.Err()
	}
	return owner.ID, owner.TeamID, nil
}

func (s *AccountService) requireUniqueEmail(ctx context.Context, email string, exclude *uuid.UUID) error {
	exists, err := s.accounts.ExistsByEmail(ctx, strings.ToLower(strings.TrimSpace(email)), exclude)
	if err != nil {
		return fmt.Errorf("check account email: %w", err)
	}
	if exists {
		return ErrAccountEmailExists
	}
	return nil
}

func detailsOf(input AccountInput) crm.AccountDetails {
	d := crm.AccountDetails{
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Email:     input.Email,
		Phone:     input.Phone,
	}
	if input.Company != nil {
		d.Company = &crm.Company{Name: input.Company.Name, Industry: input.Company.Industry}
	}
	return d
}
