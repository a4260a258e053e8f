package crm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/crm/backend/internal/domain/access"
	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/infrastructure/logger"
	"github.com/crm/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LeadService manages leads and drives the lead status machine.
type LeadService struct {
	leads    crm.LeadRepository
	accounts crm.AccountRepository
	recorder Recorder
	logger   *zap.Logger
	now      func() time.Time
}

func NewLeadService(
	leads crm.LeadRepository,
	accounts crm.AccountRepository,
	recorder Recorder,
	logger *zap.Logger,
) *LeadService {
	if recorder == nil {
		recorder = Recorders(nil)
	}
	return &LeadService{
		leads:    leads,
		accounts: accounts,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
	}
}

// List returns the leads visible to p.
func (s *LeadService) List(ctx context.Context, p access.Principal, input LeadListInput) (*shared.Paginated[LeadDTO], error) {
	d := access.Authorize(p, access.Collection(access.KindLead), access.ActionReadList)
	if !d.Allowed {
		return nil, d.Err()
	}
	filter := crm.LeadFilter{
		Filter:    input.Filter,
		Scope:     d.Predicate(p),
		AccountID: input.AccountID,
	}
	if input.Status != "" {
		status, err := crm.ParseLeadStatus(input.Status)
		if err != nil {
			return nil, shared.NewValidationError("invalid lead status %q", input.Status)
		}
		filter.Status = &status
	}

	leads, total, err := s.leads.FindAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	page := shared.NewPaginated(mapSlice(leads, toLeadDTO), total, max(input.Page, 1), input.Limit())
	return &page, nil
}

// ListByAccount returns the leads of one account. An account p cannot see
// is reported as not found.
func (s *LeadService) ListByAccount(ctx context.Context, p access.Principal, accountID uuid.UUID, input LeadListInput) (*shared.Paginated[LeadDTO], error) {
	if _, err := s.visibleAccount(ctx, p, accountID); err != nil {
		return nil, err
	}
	input.AccountID = &accountID
	return s.List(ctx, p, input)
}

func (s *LeadService) Get(ctx context.Context, p access.Principal, id uuid.UUID) (*LeadDTO, error) {
	lead, err := s.visible(ctx, p, id)
	if err != nil {
		return nil, err
	}
	dto := toLeadDTO(lead)
	return &dto, nil
}

// Create opens a NEW lead on an account p may manage.
func (s *LeadService) Create(ctx context.Context, p access.Principal, input CreateLeadInput) (*LeadDTO, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "lead", "Create", telemetry.SpanAttrAccountID, input.AccountID.String())
	defer span.End()

	account, err := s.visibleAccount(ctx, p, input.AccountID)
	if err != nil {
		return nil, err
	}
	if d := access.Authorize(p, access.Owned(access.KindLead, account.OwnerID, account.OwnerTeamID), access.ActionCreate); !d.Allowed {
		return nil, d.Err()
	}
	lead, err := crm.NewLead(account, input.Description, input.EstimatedValue, input.Probability)
	if err != nil {
		return nil, err
	}
	if err := s.leads.Create(ctx, lead); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	logger.Ctx(ctx, s.logger).Info("Lead created",
		zap.String("lead_id", lead.ID.String()),
		zap.String("account_id", account.ID.String()))
	dto := toLeadDTO(lead)
	return &dto, nil
}

// Update edits an open lead's description, value and probability.
func (s *LeadService) Update(ctx context.Context, p access.Principal, id uuid.UUID, input UpdateLeadInput) (*LeadDTO, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "lead", "Update", telemetry.SpanAttrLeadID, id.String())
	defer span.End()

	lead, err := s.visible(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if d := access.Authorize(p, lead.Resource(), access.ActionUpdate); !d.Allowed {
		return nil, d.Err()
	}
	expected := lead.Version
	if input.Version != nil && *input.Version != expected {
		return nil, shared.ErrConcurrencyConflict
	}
	if err := lead.UpdateDetails(input.Description, input.EstimatedValue, input.Probability); err != nil {
		return nil, err
	}
	if err := s.leads.Update(ctx, lead, expected); err != nil {
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			s.recorder.ConflictDetected(ctx, "lead.update")
		}
		telemetry.RecordError(span, err)
		return nil, err
	}
	dto := toLeadDTO(lead)
	return &dto, nil
}

// ChangeStatus moves a lead to status. A lead p cannot see is not found; a
// visible lead p may not move is forbidden. Entering CLOSED_WON records a
// sale in the same transaction and the returned DTO carries its ID.
func (s *LeadService) ChangeStatus(ctx context.Context, p access.Principal, id uuid.UUID, status string) (*LeadDTO, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "lead", "ChangeStatus",
		telemetry.SpanAttrLeadID, id.String(),
		telemetry.SpanAttrToStatus, status,
	)
	defer span.End()

	lead, err := s.visible(ctx, p, id)
	if err != nil {
		return nil, err
	}
	expected := lead.Version
	from := lead.Status

	sale, err := lead.Transition(p, status, s.now())
	if err != nil {
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrFromStatus, from.String())

	if err := s.leads.ApplyTransition(ctx, lead, expected, sale); err != nil {
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			s.recorder.ConflictDetected(ctx, "lead.transition")
			logger.Ctx(ctx, s.logger).Warn("Lead transition lost a concurrent update",
				zap.String("lead_id", lead.ID.String()),
				zap.Int("expected_version", expected))
		}
		telemetry.RecordError(span, err)
		return nil, err
	}
	lead.ClearDomainEvents()
	s.recorder.LeadTransitioned(ctx, from.String(), lead.Status.String())

	log := logger.Ctx(ctx, s.logger)
	dto := toLeadDTO(lead)
	if sale != nil {
		s.recorder.DealWon(ctx, sale.Amount)
		telemetry.AddEvent(span, "sale.recorded",
			telemetry.SpanAttrSaleID, sale.ID.String(),
			telemetry.SpanAttrAmount, sale.Amount.String())
		log.Info("Deal won",
			zap.String("lead_id", lead.ID.String()),
			zap.String("sale_id", sale.ID.String()),
			zap.String("amount", sale.Amount.String()))
		dto.SaleID = &sale.ID
	} else {
		log.Info("Lead status changed",
			zap.String("lead_id", lead.ID.String()),
			zap.String("from", from.String()),
			zap.String("to", lead.Status.String()))
	}
	return &dto, nil
}

// Delete removes an open lead. Closed leads stay as the record behind their
// sale or loss.
func (s *LeadService) Delete(ctx context.Context, p access.Principal, id uuid.UUID) error {
	lead, err := s.visible(ctx, p, id)
	if err != nil {
		return err
	}
	if d := access.Authorize(p, lead.Resource(), access.ActionDelete); !d.Allowed {
		return d.Err()
	}
	if !lead.CanDelete() {
		return crm.ErrLeadClosed
	}
	return s.leads.Delete(ctx, lead.ID)
}

func (s *LeadService) visible(ctx context.Context, p access.Principal, id uuid.UUID) (*crm.Lead, error) {
	if !p.IsAuthenticated() {
		return nil, shared.ErrUnauthorized
	}
	lead, err := s.leads.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !access.Authorize(p, lead.Resource(), access.ActionReadOne).Allowed {
		return nil, crm.ErrLeadNotFound
	}
	return lead, nil
}

func (s *LeadService) visibleAccount(ctx context.Context, p access.Principal, id uuid.UUID) (*crm.Account, error) {
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
