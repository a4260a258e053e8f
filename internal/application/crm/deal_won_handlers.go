package crm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/infrastructure/mail"
	"go.uber.org/zap"
)

// RoutingKeyDealWon is the broker routing key of forwarded deal-won events.
const RoutingKeyDealWon = "lead.closed_won"

// MessagePublisher sends a payload to the message broker.
type MessagePublisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

// DealWonMessage is the broker payload for a won deal.
type DealWonMessage struct {
	EventID   string    `json:"event_id"`
	LeadID    string    `json:"lead_id"`
	SaleID    string    `json:"sale_id"`
	AccountID string    `json:"account_id"`
	OwnerID   string    `json:"owner_id"`
	TeamID    string    `json:"team_id,omitempty"`
	Amount    string    `json:"amount"`
	ClosedAt  time.Time `json:"closed_at"`
}

// DealWonForwarder republishes LeadClosedWon events on the message broker.
type DealWonForwarder struct {
	publisher MessagePublisher
	logger    *zap.Logger
}

func NewDealWonForwarder(publisher MessagePublisher, logger *zap.Logger) *DealWonForwarder {
	return &DealWonForwarder{publisher: publisher, logger: logger}
}

func (h *DealWonForwarder) EventTypes() []string {
	return []string{crm.EventTypeLeadClosedWon}
}

func (h *DealWonForwarder) Handle(ctx context.Context, event shared.DomainEvent) error {
	ev, ok := event.(*crm.LeadClosedWonEvent)
	if !ok {
		h.logger.Error("Unexpected event type",
			zap.String("expected", crm.EventTypeLeadClosedWon),
			zap.String("actual", event.EventType()))
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}

	msg := DealWonMessage{
		EventID:   ev.EventID().String(),
		LeadID:    ev.AggregateID().String(),
		SaleID:    ev.SaleID.String(),
		AccountID: ev.AccountID.String(),
		OwnerID:   ev.OwnerID.String(),
		Amount:    ev.Amount.String(),
		ClosedAt:  ev.OccurredAt(),
	}
	if ev.TeamID != nil {
		msg.TeamID = ev.TeamID.String()
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal deal won message: %w", err)
	}
	if err := h.publisher.Publish(ctx, RoutingKeyDealWon, body); err != nil {
		return fmt.Errorf("publish deal won: %w", err)
	}
	h.logger.Debug("Deal won forwarded", zap.String("sale_id", msg.SaleID))
	return nil
}

// DealWonNotifier e-mails the managers of the seller's team when a deal is
// won. Sellers without a team produce no mail.
type DealWonNotifier struct {
	users    identity.UserRepository
	accounts crm.AccountRepository
	mailer   mail.Mailer
	logger   *zap.Logger
}

func NewDealWonNotifier(
	users identity.UserRepository,
	accounts crm.AccountRepository,
	mailer mail.Mailer,
	logger *zap.Logger,
) *DealWonNotifier {
	return &DealWonNotifier{users: users, accounts: accounts, mailer: mailer, logger: logger}
}

func (h *DealWonNotifier) EventTypes() []string {
	return []string{crm.EventTypeLeadClosedWon}
}

func (h *DealWonNotifier) Handle(ctx context.Context, event shared.DomainEvent) error {
	ev, ok := event.(*crm.LeadClosedWonEvent)
	if !ok {
		h.logger.Error("Unexpected event type",
			zap.String("expected", crm.EventTypeLeadClosedWon),
			zap.String("actual", event.EventType()))
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}
	if ev.TeamID == nil {
		return nil
	}

	managers, err := h.users.FindManagersOfTeam(ctx, *ev.TeamID)
	if err != nil {
		return fmt.Errorf("find team managers: %w", err)
	}
	if len(managers) == 0 {
		return nil
	}

	ownerName := ev.OwnerID.String()
	if owner, err := h.users.FindByID(ctx, ev.OwnerID); err == nil {
		ownerName = owner.FullName()
	} else if !errors.Is(err, shared.ErrNotFound) {
		return fmt.Errorf("find deal owner: %w", err)
	}
	accountName := ev.AccountID.String()
	if account, err := h.accounts.FindByID(ctx, ev.AccountID); err == nil {
		accountName = account.FullName()
		if account.Company != nil {
			accountName = fmt.Sprintf("%s (%s)", accountName, account.Company.Name)
		}
	} else if !errors.Is(err, shared.ErrNotFound) {
		return fmt.Errorf("find deal account: %w", err)
	}

	var errs []error
	for _, m := range managers {
		if m.ID == ev.OwnerID {
			continue
		}
		html, err := mail.RenderDealWon(mail.DealWonData{
			ManagerName: m.FullName(),
			OwnerName:   ownerName,
			AccountName: accountName,
			Amount:      ev.Amount.StringFixed(2),
			ClosedAt:    ev.OccurredAt().Format(time.RFC1123),
			Description: ev.Description,
		})
		if err != nil {
			return err
		}
		msg := mail.Message{
			To:      []string{m.Email},
			Subject: fmt.Sprintf("Deal won: %s", accountName),
			HTML:    html,
		}
		if err := h.mailer.Send(ctx, msg); err != nil {
			h.logger.Warn("Failed to send deal won mail",
				zap.String("manager_id", m.ID.String()),
				zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
