package crm

import (
	"testing"
	"time"

	"github.com/crm/backend/internal/domain/access"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type people struct {
	team, otherTeam uuid.UUID
	rep             access.Principal
	manager         access.Principal
	otherManager    access.Principal
	admin           access.Principal
}

func newPeople() people {
	p := people{team: uuid.New(), otherTeam: uuid.New()}
	p.rep = access.NewPrincipal(uuid.New(), access.RoleSalesperson, &p.team)
	p.manager = access.NewPrincipal(uuid.New(), access.RoleManager, &p.team)
	p.otherManager = access.NewPrincipal(uuid.New(), access.RoleManager, &p.otherTeam)
	p.admin = access.NewPrincipal(uuid.New(), access.RoleAdmin, nil)
	return p
}

func newTestAccount(t *testing.T, owner access.Principal) *Account {
	t.Helper()
	a, err := NewAccount(owner.UserID, owner.TeamID, AccountDetails{
		FirstName: "Anna",
		LastName:  "Nowak",
		Email:     "anna@example.com",
	})
	require.NoError(t, err)
	return a
}

func leadIn(t *testing.T, owner access.Principal, status LeadStatus, value int64) *Lead {
	t.Helper()
	l, err := NewLead(newTestAccount(t, owner), "fleet renewal", decimal.NewFromInt(value), 40)
	require.NoError(t, err)
	l.Status = status
	l.ClearDomainEvents()
	return l
}

type leadSnapshot struct {
	Status    LeadStatus
	Version   int
	UpdatedAt time.Time
	Events    int
}

func snapshot(l *Lead) leadSnapshot {
	return leadSnapshot{l.Status, l.Version, l.UpdatedAt, len(l.GetDomainEvents())}
}

func TestNewLead(t *testing.T) {
	p := newPeople()
	account := newTestAccount(t, p.rep)

	t.Run("starts in NEW with the account owner", func(t *testing.T) {
		l, err := NewLead(account, "  pilot  ", decimal.NewFromInt(100), 10)
		require.NoError(t, err)
		assert.Equal(t, LeadStatusNew, l.Status)
		assert.Equal(t, "pilot", l.Description)
		assert.Equal(t, p.rep.UserID, l.OwnerID)
		assert.Equal(t, account.ID, l.AccountID)
		assert.Equal(t, 1, l.Version)
	})

	t.Run("rejects negative value", func(t *testing.T) {
		_, err := NewLead(account, "x", decimal.NewFromInt(-1), 10)
		assert.ErrorIs(t, err, shared.NewValidationError(""))
	})

	t.Run("rejects probability out of range", func(t *testing.T) {
		for _, prob := range []int{-1, 101} {
			_, err := NewLead(account, "x", decimal.Zero, prob)
			assert.Error(t, err)
		}
	})

	t.Run("requires an account", func(t *testing.T) {
		_, err := NewLead(nil, "x", decimal.Zero, 0)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestTransition_ScenarioA_WinCreatesSale(t *testing.T) {
	p := newPeople()
	l := leadIn(t, p.rep, LeadStatusNegotiation, 5000)
	now := time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC)

	sale, err := l.Transition(p.rep, "CLOSED_WON", now)
	require.NoError(t, err)
	require.NotNil(t, sale)

	assert.Equal(t, LeadStatusClosedWon, l.Status)
	assert.Equal(t, now, l.UpdatedAt)
	assert.Equal(t, 2, l.Version)
	assert.Equal(t, p.rep.UserID, sale.OwnerID)
	assert.Equal(t, l.ID, sale.LeadID)
	assert.True(t, sale.Amount.Equal(decimal.NewFromInt(5000)))
	assert.Equal(t, now, sale.ClosedAt)
	require.NotNil(t, sale.TeamID)
	assert.Equal(t, p.team, *sale.TeamID)

	events := l.GetDomainEvents()
	require.Len(t, events, 2)
	assert.Equal(t, EventTypeLeadStatusChanged, events[0].EventType())
	assert.Equal(t, EventTypeLeadClosedWon, events[1].EventType())
	won := events[1].(*LeadClosedWonEvent)
	assert.Equal(t, sale.ID, won.SaleID)
	assert.Equal(t, p.rep.UserID, won.ActorID())
}

func TestTransition_ScenarioB_ForeignManagerForbidden(t *testing.T) {
	p := newPeople()
	l := leadIn(t, p.rep, LeadStatusNegotiation, 5000)
	before := snapshot(l)

	sale, err := l.Transition(p.otherManager, "CLOSED_WON", time.Now())
	assert.Nil(t, sale)
	assert.ErrorIs(t, err, shared.ErrForbidden)
	assert.Equal(t, before, snapshot(l))
}

func TestTransition_ScenarioC_ClosedLeadRejected(t *testing.T) {
	p := newPeople()
	l := leadIn(t, p.rep, LeadStatusNegotiation, 5000)
	_, err := l.Transition(p.rep, "CLOSED_WON", time.Now())
	require.NoError(t, err)
	l.ClearDomainEvents()
	before := snapshot(l)

	sale, err := l.Transition(p.rep, "CLOSED_LOST", time.Now())
	assert.Nil(t, sale)
	assert.Same(t, ErrLeadClosed, err)
	assert.Equal(t, "lead already closed", err.Error())
	assert.Equal(t, before, snapshot(l))
}

func TestTransition_TerminalAlwaysRejected(t *testing.T) {
	p := newPeople()
	for _, terminal := range []LeadStatus{LeadStatusClosedWon, LeadStatusClosedLost} {
		for _, target := range LeadStatuses {
			for _, who := range []access.Principal{p.rep, p.manager, p.admin} {
				l := leadIn(t, p.rep, terminal, 10)
				before := snapshot(l)
				sale, err := l.Transition(who, target.String(), time.Now())
				assert.Nil(t, sale)
				assert.Error(t, err)
				assert.Equal(t, before, snapshot(l))
			}
		}
	}
}

func TestTransition_PermissiveJumps(t *testing.T) {
	p := newPeople()
	for _, from := range LeadStatuses {
		if from.IsTerminal() {
			continue
		}
		for _, to := range LeadStatuses {
			if to == from {
				continue
			}
			l := leadIn(t, p.rep, from, 10)
			sale, err := l.Transition(p.rep, to.String(), time.Now())
			require.NoErrorf(t, err, "%s -> %s", from, to)
			assert.Equal(t, to, l.Status)
			assert.Equal(t, to == LeadStatusClosedWon, sale != nil)
		}
	}
}

func TestTransition_RejectionOrder(t *testing.T) {
	p := newPeople()

	t.Run("forbidden wins over unknown status", func(t *testing.T) {
		l := leadIn(t, p.rep, LeadStatusNew, 10)
		_, err := l.Transition(p.otherManager, "BOGUS", time.Now())
		assert.ErrorIs(t, err, shared.ErrForbidden)
	})

	t.Run("forbidden wins over closed lead", func(t *testing.T) {
		l := leadIn(t, p.rep, LeadStatusClosedLost, 10)
		_, err := l.Transition(p.otherManager, "NEW", time.Now())
		assert.ErrorIs(t, err, shared.ErrForbidden)
	})

	t.Run("closed lead wins over unknown status", func(t *testing.T) {
		for _, status := range []LeadStatus{LeadStatusClosedWon, LeadStatusClosedLost} {
			l := leadIn(t, p.rep, status, 10)
			before := snapshot(l)
			for _, target := range []string{"BOGUS", "WON", ""} {
				sale, err := l.Transition(p.rep, target, time.Now())
				assert.Same(t, ErrLeadClosed, err, "%s -> %q", status, target)
				assert.Nil(t, sale)
			}
			assert.Equal(t, before, snapshot(l))
		}
	})

	t.Run("unknown status on an open lead", func(t *testing.T) {
		l := leadIn(t, p.rep, LeadStatusNegotiation, 10)
		_, err := l.Transition(p.rep, "WON", time.Now())
		assert.Same(t, ErrUnknownStatus, err)
	})

	t.Run("anonymous is unauthenticated", func(t *testing.T) {
		l := leadIn(t, p.rep, LeadStatusNew, 10)
		_, err := l.Transition(access.Anonymous, "QUALIFICATION", time.Now())
		assert.ErrorIs(t, err, shared.ErrUnauthorized)
	})

	t.Run("same status is rejected", func(t *testing.T) {
		l := leadIn(t, p.rep, LeadStatusProposal, 10)
		before := snapshot(l)
		_, err := l.Transition(p.rep, "proposal", time.Now())
		assert.Same(t, ErrSameStatus, err)
		assert.Equal(t, before, snapshot(l))
	})
}

func TestTransition_ManagerAndAdmin(t *testing.T) {
	p := newPeople()
	for _, who := range []access.Principal{p.manager, p.admin} {
		l := leadIn(t, p.rep, LeadStatusProposal, 700)
		sale, err := l.Transition(who, "CLOSED_WON", time.Now())
		require.NoError(t, err)
		// The sale belongs to the account owner, not to whoever closed it.
		assert.Equal(t, p.rep.UserID, sale.OwnerID)
	}
}

func TestTransition_LostCreatesNoSale(t *testing.T) {
	p := newPeople()
	l := leadIn(t, p.rep, LeadStatusProposal, 700)
	sale, err := l.Transition(p.rep, "CLOSED_LOST", time.Now())
	require.NoError(t, err)
	assert.Nil(t, sale)
	assert.Len(t, l.GetDomainEvents(), 1)
	assert.False(t, l.CanDelete())
}

func TestSale_AmountIsSnapshot(t *testing.T) {
	p := newPeople()
	l := leadIn(t, p.rep, LeadStatusNegotiation, 5000)
	sale, err := l.Transition(p.rep, "CLOSED_WON", time.Now())
	require.NoError(t, err)

	l.EstimatedValue = decimal.NewFromInt(9999)
	assert.True(t, sale.Amount.Equal(decimal.NewFromInt(5000)))
}

func TestLead_UpdateDetails(t *testing.T) {
	p := newPeople()

	l := leadIn(t, p.rep, LeadStatusQualification, 10)
	require.NoError(t, l.UpdateDetails("bigger scope", decimal.NewFromInt(20), 55))
	assert.Equal(t, 2, l.Version)
	assert.Equal(t, 55, l.Probability)

	closed := leadIn(t, p.rep, LeadStatusClosedWon, 10)
	assert.Same(t, ErrLeadClosed, closed.UpdateDetails("x", decimal.Zero, 0))
}

func TestParseLeadStatus(t *testing.T) {
	for _, s := range LeadStatuses {
		parsed, err := ParseLeadStatus(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}
	_, err := ParseLeadStatus("CLOSED")
	assert.Error(t, err)

	var s LeadStatus
	require.NoError(t, s.UnmarshalText([]byte("negotiation")))
	assert.Equal(t, LeadStatusNegotiation, s)
	_, err = LeadStatus(0).MarshalText()
	assert.Error(t, err)
}
