package crm

import (
	"context"

	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/infrastructure/mail"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*crm.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*crm.Account), args.Error(1)
}

func (m *MockAccountRepository) FindAll(ctx context.Context, filter crm.AccountFilter) ([]*crm.Account, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*crm.Account), args.Get(1).(int64), args.Error(2)
}

func (m *MockAccountRepository) ExistsByEmail(ctx context.Context, email string, excludeID *uuid.UUID) (bool, error) {
	args := m.Called(ctx, email, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccountRepository) Create(ctx context.Context, account *crm.Account) error {
	return m.Called(ctx, account).Error(0)
}

func (m *MockAccountRepository) Update(ctx context.Context, account *crm.Account, expectedVersion int) error {
	return m.Called(ctx, account, expectedVersion).Error(0)
}

func (m *MockAccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type MockLeadRepository struct {
	mock.Mock
}

func (m *MockLeadRepository) FindByID(ctx context.Context, id uuid.UUID) (*crm.Lead, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*crm.Lead), args.Error(1)
}

func (m *MockLeadRepository) FindAll(ctx context.Context, filter crm.LeadFilter) ([]*crm.Lead, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*crm.Lead), args.Get(1).(int64), args.Error(2)
}

func (m *MockLeadRepository) Create(ctx context.Context, lead *crm.Lead) error {
	return m.Called(ctx, lead).Error(0)
}

func (m *MockLeadRepository) Update(ctx context.Context, lead *crm.Lead, expectedVersion int) error {
	return m.Called(ctx, lead, expectedVersion).Error(0)
}

func (m *MockLeadRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockLeadRepository) HasClosedLeads(ctx context.Context, accountID uuid.UUID) (bool, error) {
	args := m.Called(ctx, accountID)
	return args.Bool(0), args.Error(1)
}

func (m *MockLeadRepository) ApplyTransition(ctx context.Context, lead *crm.Lead, expectedVersion int, sale *crm.Sale) error {
	return m.Called(ctx, lead, expectedVersion, sale).Error(0)
}

type MockNoteRepository struct {
	mock.Mock
}

func (m *MockNoteRepository) FindByID(ctx context.Context, id uuid.UUID) (*crm.Note, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*crm.Note), args.Error(1)
}

func (m *MockNoteRepository) FindByAccount(ctx context.Context, accountID uuid.UUID) ([]*crm.Note, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).([]*crm.Note), args.Error(1)
}

func (m *MockNoteRepository) Create(ctx context.Context, note *crm.Note) error {
	return m.Called(ctx, note).Error(0)
}

func (m *MockNoteRepository) Update(ctx context.Context, note *crm.Note) error {
	return m.Called(ctx, note).Error(0)
}

func (m *MockNoteRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type MockSaleRepository struct {
	mock.Mock
}

func (m *MockSaleRepository) FindByID(ctx context.Context, id uuid.UUID) (*crm.Sale, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*crm.Sale), args.Error(1)
}

func (m *MockSaleRepository) FindByLeadID(ctx context.Context, leadID uuid.UUID) (*crm.Sale, error) {
	args := m.Called(ctx, leadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*crm.Sale), args.Error(1)
}

func (m *MockSaleRepository) FindAll(ctx context.Context, filter crm.SaleFilter) ([]*crm.Sale, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*crm.Sale), args.Get(1).(int64), args.Error(2)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *identity.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *identity.User, expectedVersion int) error {
	return m.Called(ctx, user, expectedVersion).Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindAll(ctx context.Context, filter identity.UserFilter) ([]*identity.User, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*identity.User), args.Get(1).(int64), args.Error(2)
}

func (m *MockUserRepository) FindManagersOfTeam(ctx context.Context, teamID uuid.UUID) ([]*identity.User, error) {
	args := m.Called(ctx, teamID)
	return args.Get(0).([]*identity.User), args.Error(1)
}

func (m *MockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) LeadTransitioned(ctx context.Context, from, to string) {
	m.Called(ctx, from, to)
}

func (m *MockRecorder) DealWon(ctx context.Context, amount decimal.Decimal) {
	m.Called(ctx, amount)
}

func (m *MockRecorder) ConflictDetected(ctx context.Context, operation string) {
	m.Called(ctx, operation)
}

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, msg mail.Message) error {
	return m.Called(ctx, msg).Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, routingKey string, body []byte) error {
	return m.Called(ctx, routingKey, body).Error(0)
}
