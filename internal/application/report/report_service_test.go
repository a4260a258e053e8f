package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"github.com/crm/backend/internal/domain/access"
	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/domain/report"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/infrastructure/cache"
	"github.com/crm/backend/internal/infrastructure/scheduler"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockSalesReportRepository struct {
	mock.Mock
}

func (m *MockSalesReportRepository) GetSalespersonPerformance(ctx context.Context, filter report.SalesReportFilter) ([]report.SalespersonPerformance, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]report.SalespersonPerformance), args.Error(1)
}

func (m *MockSalesReportRepository) GetTeamPerformance(ctx context.Context, filter report.SalesReportFilter) ([]report.TeamPerformance, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]report.TeamPerformance), args.Error(1)
}

type memoryArchiver struct {
	objects map[string][]byte
	err     error
}

func (a *memoryArchiver) Archive(_ context.Context, key string, data []byte, _ string) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	if a.objects == nil {
		a.objects = map[string][]byte{}
	}
	a.objects[key] = data
	return "mem://" + key, nil
}

func (a *memoryArchiver) DownloadURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "mem://" + key, nil
}

func setupReportService(t *testing.T) (*ReportService, *MockSalesReportRepository) {
	t.Helper()
	repo := new(MockSalesReportRepository)
	reportCache := cache.NewInMemoryReportCache()
	t.Cleanup(func() { _ = reportCache.Close() })
	return NewReportService(repo, reportCache, time.Minute, zap.NewNop()), repo
}

func sellerRow(amount string, deals int64) report.SalespersonPerformance {
	return report.SalespersonPerformance{
		SalespersonID: uuid.New(),
		FirstName:     "Sam",
		LastName:      "Seller",
		Email:         "sam@crm.test",
		TotalAmount:   decimal.RequireFromString(amount),
		DealsCount:    deals,
	}
}

func TestReportService_IndividualReport(t *testing.T) {
	ctx := context.Background()
	admin := access.NewPrincipal(uuid.New(), access.RoleAdmin, nil)

	t.Run("ranks by amount and caches", func(t *testing.T) {
		svc, repo := setupReportService(t)
		low, high := sellerRow("100", 1), sellerRow("900.25", 3)
		repo.On("GetSalespersonPerformance", mock.Anything, report.SalesReportFilter{Period: report.Period{Year: 2026, Month: 3}}).
			Return([]report.SalespersonPerformance{low, high}, nil).Once()

		rows, err := svc.IndividualReport(ctx, admin, 2026, 3)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, high.SalespersonID, rows[0].SalespersonID)
		assert.Equal(t, 1, rows[0].Rank)
		assert.Equal(t, 2, rows[1].Rank)

		again, err := svc.IndividualReport(ctx, admin, 2026, 3)
		require.NoError(t, err)
		assert.Equal(t, rows[0].SalespersonID, again[0].SalespersonID)
		repo.AssertNumberOfCalls(t, "GetSalespersonPerformance", 1)
	})

	t.Run("manager is limited to their team", func(t *testing.T) {
		svc, repo := setupReportService(t)
		team := uuid.New()
		manager := access.NewPrincipal(uuid.New(), access.RoleManager, &team)
		repo.On("GetSalespersonPerformance", mock.Anything, mock.MatchedBy(func(f report.SalesReportFilter) bool {
			return f.TeamID != nil && *f.TeamID == team
		})).Return([]report.SalespersonPerformance{}, nil)

		rows, err := svc.IndividualReport(ctx, manager, 2026, 1)
		require.NoError(t, err)
		assert.Empty(t, rows)
		repo.AssertExpectations(t)
	})

	t.Run("manager without a team sees nothing", func(t *testing.T) {
		svc, repo := setupReportService(t)
		manager := access.NewPrincipal(uuid.New(), access.RoleManager, nil)

		rows, err := svc.TeamReport(ctx, manager, 2026, 1)
		require.NoError(t, err)
		assert.Empty(t, rows)
		repo.AssertNotCalled(t, "GetTeamPerformance", mock.Anything, mock.Anything)
	})

	t.Run("salesperson is forbidden", func(t *testing.T) {
		svc, _ := setupReportService(t)
		team := uuid.New()
		_, err := svc.IndividualReport(ctx, access.NewPrincipal(uuid.New(), access.RoleSalesperson, &team), 2026, 1)
		assert.ErrorIs(t, err, shared.ErrForbidden)
	})

	t.Run("period validation", func(t *testing.T) {
		svc, _ := setupReportService(t)
		for _, tc := range []struct{ year, month int }{{999, 1}, {10000, 1}, {2026, 0}, {2026, 13}} {
			_, err := svc.IndividualReport(ctx, admin, tc.year, tc.month)
			assert.ErrorIs(t, err, shared.NewValidationError(""), "year=%d month=%d", tc.year, tc.month)
		}
	})
}

func TestReportService_TeamReport_TiesBreakByID(t *testing.T) {
	ctx := context.Background()
	svc, repo := setupReportService(t)
	a := uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	b := uuid.MustParse("00000000-0000-0000-0000-00000000000b")
	repo.On("GetTeamPerformance", mock.Anything, mock.Anything).Return([]report.TeamPerformance{
		{TeamID: b, TeamName: "B", TotalAmount: decimal.NewFromInt(50), DealsCount: 1, TeamSize: 1},
		{TeamID: a, TeamName: "A", TotalAmount: decimal.NewFromInt(50), DealsCount: 2, TeamSize: 2},
		{TeamID: uuid.New(), TeamName: "C", TotalAmount: decimal.NewFromInt(80), DealsCount: 1, TeamSize: 1},
	}, nil)

	rows, err := svc.TeamReport(ctx, access.NewPrincipal(uuid.New(), access.RoleAdmin, nil), 2026, 4)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for i, want := range []string{"C", "A", "B"} {
		assert.Equal(t, want, rows[i].TeamName)
		assert.Equal(t, i+1, rows[i].Rank)
	}
}

func TestReportService_InvalidatedByDealWon(t *testing.T) {
	ctx := context.Background()
	svc, repo := setupReportService(t)
	admin := access.NewPrincipal(uuid.New(), access.RoleAdmin, nil)
	repo.On("GetSalespersonPerformance", mock.Anything, mock.Anything).Return([]report.SalespersonPerformance{sellerRow("1", 1)}, nil)

	_, err := svc.IndividualReport(ctx, admin, 2026, 5)
	require.NoError(t, err)

	ev := &crm.LeadClosedWonEvent{BaseDomainEvent: shared.NewBaseDomainEvent(crm.EventTypeLeadClosedWon, crm.AggregateTypeLead, uuid.New(), uuid.New())}
	ev.Timestamp = time.Date(2026, 5, 31, 23, 59, 0, 0, time.UTC)
	require.NoError(t, NewCacheInvalidator(svc, zap.NewNop()).Handle(ctx, ev))

	_, err = svc.IndividualReport(ctx, admin, 2026, 5)
	require.NoError(t, err)
	repo.AssertNumberOfCalls(t, "GetSalespersonPerformance", 2)
}

func TestExportIndividualCSV(t *testing.T) {
	ctx := context.Background()
	svc, repo := setupReportService(t)
	row := sellerRow("1234.5", 2)
	repo.On("GetSalespersonPerformance", mock.Anything, mock.Anything).Return([]report.SalespersonPerformance{row}, nil)

	data, err := svc.ExportIndividualCSV(ctx, access.NewPrincipal(uuid.New(), access.RoleAdmin, nil), 2026, 2)
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "total_amount", records[0][5])
	assert.Equal(t, []string{"1", row.SalespersonID.String(), "Sam", "Seller", "sam@crm.test", "1234.50", "2"}, records[1])
}

func TestArchiveExecutor(t *testing.T) {
	ctx := context.Background()
	svc, repo := setupReportService(t)
	repo.On("GetSalespersonPerformance", mock.Anything, mock.Anything).Return([]report.SalespersonPerformance{sellerRow("10", 1)}, nil)
	repo.On("GetTeamPerformance", mock.Anything, mock.Anything).Return([]report.TeamPerformance{}, nil)
	archiver := &memoryArchiver{}
	exec := NewArchiveExecutor(svc, archiver, zap.NewNop())
	period := report.Period{Year: 2026, Month: 2}

	for _, kind := range scheduler.AllReportKinds() {
		require.NoError(t, exec.Execute(ctx, scheduler.NewJob(kind, period, 0)))
	}
	assert.Contains(t, archiver.objects, "reports/2026/02/salespeople.csv")
	assert.Contains(t, archiver.objects, "reports/2026/02/teams.csv")

	archiver.err = errors.New("bucket gone")
	assert.ErrorContains(t, exec.Execute(ctx, scheduler.NewJob(scheduler.ReportKindTeams, period, 0)), "bucket gone")
	assert.ErrorIs(t, exec.Execute(ctx, scheduler.NewJob("weekly", period, 0)), scheduler.ErrInvalidReportKind)
}
