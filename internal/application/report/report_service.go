package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/crm/backend/internal/domain/access"
	"github.com/crm/backend/internal/domain/report"
	"github.com/crm/backend/internal/infrastructure/cache"
	"github.com/crm/backend/internal/infrastructure/logger"
	"github.com/crm/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	kindSalespeople = "salespeople"
	kindTeams       = "teams"
)

// ReportService serves the monthly sales rankings. Results are cached per
// period and team scope; a won deal drops the cached entries of its month.
type ReportService struct {
	repo     report.SalesReportRepository
	cache    cache.ReportCache
	cacheTTL time.Duration
	logger   *zap.Logger
}

func NewReportService(repo report.SalesReportRepository, reportCache cache.ReportCache, cacheTTL time.Duration, logger *zap.Logger) *ReportService {
	return &ReportService{
		repo:     repo,
		cache:    reportCache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// IndividualReport ranks salespeople by the amount they closed in the
// month. Managers see only sales booked for their team.
func (s *ReportService) IndividualReport(ctx context.Context, p access.Principal, year, month int) ([]report.SalespersonPerformance, error) {
	filter, empty, err := s.filterFor(p, year, month)
	if err != nil || empty {
		return []report.SalespersonPerformance{}, err
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "report", "IndividualReport", telemetry.SpanAttrPeriod, periodLabel(filter.Period))
	defer span.End()

	key := cacheKey(kindSalespeople, filter)
	var rows []report.SalespersonPerformance
	if s.fromCache(ctx, key, &rows) {
		return rows, nil
	}
	rows, err = s.repo.GetSalespersonPerformance(ctx, filter)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("salesperson performance: %w", err)
	}
	report.RankSalespeople(rows)
	s.toCache(ctx, key, rows)
	return rows, nil
}

// TeamReport ranks teams by the amount they closed in the month. Managers
// see only their own team.
func (s *ReportService) TeamReport(ctx context.Context, p access.Principal, year, month int) ([]report.TeamPerformance, error) {
	filter, empty, err := s.filterFor(p, year, month)
	if err != nil || empty {
		return []report.TeamPerformance{}, err
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "report", "TeamReport", telemetry.SpanAttrPeriod, periodLabel(filter.Period))
	defer span.End()

	key := cacheKey(kindTeams, filter)
	var rows []report.TeamPerformance
	if s.fromCache(ctx, key, &rows) {
		return rows, nil
	}
	rows, err = s.repo.GetTeamPerformance(ctx, filter)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("team performance: %w", err)
	}
	report.RankTeams(rows)
	s.toCache(ctx, key, rows)
	return rows, nil
}

// ExportIndividualCSV renders the individual report as CSV.
func (s *ReportService) ExportIndividualCSV(ctx context.Context, p access.Principal, year, month int) ([]byte, error) {
	rows, err := s.IndividualReport(ctx, p, year, month)
	if err != nil {
		return nil, err
	}
	return SalespeopleCSV(rows)
}

// ExportTeamCSV renders the team report as CSV.
func (s *ReportService) ExportTeamCSV(ctx context.Context, p access.Principal, year, month int) ([]byte, error) {
	rows, err := s.TeamReport(ctx, p, year, month)
	if err != nil {
		return nil, err
	}
	return TeamsCSV(rows)
}

// InvalidatePeriod drops every cached report of a month.
func (s *ReportService) InvalidatePeriod(ctx context.Context, period report.Period) error {
	label := periodLabel(period)
	for _, kind := range []string{kindSalespeople, kindTeams} {
		if err := s.cache.InvalidatePrefix(ctx, kind+":"+label); err != nil {
			return err
		}
	}
	return nil
}

// filterFor validates the period and narrows it to the caller's scope. It
// reports empty when the caller is allowed but can see no rows, which is a
// manager without a team.
func (s *ReportService) filterFor(p access.Principal, year, month int) (report.SalesReportFilter, bool, error) {
	d := access.Authorize(p, access.Collection(access.KindReport), access.ActionReadList)
	if !d.Allowed {
		return report.SalesReportFilter{}, false, d.Err()
	}
	period, err := report.NewPeriod(year, month)
	if err != nil {
		return report.SalesReportFilter{}, false, err
	}
	filter := report.SalesReportFilter{Period: period}
	if d.Scope == access.ScopeAll {
		return filter, false, nil
	}
	if p.TeamID == nil {
		return filter, true, nil
	}
	team := *p.TeamID
	filter.TeamID = &team
	return filter, false, nil
}

func (s *ReportService) fromCache(ctx context.Context, key string, dest any) bool {
	hit, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		logger.Ctx(ctx, s.logger).Warn("Report cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return hit
}

func (s *ReportService) toCache(ctx context.Context, key string, value any) {
	if s.cacheTTL <= 0 {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cacheTTL); err != nil {
		logger.Ctx(ctx, s.logger).Warn("Report cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func cacheKey(kind string, f report.SalesReportFilter) string {
	scope := "all"
	if f.TeamID != nil {
		scope = f.TeamID.String()
	}
	return kind + ":" + periodLabel(f.Period) + ":" + scope
}

func periodLabel(p report.Period) string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// SalespeopleCSV writes one line per ranked salesperson under a header.
func SalespeopleCSV(rows []report.SalespersonPerformance) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	records := [][]string{{"rank", "salesperson_id", "first_name", "last_name", "email", "total_amount", "deals_count"}}
	for _, r := range rows {
		records = append(records, []string{
			strconv.Itoa(r.Rank),
			r.SalespersonID.String(),
			r.FirstName,
			r.LastName,
			r.Email,
			r.TotalAmount.StringFixed(2),
			strconv.FormatInt(r.DealsCount, 10),
		})
	}
	if err := w.WriteAll(records); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}

// TeamsCSV writes one line per ranked team under a header.
func TeamsCSV(rows []report.TeamPerformance) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	records := [][]string{{"rank", "team_id", "team_name", "total_amount", "deals_count", "team_size"}}
	for _, r := range rows {
		records = append(records, []string{
			strconv.Itoa(r.Rank),
			r.TeamID.String(),
			r.TeamName,
			r.TotalAmount.StringFixed(2),
			strconv.FormatInt(r.DealsCount, 10),
			strconv.FormatInt(r.TeamSize, 10),
		})
	}
	if err := w.WriteAll(records); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}

// systemPrincipal is the identity of scheduled jobs. It reads every report.
var systemPrincipal = access.NewPrincipal(uuid.MustParse("00000000-0000-0000-0000-000000000001"), access.RoleAdmin, nil)
