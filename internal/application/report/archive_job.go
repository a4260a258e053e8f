package report

import (
	"context"
	"fmt"

	"github.com/crm/backend/internal/infrastructure/scheduler"
	"github.com/crm/backend/internal/infrastructure/storage"
	"go.uber.org/zap"
)

const csvContentType = "text/csv; charset=utf-8"

// ArchiveExecutor renders a monthly ranking as CSV and stores it in the
// report archive. It implements scheduler.JobExecutor.
type ArchiveExecutor struct {
	reports  *ReportService
	archiver storage.ReportArchiver
	logger   *zap.Logger
}

func NewArchiveExecutor(reports *ReportService, archiver storage.ReportArchiver, logger *zap.Logger) *ArchiveExecutor {
	return &ArchiveExecutor{reports: reports, archiver: archiver, logger: logger}
}

// ArchiveKey is the object key of a report kind for a period, for example
// "reports/2026/03/salespeople.csv".
func ArchiveKey(kind scheduler.ReportKind, year, month int) string {
	return fmt.Sprintf("reports/%04d/%02d/%s.csv", year, month, kind)
}

func (e *ArchiveExecutor) Execute(ctx context.Context, job *scheduler.Job) error {
	var (
		data []byte
		err  error
	)
	switch job.Kind {
	case scheduler.ReportKindSalespeople:
		rows, rerr := e.reports.IndividualReport(ctx, systemPrincipal, job.Period.Year, job.Period.Month)
		if rerr != nil {
			return rerr
		}
		data, err = SalespeopleCSV(rows)
	case scheduler.ReportKindTeams:
		rows, rerr := e.reports.TeamReport(ctx, systemPrincipal, job.Period.Year, job.Period.Month)
		if rerr != nil {
			return rerr
		}
		data, err = TeamsCSV(rows)
	default:
		return scheduler.ErrInvalidReportKind
	}
	if err != nil {
		return err
	}

	key := ArchiveKey(job.Kind, job.Period.Year, job.Period.Month)
	location, err := e.archiver.Archive(ctx, key, data, csvContentType)
	if err != nil {
		return fmt.Errorf("archive %s: %w", key, err)
	}
	e.logger.Info("Report archived",
		zap.String("job_id", job.ID.String()),
		zap.String("location", location),
		zap.Int("bytes", len(data)))
	return nil
}

var _ scheduler.JobExecutor = (*ArchiveExecutor)(nil)
