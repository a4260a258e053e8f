package handler

import (
	"fmt"
	"net/http"

	reportapp "github.com/crm/backend/internal/application/report"
	"github.com/crm/backend/internal/domain/access"
	"github.com/crm/backend/internal/domain/report"
	"github.com/crm/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// ArchiveScheduler queues the archive export of a month's reports.
type ArchiveScheduler interface {
	ScheduleArchive(period report.Period) error
}

// ReportHandler serves the monthly sales rankings.
type ReportHandler struct {
	BaseHandler
	reports   *reportapp.ReportService
	scheduler ArchiveScheduler
}

// NewReportHandler creates a report handler. scheduler may be nil, which
// disables the archive endpoint.
func NewReportHandler(reports *reportapp.ReportService, scheduler ArchiveScheduler) *ReportHandler {
	return &ReportHandler{reports: reports, scheduler: scheduler}
}

func (h *ReportHandler) period(c *gin.Context) (dto.PeriodRequest, bool) {
	var req dto.PeriodRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return req, false
	}
	return req, true
}

// Salespeople godoc
// @Summary      Individual sales report
// @Description  Rank salespeople by the amount closed in a month. Managers see their team only.
// @Tags         reports
// @Produce      json
// @Param        year  query int true "Year" example(2026)
// @Param        month query int true "Month (1-12)" example(3)
// @Success      200 {object} APIResponse[[]report.SalespersonPerformance]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /reports/salespeople [get]
func (h *ReportHandler) Salespeople(c *gin.Context) {
	req, ok := h.period(c)
	if !ok {
		return
	}
	rows, err := h.reports.IndividualReport(c.Request.Context(), principal(c), req.Year, req.Month)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rows)
}

// Teams godoc
// @Summary      Team sales report
// @Description  Rank teams by the amount closed in a month
// @Tags         reports
// @Produce      json
// @Param        year  query int true "Year" example(2026)
// @Param        month query int true "Month (1-12)" example(3)
// @Success      200 {object} APIResponse[[]report.TeamPerformance]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /reports/teams [get]
func (h *ReportHandler) Teams(c *gin.Context) {
	req, ok := h.period(c)
	if !ok {
		return
	}
	rows, err := h.reports.TeamReport(c.Request.Context(), principal(c), req.Year, req.Month)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rows)
}

// ExportSalespeople godoc
// @Summary      Export individual sales report
// @Tags         reports
// @Produce      text/csv
// @Param        year  query int true "Year" example(2026)
// @Param        month query int true "Month (1-12)" example(3)
// @Success      200 {file} file
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /reports/salespeople/export [get]
func (h *ReportHandler) ExportSalespeople(c *gin.Context) {
	req, ok := h.period(c)
	if !ok {
		return
	}
	body, err := h.reports.ExportIndividualCSV(c.Request.Context(), principal(c), req.Year, req.Month)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.csv(c, fmt.Sprintf("salespeople-%04d-%02d.csv", req.Year, req.Month), body)
}

// ExportTeams godoc
// @Summary      Export team sales report
// @Tags         reports
// @Produce      text/csv
// @Param        year  query int true "Year" example(2026)
// @Param        month query int true "Month (1-12)" example(3)
// @Success      200 {file} file
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /reports/teams/export [get]
func (h *ReportHandler) ExportTeams(c *gin.Context) {
	req, ok := h.period(c)
	if !ok {
		return
	}
	body, err := h.reports.ExportTeamCSV(c.Request.Context(), principal(c), req.Year, req.Month)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.csv(c, fmt.Sprintf("teams-%04d-%02d.csv", req.Year, req.Month), body)
}

func (h *ReportHandler) csv(c *gin.Context, filename string, body []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", body)
}

// Archive godoc
// @Summary      Archive a month's reports
// @Description  Queue the CSV export of both reports to object storage
// @Tags         reports
// @Produce      json
// @Param        year  query int true "Year" example(2026)
// @Param        month query int true "Month (1-12)" example(3)
// @Success      202 {object} APIResponse[report.Period]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /reports/archive [post]
func (h *ReportHandler) Archive(c *gin.Context) {
	req, ok := h.period(c)
	if !ok {
		return
	}
	if d := access.Authorize(principal(c), access.Collection(access.KindReport), access.ActionCreate); !d.Allowed {
		h.HandleError(c, d.Err())
		return
	}
	period, err := report.NewPeriod(req.Year, req.Month)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if h.scheduler == nil {
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeServiceUnavailable, "Report archiving is disabled")
		return
	}
	if err := h.scheduler.ScheduleArchive(period); err != nil {
		_ = c.Error(err)
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeServiceUnavailable, "Report archive could not be queued")
		return
	}
	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(period))
}
