package admin

import (
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/caimari/musedock-sub009/internal/core/domain"
	"github.com/caimari/musedock-sub009/internal/core/ports"
)

const (
	reportLimit = 100
	exportLimit = 5000
)

// ReportsController exposes the security audit log.
type ReportsController struct {
	Controller
	logs ports.SecurityLogRepository
}

func NewReportsController(base Controller, logs ports.SecurityLogRepository) *ReportsController {
	return &ReportsController{Controller: base, logs: logs}
}

type reportResponse struct {
	Events []domain.SecurityEvent `json:"events"`
}

// Index lists the newest security events of the caller's tenant.
func (r *ReportsController) Index(c echo.Context) error {
	if err := r.CheckPermission(c, domain.PermReportsView); err != nil {
		return err
	}
	events, err := r.logs.Recent(c.Request().Context(), tenantOf(c), reportLimit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, reportResponse{Events: events})
}

// Export downloads the caller's tenant log as CSV.
func (r *ReportsController) Export(c echo.Context) error {
	if err := r.CheckAllPermissions(c, domain.PermReportsView, domain.PermReportsExport); err != nil {
		return err
	}
	return r.writeCSV(c, tenantOf(c), "security-report.csv")
}

// ExportAll downloads the log of every tenant.
func (r *ReportsController) ExportAll(c echo.Context) error {
	if err := r.RequireSuperAdmin(c); err != nil {
		return err
	}
	return r.writeCSV(c, 0, "security-report-all.csv")
}

func (r *ReportsController) writeCSV(c echo.Context, tenantID int64, filename string) error {
	events, err := r.logs.Recent(c.Request().Context(), tenantID, exportLimit)
	if err != nil {
		return err
	}

	h := c.Response().Header()
	h.Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	h.Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	c.Response().WriteHeader(http.StatusOK)

	w := csv.NewWriter(c.Response())
	_ = w.Write([]string{"occurred_at", "type", "severity", "ip", "path", "user_id", "user_type", "tenant_id", "detail"})
	for _, ev := range events {
		_ = w.Write([]string{
			ev.OccurredAt.UTC().Format(time.RFC3339),
			string(ev.Type),
			string(ev.Severity),
			ev.IP,
			ev.Path,
			strconv.FormatInt(ev.UserID, 10),
			string(ev.UserType),
			strconv.FormatInt(ev.TenantID, 10),
			ev.Detail,
		})
	}
	w.Flush()
	return w.Error()
}
