package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nbaparkdev/assettrack-ti/internal/dto"
	"github.com/nbaparkdev/assettrack-ti/internal/service"
	appErrors "github.com/nbaparkdev/assettrack-ti/pkg/errors"
	"github.com/nbaparkdev/assettrack-ti/pkg/response"
)

// ReportHandler exposes the dashboard and ledger exports.
type ReportHandler struct {
	reports *service.ReportService
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Dashboard godoc
// @Summary Inventory dashboard
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /reports/dashboard [get]
func (h *ReportHandler) Dashboard(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	dashboard, err := h.reports.Dashboard(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dashboard, nil)
}

// Movements godoc
// @Summary Export the movement ledger
// @Tags Reports
// @Produce json
// @Param asset query string false "Filter by asset"
// @Param user query string false "Filter by user"
// @Param kind query string false "Comma separated movement kinds"
// @Param from query string false "RFC3339 lower bound"
// @Param to query string false "RFC3339 upper bound"
// @Param format query string true "csv or pdf"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /reports/movements [get]
func (h *ReportHandler) Movements(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	req := dto.MovementReportRequest{
		AssetID: c.Query("asset"),
		UserID:  c.Query("user"),
		Format:  c.DefaultQuery("format", "csv"),
	}
	if raw := c.Query("kind"); raw != "" {
		req.Kind = strings.Split(raw, ",")
	}
	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid from timestamp"))
			return
		}
		req.From = &t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid to timestamp"))
			return
		}
		req.To = &t
	}

	payload, contentType, err := h.reports.MovementReport(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("movements-%s.%s", time.Now().Format("2006-01-02"), req.Format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, payload)
}

// Maintenance godoc
// @Summary Export maintenance requests
// @Tags Reports
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param asset query string false "Filter by asset"
// @Param from query string false "RFC3339 lower bound"
// @Param to query string false "RFC3339 upper bound"
// @Param format query string true "csv, pdf or json"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /reports/maintenance [get]
func (h *ReportHandler) Maintenance(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	req := dto.MaintenanceReportRequest{
		AssetID: c.Query("asset"),
		Format:  c.DefaultQuery("format", "csv"),
	}
	if raw := c.Query("status"); raw != "" {
		req.Status = strings.Split(raw, ",")
	}
	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid from timestamp"))
			return
		}
		req.From = &t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid to timestamp"))
			return
		}
		req.To = &t
	}

	payload, contentType, err := h.reports.MaintenanceReport(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("maintenance-%s.%s", time.Now().Format("2006-01-02"), req.Format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, payload)
}
