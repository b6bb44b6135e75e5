package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nbaparkdev/assettrack-ti/internal/dto"
	"github.com/nbaparkdev/assettrack-ti/internal/models"
	"github.com/nbaparkdev/assettrack-ti/internal/service"
	appErrors "github.com/nbaparkdev/assettrack-ti/pkg/errors"
	"github.com/nbaparkdev/assettrack-ti/pkg/response"
)

// MaintenanceHandler exposes the maintenance request workflow.
type MaintenanceHandler struct {
	maintenance *service.MaintenanceService
	metrics     *service.MetricsService
}

// NewMaintenanceHandler constructs MaintenanceHandler.
func NewMaintenanceHandler(maintenance *service.MaintenanceService, metrics *service.MetricsService) *MaintenanceHandler {
	return &MaintenanceHandler{maintenance: maintenance, metrics: metrics}
}

// Create godoc
// @Summary Report a problem with an asset
// @Tags Maintenance
// @Accept json
// @Produce json
// @Param payload body dto.CreateMaintenanceRequest true "Report payload"
// @Success 201 {object} response.Envelope
// @Router /maintenance [post]
func (h *MaintenanceHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.CreateMaintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	request, err := h.maintenance.CreateRequest(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// List godoc
// @Summary List maintenance requests
// @Description Regular users see only their own reports
// @Tags Maintenance
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param requester query string false "Filter by requester"
// @Param assignee query string false "Filter by assigned technician"
// @Param asset query string false "Filter by asset"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /maintenance [get]
func (h *MaintenanceHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var query dto.MaintenanceQuery
	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			query.Status = append(query.Status, models.MaintenanceStatus(strings.ToUpper(strings.TrimSpace(s))))
		}
	}
	query.RequesterID = c.Query("requester")
	query.AssigneeID = c.Query("assignee")
	query.AssetID = c.Query("asset")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		query.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		query.PerPage = size
	}

	requests, err := h.maintenance.List(c.Request.Context(), query, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}

// Get godoc
// @Summary Get maintenance request detail
// @Tags Maintenance
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /maintenance/{id} [get]
func (h *MaintenanceHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	request, err := h.maintenance.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Accept godoc
// @Summary Accept a reported problem and start repair work
// @Tags Maintenance
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.AcceptMaintenanceRequest true "Acceptance payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /maintenance/{id}/accept [post]
func (h *MaintenanceHandler) Accept(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.AcceptMaintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	request, err := h.maintenance.Accept(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Reject godoc
// @Summary Reject a reported problem
// @Description A justification of at least ten characters is required
// @Tags Maintenance
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.RejectMaintenanceRequest true "Rejection payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /maintenance/{id}/reject [post]
func (h *MaintenanceHandler) Reject(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.RejectMaintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	request, err := h.maintenance.Reject(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Complete godoc
// @Summary Close the technical work on a repair
// @Tags Maintenance
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.CompleteMaintenanceRequest true "Completion payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /maintenance/{id}/complete [post]
func (h *MaintenanceHandler) Complete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.CompleteMaintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	request, err := h.maintenance.Complete(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// ConfirmDelivery godoc
// @Summary Hand a repaired asset back to its owner
// @Description Identity is proven by the owner's badge token, or a manager override
// @Tags Maintenance
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.ConfirmMaintenanceDeliveryRequest true "Delivery payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /maintenance/{id}/delivery [post]
func (h *MaintenanceHandler) ConfirmDelivery(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.ConfirmMaintenanceDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	request, err := h.maintenance.ConfirmDelivery(c.Request.Context(), c.Param("id"), req, claims, c.ClientIP(), c.GetHeader("User-Agent"))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.ObserveHandover("maintenance", req.QRToken != nil)

	response.JSON(c, http.StatusOK, request, nil)
}

// ConfirmReceipt godoc
// @Summary Acknowledge receipt of a repaired asset
// @Tags Maintenance
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /maintenance/{id}/receipt [post]
func (h *MaintenanceHandler) ConfirmReceipt(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	request, err := h.maintenance.ConfirmReceipt(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// OpenRecord godoc
// @Summary Open a repair episode without a user report
// @Tags Maintenance
// @Accept json
// @Produce json
// @Param payload body dto.OpenMaintenanceRecordRequest true "Record payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /maintenance/records [post]
func (h *MaintenanceHandler) OpenRecord(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.OpenMaintenanceRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	record, err := h.maintenance.OpenRecord(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// Record godoc
// @Summary Get a repair record
// @Tags Maintenance
// @Produce json
// @Param id path string true "Record ID"
// @Success 200 {object} response.Envelope
// @Router /maintenance/records/{id} [get]
func (h *MaintenanceHandler) Record(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	record, err := h.maintenance.Record(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// AssetRecords godoc
// @Summary List repair records of an asset
// @Tags Maintenance
// @Produce json
// @Param id path string true "Asset ID"
// @Success 200 {object} response.Envelope
// @Router /assets/{id}/maintenance-records [get]
func (h *MaintenanceHandler) AssetRecords(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	records, err := h.maintenance.AssetRecords(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}
