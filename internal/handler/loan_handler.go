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

// LoanHandler exposes the loan request workflow.
type LoanHandler struct {
	loans   *service.LoanService
	metrics *service.MetricsService
}

// NewLoanHandler constructs LoanHandler.
func NewLoanHandler(loans *service.LoanService, metrics *service.MetricsService) *LoanHandler {
	return &LoanHandler{loans: loans, metrics: metrics}
}

// Create godoc
// @Summary Request an equipment loan
// @Tags Loans
// @Accept json
// @Produce json
// @Param payload body dto.CreateLoanRequest true "Loan payload"
// @Success 201 {object} response.Envelope
// @Router /loans [post]
func (h *LoanHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.CreateLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	loan, err := h.loans.Create(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, loan)
}

// List godoc
// @Summary List loan requests
// @Description Regular users see only their own requests
// @Tags Loans
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param requester query string false "Filter by requester"
// @Param asset query string false "Filter by asset"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /loans [get]
func (h *LoanHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var query dto.LoanQuery
	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			query.Status = append(query.Status, models.LoanStatus(strings.ToUpper(strings.TrimSpace(s))))
		}
	}
	query.RequesterID = c.Query("requester")
	query.AssetID = c.Query("asset")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		query.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		query.PerPage = size
	}

	loans, err := h.loans.List(c.Request.Context(), query, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, loans, nil)
}

// Get godoc
// @Summary Get loan request detail
// @Tags Loans
// @Produce json
// @Param id path string true "Loan ID"
// @Success 200 {object} response.Envelope
// @Router /loans/{id} [get]
func (h *LoanHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	loan, err := h.loans.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, loan, nil)
}

// AssignAsset godoc
// @Summary Bind a concrete asset to an open loan
// @Tags Loans
// @Accept json
// @Produce json
// @Param id path string true "Loan ID"
// @Param payload body dto.AssignAssetRequest true "Assignment payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /loans/{id}/assign [post]
func (h *LoanHandler) AssignAsset(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.AssignAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	loan, err := h.loans.AssignAsset(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, loan, nil)
}

// Decide godoc
// @Summary Approve or reject a loan request
// @Tags Loans
// @Accept json
// @Produce json
// @Param id path string true "Loan ID"
// @Param payload body dto.DecideLoanRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /loans/{id}/decision [post]
func (h *LoanHandler) Decide(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.DecideLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	loan, err := h.loans.Decide(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, loan, nil)
}

// Cancel godoc
// @Summary Cancel an own pending loan request
// @Tags Loans
// @Produce json
// @Param id path string true "Loan ID"
// @Success 204 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /loans/{id} [delete]
func (h *LoanHandler) Cancel(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.loans.Cancel(c.Request.Context(), c.Param("id"), claims); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ConfirmDelivery godoc
// @Summary Confirm handover of an approved loan
// @Description Identity is proven by the requester's badge token, or a manager override
// @Tags Loans
// @Accept json
// @Produce json
// @Param id path string true "Loan ID"
// @Param payload body dto.ConfirmLoanDeliveryRequest true "Delivery payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /loans/{id}/delivery [post]
func (h *LoanHandler) ConfirmDelivery(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.ConfirmLoanDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	loan, err := h.loans.ConfirmDelivery(c.Request.Context(), c.Param("id"), req, claims, c.ClientIP(), c.GetHeader("User-Agent"))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.ObserveHandover("loan", req.QRToken != nil)

	response.JSON(c, http.StatusOK, loan, nil)
}
