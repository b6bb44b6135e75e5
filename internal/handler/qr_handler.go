package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nbaparkdev/assettrack-ti/internal/dto"
	"github.com/nbaparkdev/assettrack-ti/internal/service"
	appErrors "github.com/nbaparkdev/assettrack-ti/pkg/errors"
	"github.com/nbaparkdev/assettrack-ti/pkg/response"
)

// QRHandler exposes badge and PIN endpoints.
type QRHandler struct {
	qr *service.QRService
}

// NewQRHandler constructs QRHandler.
func NewQRHandler(qr *service.QRService) *QRHandler {
	return &QRHandler{qr: qr}
}

// Badge godoc
// @Summary Get the current user's badge image
// @Tags QR
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /qr/badge [get]
func (h *QRHandler) Badge(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	badge, err := h.qr.Badge(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, badge, nil)
}

// Regenerate godoc
// @Summary Issue a fresh badge token
// @Description Users regenerate their own badge; admins can regenerate anyone's
// @Tags QR
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /users/{id}/qr/regenerate [post]
func (h *QRHandler) Regenerate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	badge, err := h.qr.Regenerate(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, badge, nil)
}

// SetupPIN godoc
// @Summary Set the personal PIN for the first time
// @Tags QR
// @Accept json
// @Produce json
// @Param payload body dto.SetupPINRequest true "PIN payload"
// @Success 204 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /qr/pin [post]
func (h *QRHandler) SetupPIN(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.SetupPINRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	if err := h.qr.SetupPIN(c.Request.Context(), req, claims, c.ClientIP(), c.GetHeader("User-Agent")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ChangePIN godoc
// @Summary Rotate the personal PIN
// @Tags QR
// @Accept json
// @Produce json
// @Param payload body dto.ChangePINRequest true "PIN payload"
// @Success 204 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /qr/pin [put]
func (h *QRHandler) ChangePIN(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.ChangePINRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	if err := h.qr.ChangePIN(c.Request.Context(), req, claims, c.ClientIP(), c.GetHeader("User-Agent")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Profile godoc
// @Summary Public profile behind a scanned badge
// @Description No authentication required; every lookup is logged
// @Tags QR
// @Produce json
// @Param token path string true "Badge token"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /qr/{token}/profile [get]
func (h *QRHandler) Profile(c *gin.Context) {
	profile, err := h.qr.Profile(c.Request.Context(), c.Param("token"), c.ClientIP(), c.GetHeader("User-Agent"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// PendingDeliveries godoc
// @Summary Handovers waiting on a badge owner
// @Description Staff scan a badge at the counter to see what is ready for handover
// @Tags QR
// @Produce json
// @Param token path string true "Badge token"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Router /qr/{token}/deliveries [get]
func (h *QRHandler) PendingDeliveries(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	pending, err := h.qr.PendingDeliveries(c.Request.Context(), c.Param("token"), c.ClientIP(), c.GetHeader("User-Agent"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pending, nil)
}

// UsageLog godoc
// @Summary Badge usage history
// @Description Users see their own log; managers and admins can inspect anyone's
// @Tags QR
// @Produce json
// @Param id path string true "User ID"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /users/{id}/qr/usage [get]
func (h *QRHandler) UsageLog(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	entries, err := h.qr.UsageLog(c.Request.Context(), c.Param("id"), limit, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}
