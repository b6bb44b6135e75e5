package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nbaparkdev/assettrack-ti/internal/service"
	appErrors "github.com/nbaparkdev/assettrack-ti/pkg/errors"
	"github.com/nbaparkdev/assettrack-ti/pkg/response"
)

// OrgHandler exposes the department, location and storage bin catalog.
type OrgHandler struct {
	org *service.OrgService
}

// NewOrgHandler constructs OrgHandler.
func NewOrgHandler(org *service.OrgService) *OrgHandler {
	return &OrgHandler{org: org}
}

// Departments godoc
// @Summary List departments
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /departments [get]
func (h *OrgHandler) Departments(c *gin.Context) {
	departments, err := h.org.Departments(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, departments, nil)
}

// CreateDepartment godoc
// @Summary Add a department
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body service.CreateDepartmentRequest true "Department payload"
// @Success 201 {object} response.Envelope
// @Router /departments [post]
func (h *OrgHandler) CreateDepartment(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateDepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	department, err := h.org.CreateDepartment(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, department)
}

// Locations godoc
// @Summary List locations
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /locations [get]
func (h *OrgHandler) Locations(c *gin.Context) {
	locations, err := h.org.Locations(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, locations, nil)
}

// CreateLocation godoc
// @Summary Add a location
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body service.CreateLocationRequest true "Location payload"
// @Success 201 {object} response.Envelope
// @Router /locations [post]
func (h *OrgHandler) CreateLocation(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	location, err := h.org.CreateLocation(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, location)
}

// StorageBins godoc
// @Summary List storage bins of a location
// @Tags Catalog
// @Produce json
// @Param id path string true "Location ID"
// @Success 200 {object} response.Envelope
// @Router /locations/{id}/bins [get]
func (h *OrgHandler) StorageBins(c *gin.Context) {
	bins, err := h.org.StorageBins(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bins, nil)
}

// CreateStorageBin godoc
// @Summary Add a storage bin
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body service.CreateStorageBinRequest true "Bin payload"
// @Success 201 {object} response.Envelope
// @Router /storage-bins [post]
func (h *OrgHandler) CreateStorageBin(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateStorageBinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	bin, err := h.org.CreateStorageBin(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, bin)
}
