package service

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nbaparkdev/assettrack-ti/internal/models"
	appErrors "github.com/nbaparkdev/assettrack-ti/pkg/errors"
)

type orgStore interface {
	ListDepartments(ctx context.Context) ([]models.Department, error)
	CreateDepartment(ctx context.Context, d *models.Department) error
	ListLocations(ctx context.Context) ([]models.Location, error)
	CreateLocation(ctx context.Context, l *models.Location) error
	ListStorageBins(ctx context.Context, locationID string) ([]models.StorageBin, error)
	CreateStorageBin(ctx context.Context, b *models.StorageBin) error
}

// CreateDepartmentRequest payload for adding a department.
type CreateDepartmentRequest struct {
	Name string `json:"name" validate:"required,min=2,max=120"`
}

// CreateLocationRequest payload for adding a physical site.
type CreateLocationRequest struct {
	Name    string  `json:"name" validate:"required,min=2,max=120"`
	Address *string `json:"address,omitempty" validate:"omitempty,max=255"`
}

// CreateStorageBinRequest payload for adding a bin inside a location.
type CreateStorageBinRequest struct {
	LocationID string `json:"location_id" validate:"required,uuid"`
	Code       string `json:"code" validate:"required,min=1,max=32"`
}

// OrgService manages the department, location and storage bin catalog.
type OrgService struct {
	repo     orgStore
	validate *validator.Validate
	logger   *zap.Logger
}

// NewOrgService constructs the service.
func NewOrgService(repo orgStore, validate *validator.Validate, logger *zap.Logger) *OrgService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrgService{repo: repo, validate: validate, logger: logger}
}

// Departments lists all departments.
func (s *OrgService) Departments(ctx context.Context) ([]models.Department, error) {
	return s.repo.ListDepartments(ctx)
}

// CreateDepartment adds a department. Admin only.
func (s *OrgService) CreateDepartment(ctx context.Context, req CreateDepartmentRequest, actor *models.JWTClaims) (*models.Department, error) {
	if actor == nil || actor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only admins manage the catalog")
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid department payload")
	}

	department := &models.Department{ID: uuid.NewString(), Name: req.Name}
	if err := s.repo.CreateDepartment(ctx, department); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to create department")
	}
	return department, nil
}

// Locations lists all physical sites.
func (s *OrgService) Locations(ctx context.Context) ([]models.Location, error) {
	return s.repo.ListLocations(ctx)
}

// CreateLocation adds a physical site. Admin only.
func (s *OrgService) CreateLocation(ctx context.Context, req CreateLocationRequest, actor *models.JWTClaims) (*models.Location, error) {
	if actor == nil || actor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only admins manage the catalog")
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid location payload")
	}

	location := &models.Location{ID: uuid.NewString(), Name: req.Name, Address: req.Address}
	if err := s.repo.CreateLocation(ctx, location); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to create location")
	}
	return location, nil
}

// StorageBins lists bins for one location.
func (s *OrgService) StorageBins(ctx context.Context, locationID string) ([]models.StorageBin, error) {
	return s.repo.ListStorageBins(ctx, locationID)
}

// CreateStorageBin adds a bin. Admin only.
func (s *OrgService) CreateStorageBin(ctx context.Context, req CreateStorageBinRequest, actor *models.JWTClaims) (*models.StorageBin, error) {
	if actor == nil || actor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only admins manage the catalog")
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid storage bin payload")
	}

	bin := &models.StorageBin{ID: uuid.NewString(), LocationID: req.LocationID, Code: req.Code}
	if err := s.repo.CreateStorageBin(ctx, bin); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to create storage bin")
	}
	return bin, nil
}
