package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/nbaparkdev/assettrack-ti/internal/middleware"
	"github.com/nbaparkdev/assettrack-ti/internal/models"
	"github.com/nbaparkdev/assettrack-ti/internal/service"
)

type fakeOrgStore struct {
	departments []models.Department
	locations   []models.Location
	bins        []models.StorageBin
}

func (f *fakeOrgStore) ListDepartments(context.Context) ([]models.Department, error) {
	return f.departments, nil
}

func (f *fakeOrgStore) CreateDepartment(_ context.Context, d *models.Department) error {
	f.departments = append(f.departments, *d)
	return nil
}

func (f *fakeOrgStore) ListLocations(context.Context) ([]models.Location, error) {
	return f.locations, nil
}

func (f *fakeOrgStore) CreateLocation(_ context.Context, l *models.Location) error {
	f.locations = append(f.locations, *l)
	return nil
}

func (f *fakeOrgStore) ListStorageBins(_ context.Context, locationID string) ([]models.StorageBin, error) {
	var out []models.StorageBin
	for _, b := range f.bins {
		if b.LocationID == locationID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeOrgStore) CreateStorageBin(_ context.Context, b *models.StorageBin) error {
	f.bins = append(f.bins, *b)
	return nil
}

func newOrgHandler(store *fakeOrgStore) *OrgHandler {
	return NewOrgHandler(service.NewOrgService(store, validator.New(), nil))
}

func TestOrgHandlerListsDepartments(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newOrgHandler(&fakeOrgStore{departments: []models.Department{{ID: "d1", Name: "TI"}}})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/departments", nil)

	handler.Departments(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data []models.Department `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	require.Equal(t, "TI", envelope.Data[0].Name)
}

func TestOrgHandlerCreateDepartmentForbiddenForUsers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newOrgHandler(&fakeOrgStore{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/departments", strings.NewReader(`{"name":"Finance"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Role: models.RoleUser})

	handler.CreateDepartment(c)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestOrgHandlerCreateDepartmentAsAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := &fakeOrgStore{}
	handler := newOrgHandler(store)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/departments", strings.NewReader(`{"name":"Finance"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "a1", Role: models.RoleAdmin})

	handler.CreateDepartment(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, store.departments, 1)
	require.NotEmpty(t, store.departments[0].ID)
}

func TestOrgHandlerCreateStorageBinValidatesPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newOrgHandler(&fakeOrgStore{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/storage-bins", strings.NewReader(`{"location_id":"not-a-uuid","code":"A1"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "a1", Role: models.RoleAdmin})

	handler.CreateStorageBin(c)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
