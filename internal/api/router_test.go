package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cheertaboi/hotel-discount-service/internal/api/middleware"
	"github.com/Cheertaboi/hotel-discount-service/internal/models"
	"github.com/Cheertaboi/hotel-discount-service/internal/repository/repotest"
	"github.com/Cheertaboi/hotel-discount-service/internal/service"
)

const testSecret = "router-test-secret"

type apiResponse struct {
	Success   bool                  `json:"success"`
	Message   string                `json:"message"`
	Reason    string                `json:"reason"`
	Discount  *models.DiscountCode  `json:"discount"`
	Discounts []models.DiscountCode `json:"discounts"`
}

type testServer struct {
	t      *testing.T
	router http.Handler
	repo   *repotest.MemoryRepo
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	repo := repotest.NewMemoryRepo()
	svc := service.NewDiscountService(repo, repo, nil)
	return &testServer{t: t, router: NewRouter(svc, testSecret, nil), repo: repo}
}

func (s *testServer) do(caller *models.Caller, method, path string, body interface{}) (int, apiResponse) {
	s.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if caller != nil {
		token, err := middleware.SignToken(testSecret, *caller, time.Hour)
		require.NoError(s.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var resp apiResponse
	if rec.Body.Len() > 0 {
		require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	}
	return rec.Code, resp
}

var (
	adminCaller = &models.Caller{ID: "admin-1", Role: models.RoleAdmin}
	ownerCaller = &models.Caller{ID: "owner-1", Role: models.RoleOwner}
	otherOwner  = &models.Caller{ID: "owner-2", Role: models.RoleOwner}
)

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.do(ownerCaller, http.MethodGet, "/api/discounts", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "discount_http_request_duration_seconds")
}

func TestUnmatchedPathsShareOneSeries(t *testing.T) {
	s := newTestServer(t)
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/scan-%d", i), nil)
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	body := rec.Body.String()
	assert.NotContains(t, body, `route="/scan-`)
	assert.Contains(t, body, `route="unmatched"`)
}

func TestDiscountRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	status, resp := s.do(nil, http.MethodGet, "/api/discounts", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.False(t, resp.Success)
}

func TestCreateAndList(t *testing.T) {
	s := newTestServer(t)

	status, resp := s.do(ownerCaller, http.MethodPost, "/api/discounts", map[string]interface{}{
		"code":       "save20",
		"percentage": 20,
		"quantity":   5,
		"startDate":  "2026-01-01",
		"endDate":    "2099-01-01T00:00:00Z",
		"minOrder":   150000,
	})
	require.Equal(t, http.StatusCreated, status)
	require.True(t, resp.Success)
	require.NotNil(t, resp.Discount)
	assert.Equal(t, "SAVE20", resp.Discount.Code)
	assert.True(t, resp.Discount.IsActive)
	assert.Equal(t, 0, resp.Discount.UsedCount)
	assert.Equal(t, 5, *resp.Discount.Quantity)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), resp.Discount.StartDate.UTC())

	s.do(otherOwner, http.MethodPost, "/api/discounts", map[string]interface{}{"code": "OTHER", "percentage": 10})

	status, resp = s.do(ownerCaller, http.MethodGet, "/api/discounts", nil)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, resp.Discounts, 1)
	assert.Equal(t, "SAVE20", resp.Discounts[0].Code)

	status, resp = s.do(adminCaller, http.MethodGet, "/api/discounts/", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, resp.Discounts, 2)
}

func TestCreateErrors(t *testing.T) {
	s := newTestServer(t)

	status, resp := s.do(ownerCaller, http.MethodPost, "/api/discounts", map[string]interface{}{"percentage": 20})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, resp.Success)

	status, _ = s.do(ownerCaller, http.MethodPost, "/api/discounts", map[string]interface{}{"code": "X", "percentage": 10, "endDate": "soon"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.do(ownerCaller, http.MethodPost, "/api/discounts", map[string]interface{}{"code": "dup", "percentage": 10})
	require.Equal(t, http.StatusCreated, status)
	status, resp = s.do(otherOwner, http.MethodPost, "/api/discounts", map[string]interface{}{"code": "DUP", "percentage": 10})
	assert.Equal(t, http.StatusConflict, status)
	assert.False(t, resp.Success)
}

func TestForeignRecordsAreNotFound(t *testing.T) {
	s := newTestServer(t)

	_, created := s.do(ownerCaller, http.MethodPost, "/api/discounts", map[string]interface{}{"code": "MINE", "percentage": 10})
	id := created.Discount.ID

	status, resp := s.do(otherOwner, http.MethodPut, "/api/discounts/"+id, map[string]interface{}{"code": "HIJACK", "percentage": 99})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Nil(t, resp.Discount)
	assert.Equal(t, "Discount not found", resp.Message)

	status, resp = s.do(otherOwner, http.MethodPatch, "/api/discounts/"+id+"/toggle", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Nil(t, resp.Discount)

	status, _ = s.do(otherOwner, http.MethodDelete, "/api/discounts/"+id, nil)
	assert.Equal(t, http.StatusNotFound, status)

	stored, ok := s.repo.Get(id)
	require.True(t, ok)
	assert.Equal(t, "MINE", stored.Code)
}

func TestUpdateToggleDelete(t *testing.T) {
	s := newTestServer(t)

	_, created := s.do(ownerCaller, http.MethodPost, "/api/discounts", map[string]interface{}{"code": "EDIT", "percentage": 10})
	id := created.Discount.ID

	status, resp := s.do(ownerCaller, http.MethodPut, "/api/discounts/"+id, map[string]interface{}{"code": "edited", "percentage": 15})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "EDITED", resp.Discount.Code)
	assert.Equal(t, 15, resp.Discount.Percentage)

	status, resp = s.do(ownerCaller, http.MethodPatch, "/api/discounts/"+id+"/toggle", nil)
	require.Equal(t, http.StatusOK, status)
	assert.False(t, resp.Discount.IsActive)

	status, resp = s.do(adminCaller, http.MethodPatch, "/api/discounts/"+id+"/toggle", nil)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, resp.Discount.IsActive)

	status, resp = s.do(adminCaller, http.MethodDelete, "/api/discounts/"+id, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Discount deleted", resp.Message)

	_, ok := s.repo.Get(id)
	assert.False(t, ok)
}

func TestValidateAndUse(t *testing.T) {
	s := newTestServer(t)

	s.do(ownerCaller, http.MethodPost, "/api/discounts", map[string]interface{}{
		"code": "SAVE20", "percentage": 20, "minOrder": 150000, "quantity": 1,
	})

	status, resp := s.do(ownerCaller, http.MethodPost, "/api/discounts/validate", map[string]interface{}{"code": "save20", "totalAmount": 100000})
	require.Equal(t, http.StatusOK, status)
	assert.False(t, resp.Success)
	assert.Equal(t, "Minimum order not met", resp.Message)
	assert.Equal(t, string(models.DeclineMinOrderNotMet), resp.Reason)

	status, resp = s.do(ownerCaller, http.MethodPost, "/api/discounts/validate", map[string]interface{}{"code": "save20", "totalAmount": 200000})
	require.Equal(t, http.StatusOK, status)
	assert.True(t, resp.Success)
	assert.Equal(t, "SAVE20", resp.Discount.Code)

	status, resp = s.do(ownerCaller, http.MethodPost, "/api/discounts/use", map[string]interface{}{"code": "save20"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Discount used", resp.Message)

	status, resp = s.do(ownerCaller, http.MethodPost, "/api/discounts/validate", map[string]interface{}{"code": "SAVE20", "totalAmount": 200000})
	require.Equal(t, http.StatusOK, status)
	assert.False(t, resp.Success)
	assert.Equal(t, "Discount limit reached", resp.Message)

	status, resp = s.do(ownerCaller, http.MethodPost, "/api/discounts/validate", map[string]interface{}{"code": "NOPE", "totalAmount": 1})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Invalid discount code", resp.Message)

	status, _ = s.do(ownerCaller, http.MethodPost, "/api/discounts/use", map[string]interface{}{"code": "NOPE"})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestApply(t *testing.T) {
	s := newTestServer(t)

	_, created := s.do(adminCaller, http.MethodPost, "/api/discounts", map[string]interface{}{"code": "ONCE", "percentage": 50, "quantity": 1})

	status, resp := s.do(ownerCaller, http.MethodPost, "/api/discounts/apply", map[string]interface{}{"code": "once", "totalAmount": 10})
	require.Equal(t, http.StatusOK, status)
	require.True(t, resp.Success)
	assert.Equal(t, 1, resp.Discount.UsedCount)

	status, resp = s.do(ownerCaller, http.MethodPost, "/api/discounts/apply", map[string]interface{}{"code": "once", "totalAmount": 10})
	require.Equal(t, http.StatusOK, status)
	assert.False(t, resp.Success)
	assert.Equal(t, string(models.DeclineQuotaExhausted), resp.Reason)

	stored, _ := s.repo.Get(created.Discount.ID)
	assert.Equal(t, 1, stored.UsedCount)
}

func TestMalformedBody(t *testing.T) {
	s := newTestServer(t)

	token, err := middleware.SignToken(testSecret, *ownerCaller, time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/discounts/validate", bytes.NewBufferString("{"))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"invalid request body"}`, rec.Body.String())
}

func TestOversizedBodyIsRejected(t *testing.T) {
	s := newTestServer(t)

	token, err := middleware.SignToken(testSecret, *ownerCaller, time.Hour)
	require.NoError(t, err)
	body := `{"code":"` + strings.Repeat("A", 2<<20) + `","percentage":10}`
	req := httptest.NewRequest(http.MethodPost, "/api/discounts", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"invalid request body"}`, rec.Body.String())
	items, _ := s.repo.List(req.Context(), nil)
	assert.Empty(t, items)
}

func TestStoreFailureIsOpaque(t *testing.T) {
	s := newTestServer(t)
	s.repo.FailWith(errors.New("boom"))

	token, err := middleware.SignToken(testSecret, *ownerCaller, time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/discounts", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"internal error"}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "boom")
}
