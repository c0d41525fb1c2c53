package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Cheertaboi/hotel-discount-service/internal/api/middleware"
	"github.com/Cheertaboi/hotel-discount-service/internal/models"
	"github.com/Cheertaboi/hotel-discount-service/internal/service"
)

// --- Request DTOs ---

type DiscountRequest struct {
	Code       string   `json:"code"`
	Percentage *int     `json:"percentage"`
	Quantity   *int     `json:"quantity,omitempty"`
	StartDate  string   `json:"startDate,omitempty"` // RFC3339 or YYYY-MM-DD
	EndDate    string   `json:"endDate,omitempty"`   // RFC3339 or YYYY-MM-DD
	MinOrder   *float64 `json:"minOrder,omitempty"`
}

type ValidateRequestBody struct {
	Code        string  `json:"code"`
	TotalAmount float64 `json:"totalAmount"`
}

type UseRequestBody struct {
	Code string `json:"code"`
}

const maxRequestBody = 1 << 20 // 1 MiB

// --- Handler struct & constructor ---

type DiscountHandler struct {
	service *service.DiscountService
	logger  *zap.Logger
}

func NewDiscountHandler(svc *service.DiscountService, logger *zap.Logger) *DiscountHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiscountHandler{service: svc, logger: logger}
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeFail(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]interface{}{"success": false, "message": message})
}

// parseTimeOrEmpty accepts RFC3339 timestamps and plain dates from form
// inputs. Plain dates are midnight UTC.
func parseTimeOrEmpty(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (req DiscountRequest) fields() (models.DiscountFields, error) {
	start, err := parseTimeOrEmpty(req.StartDate)
	if err != nil {
		return models.DiscountFields{}, errors.New("invalid startDate; use RFC3339 or YYYY-MM-DD")
	}
	end, err := parseTimeOrEmpty(req.EndDate)
	if err != nil {
		return models.DiscountFields{}, errors.New("invalid endDate; use RFC3339 or YYYY-MM-DD")
	}
	return models.DiscountFields{
		Code:       req.Code,
		Percentage: req.Percentage,
		Quantity:   req.Quantity,
		StartDate:  start,
		EndDate:    end,
		MinOrder:   req.MinOrder,
	}, nil
}

func (h *DiscountHandler) caller(w http.ResponseWriter, r *http.Request) (models.Caller, bool) {
	caller, ok := middleware.CallerFrom(r.Context())
	if !ok {
		writeFail(w, http.StatusUnauthorized, "unauthorized")
	}
	return caller, ok
}

func (h *DiscountHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		writeFail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		writeFail(w, http.StatusNotFound, "Discount not found")
	case errors.Is(err, service.ErrConflict):
		writeFail(w, http.StatusConflict, "Discount code already exists")
	default:
		h.logger.Error("discount request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeFail(w, http.StatusInternalServerError, "internal error")
	}
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// --- Handlers ---

// ListDiscounts handles GET /api/discounts
func (h *DiscountHandler) ListDiscounts(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	items, err := h.service.List(r.Context(), caller)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "discounts": items})
}

// CreateDiscount handles POST /api/discounts
func (h *DiscountHandler) CreateDiscount(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req DiscountRequest
	if !decode(w, r, &req) {
		return
	}
	fields, err := req.fields()
	if err != nil {
		writeFail(w, http.StatusBadRequest, err.Error())
		return
	}

	d, err := h.service.Create(r.Context(), caller, fields)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"success": true, "discount": d})
}

// UpdateDiscount handles PUT /api/discounts/{id}
func (h *DiscountHandler) UpdateDiscount(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req DiscountRequest
	if !decode(w, r, &req) {
		return
	}
	fields, err := req.fields()
	if err != nil {
		writeFail(w, http.StatusBadRequest, err.Error())
		return
	}

	d, err := h.service.Update(r.Context(), caller, chi.URLParam(r, "id"), fields)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "discount": d})
}

// DeleteDiscount handles DELETE /api/discounts/{id}
func (h *DiscountHandler) DeleteDiscount(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), caller, chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Discount deleted"})
}

// ToggleDiscount handles PATCH /api/discounts/{id}/toggle
func (h *DiscountHandler) ToggleDiscount(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	d, err := h.service.ToggleActive(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "discount": d})
}

// ValidateDiscount handles POST /api/discounts/validate
// Business declines are answered with 200 and success=false.
func (h *DiscountHandler) ValidateDiscount(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequestBody
	if !decode(w, r, &req) {
		return
	}

	d, decline, err := h.service.ValidateForRedemption(r.Context(), req.Code, req.TotalAmount)
	h.writeEligibility(w, r, d, decline, err)
}

// ApplyDiscount handles POST /api/discounts/apply
// It validates and consumes one use atomically.
func (h *DiscountHandler) ApplyDiscount(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequestBody
	if !decode(w, r, &req) {
		return
	}

	d, decline, err := h.service.Apply(r.Context(), req.Code, req.TotalAmount)
	h.writeEligibility(w, r, d, decline, err)
}

// UseDiscount handles POST /api/discounts/use
func (h *DiscountHandler) UseDiscount(w http.ResponseWriter, r *http.Request) {
	var req UseRequestBody
	if !decode(w, r, &req) {
		return
	}

	if err := h.service.Redeem(r.Context(), req.Code); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Discount used"})
}

func (h *DiscountHandler) writeEligibility(w http.ResponseWriter, r *http.Request, d *models.DiscountCode, decline *models.Decline, err error) {
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if decline != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": false,
			"reason":  decline.Reason,
			"message": decline.Message,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "discount": d})
}
