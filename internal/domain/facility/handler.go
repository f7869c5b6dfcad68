package facility

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carebook/carebook/internal/platform/apperrors"
	"github.com/carebook/carebook/internal/platform/auth"
	"github.com/carebook/carebook/pkg/pagination"
	"github.com/carebook/carebook/pkg/respond"
)

type Handler struct {
	svc      *Service
	validate *validator.Validate
	dev      bool
}

func NewHandler(svc *Service, dev bool) *Handler {
	return &Handler{svc: svc, validate: validator.New(), dev: dev}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/facilities")
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.GET("/:id/time-slots", h.AvailableSlots)
	g.GET("/:id/services", h.ListServices)

	admin := api.Group("/facilities", auth.RequireRole(auth.RoleFacilityAdmin))
	admin.POST("", h.Create)
	admin.PUT("/:id", h.Update)
	admin.PATCH("/:id/deactivate", h.Deactivate)
	admin.POST("/:id/services", h.CreateService)
}

type facilityRequest struct {
	Name    string      `json:"name" validate:"required"`
	Type    string      `json:"type" validate:"required,oneof=hospital pharmacy"`
	Address string      `json:"address" validate:"required"`
	City    string      `json:"city" validate:"required"`
	Phone   *string     `json:"phone"`
	Email   *string     `json:"email" validate:"omitempty,email"`
	Hours   WeeklyHours `json:"hours"`
}

func (h *Handler) Create(c echo.Context) error {
	var req facilityRequest
	if err := c.Bind(&req); err != nil {
		return respond.Fail(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := h.validate.Struct(&req); err != nil {
		return respond.Fail(c, http.StatusBadRequest, "Name, type, address and city are required")
	}

	f := &Facility{
		Name:    req.Name,
		Type:    req.Type,
		Address: req.Address,
		City:    req.City,
		Phone:   req.Phone,
		Email:   req.Email,
		Hours:   req.Hours,
	}
	if err := h.svc.CreateFacility(c.Request().Context(), f); err != nil {
		return apperrors.Render(c, err, h.dev)
	}
	return respond.OK(c, http.StatusCreated, "Facility created successfully", f)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respond.Fail(c, http.StatusBadRequest, "Invalid facility ID format")
	}
	f, err := h.svc.GetFacility(c.Request().Context(), id)
	if err != nil {
		return apperrors.Render(c, err, h.dev)
	}
	return respond.OK(c, http.StatusOK, "", f)
}

func (h *Handler) List(c echo.Context) error {
	pg, ok := pagination.FromContext(c)
	if !ok {
		return respond.Fail(c, http.StatusBadRequest, "Invalid pagination parameters")
	}
	items, total, err := h.svc.ListFacilities(c.Request().Context(), pg.Limit, pg.Offset())
	if err != nil {
		return apperrors.Render(c, err, h.dev)
	}
	return respond.OK(c, http.StatusOK, "", map[string]interface{}{
		"facilities": items,
		"pagination": pagination.NewResponse(pg, len(items), total),
	})
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respond.Fail(c, http.StatusBadRequest, "Invalid facility ID format")
	}
	f, err := h.svc.GetFacility(c.Request().Context(), id)
	if err != nil {
		return apperrors.Render(c, err, h.dev)
	}

	var req facilityRequest
	if err := c.Bind(&req); err != nil {
		return respond.Fail(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := h.validate.Struct(&req); err != nil {
		return respond.Fail(c, http.StatusBadRequest, "Name, type, address and city are required")
	}

	f.Name = req.Name
	f.Type = req.Type
	f.Address = req.Address
	f.City = req.City
	f.Phone = req.Phone
	f.Email = req.Email
	f.Hours = req.Hours

	if err := h.svc.UpdateFacility(c.Request().Context(), f); err != nil {
		return apperrors.Render(c, err, h.dev)
	}
	return respond.OK(c, http.StatusOK, "Facility updated successfully", f)
}

func (h *Handler) Deactivate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respond.Fail(c, http.StatusBadRequest, "Invalid facility ID format")
	}
	if err := h.svc.DeactivateFacility(c.Request().Context(), id); err != nil {
		return apperrors.Render(c, err, h.dev)
	}
	return respond.OK(c, http.StatusOK, "Facility deactivated successfully", nil)
}

func (h *Handler) AvailableSlots(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respond.Fail(c, http.StatusBadRequest, "Invalid facility ID format")
	}
	raw := c.QueryParam("date")
	if raw == "" {
		return respond.Fail(c, http.StatusBadRequest, "Date is required (format: YYYY-MM-DD)")
	}
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return respond.Fail(c, http.StatusBadRequest, "Invalid date format")
	}

	av, err := h.svc.AvailableSlots(c.Request().Context(), id, date)
	if err != nil {
		return apperrors.Render(c, err, h.dev)
	}
	if av.Closed {
		return respond.OK(c, http.StatusOK, "Facility is closed on this day", av)
	}
	return respond.OK(c, http.StatusOK, "", av)
}

type careServiceRequest struct {
	Name        string  `json:"name" validate:"required"`
	Category    *string `json:"category"`
	StockStatus string  `json:"stock_status" validate:"omitempty,oneof=in_stock low_stock out_of_stock"`
}

func (h *Handler) CreateService(c echo.Context) error {
	facilityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respond.Fail(c, http.StatusBadRequest, "Invalid facility ID format")
	}
	var req careServiceRequest
	if err := c.Bind(&req); err != nil {
		return respond.Fail(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := h.validate.Struct(&req); err != nil {
		return respond.Fail(c, http.StatusBadRequest, "Name is required")
	}

	cs := &CareService{
		FacilityID:  facilityID,
		Name:        req.Name,
		Category:    req.Category,
		StockStatus: req.StockStatus,
	}
	if err := h.svc.CreateCareService(c.Request().Context(), cs); err != nil {
		return apperrors.Render(c, err, h.dev)
	}
	return respond.OK(c, http.StatusCreated, "Service created successfully", cs)
}

func (h *Handler) ListServices(c echo.Context) error {
	facilityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respond.Fail(c, http.StatusBadRequest, "Invalid facility ID format")
	}
	pg, ok := pagination.FromContext(c)
	if !ok {
		return respond.Fail(c, http.StatusBadRequest, "Invalid pagination parameters")
	}
	items, total, err := h.svc.ListCareServices(c.Request().Context(), facilityID, pg.Limit, pg.Offset())
	if err != nil {
		return apperrors.Render(c, err, h.dev)
	}
	return respond.OK(c, http.StatusOK, "", map[string]interface{}{
		"services":   items,
		"pagination": pagination.NewResponse(pg, len(items), total),
	})
}
