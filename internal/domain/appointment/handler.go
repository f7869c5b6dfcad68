package appointment

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
	"github.com/carebook/carebook/pkg/timeslot"
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
	user := api.Group("/appointments", auth.RequireRole(auth.RoleUser))
	user.POST("", h.Book)
	user.GET("", h.ListMine)
	user.GET("/:id", h.ListMine)
	user.PUT("/:id", h.Reschedule)
	user.DELETE("/:id", h.Cancel)

	admin := api.Group("/appointments", auth.RequireRole(auth.RoleFacilityAdmin))
	admin.GET("/facility", h.ListFacility)
	admin.PUT("/:id/status", h.UpdateStatus)
}

type bookRequest struct {
	FacilityID string        `json:"facility" validate:"required"`
	ServiceID  string        `json:"service" validate:"required"`
	Date       string        `json:"appointmentDate" validate:"required"`
	Slot       timeslot.Slot `json:"timeSlot" validate:"required"`
	Reason     string        `json:"reason" validate:"required"`
}

func (h *Handler) Book(c echo.Context) error {
	var req bookRequest
	if err := c.Bind(&req); err != nil {
		return respond.Fail(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := h.validate.Struct(&req); err != nil {
		return respond.Fail(c, http.StatusBadRequest, "Facility, service, date, time slot and reason are required")
	}
	facilityID, err := uuid.Parse(req.FacilityID)
	if err != nil {
		return respond.Fail(c, http.StatusBadRequest, "Invalid facility or service ID format")
	}
	serviceID, err := uuid.Parse(req.ServiceID)
	if err != nil {
		return respond.Fail(c, http.StatusBadRequest, "Invalid facility or service ID format")
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return respond.Fail(c, http.StatusBadRequest, "Invalid date format")
	}

	in := BookInput{
		FacilityID: facilityID,
		ServiceID:  serviceID,
		Date:       date,
		Slot:       req.Slot,
		Reason:     req.Reason,
		UserEmail:  auth.EmailFromContext(c.Request().Context()),
	}
	a, err := h.svc.Book(c.Request().Context(), auth.UserIDFromContext(c.Request().Context()), in)
	if err != nil {
		return apperrors.Render(c, err, h.dev)
	}
	return respond.OK(c, http.StatusCreated, "Appointment booked successfully", a)
}

func (h *Handler) ListMine(c echo.Context) error {
	pg, ok := pagination.FromContext(c)
	if !ok {
		return respond.Fail(c, http.StatusBadRequest, "Invalid pagination parameters")
	}
	status := c.QueryParam("status")

	items, total, err := h.svc.ListForUser(c.Request().Context(), auth.UserIDFromContext(c.Request().Context()), status, pg.Limit, pg.Offset())
	if err != nil {
		return apperrors.Render(c, err, h.dev)
	}
	return respond.OK(c, http.StatusOK, "", map[string]interface{}{
		"appointments": items,
		"pagination":   pagination.NewResponse(pg, len(items), total),
	})
}

type rescheduleRequest struct {
	Date string        `json:"appointmentDate" validate:"required"`
	Slot timeslot.Slot `json:"timeSlot" validate:"required"`
}

func (h *Handler) Reschedule(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respond.Fail(c, http.StatusBadRequest, "Invalid appointment ID format")
	}
	var req rescheduleRequest
	if err := c.Bind(&req); err != nil {
		return respond.Fail(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := h.validate.Struct(&req); err != nil {
		return respond.Fail(c, http.StatusBadRequest, "Date and time slot are required")
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return respond.Fail(c, http.StatusBadRequest, "Invalid date format")
	}

	a, err := h.svc.Reschedule(c.Request().Context(), auth.UserIDFromContext(c.Request().Context()), id, RescheduleInput{Date: date, Slot: req.Slot})
	if err != nil {
		return apperrors.Render(c, err, h.dev)
	}
	return respond.OK(c, http.StatusOK, "Appointment rescheduled successfully", a)
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respond.Fail(c, http.StatusBadRequest, "Invalid appointment ID format")
	}
	if _, err := h.svc.Cancel(c.Request().Context(), auth.UserIDFromContext(c.Request().Context()), id); err != nil {
		return apperrors.Render(c, err, h.dev)
	}
	return respond.OK(c, http.StatusOK, "Appointment cancelled successfully", nil)
}

func (h *Handler) ListFacility(c echo.Context) error {
	facilityID, err := uuid.Parse(auth.FacilityIDFromContext(c.Request().Context()))
	if err != nil {
		return respond.Fail(c, http.StatusForbidden, "No facility associated with this account")
	}
	pg, ok := pagination.FromContext(c)
	if !ok {
		return respond.Fail(c, http.StatusBadRequest, "Invalid pagination parameters")
	}
	status := c.QueryParam("status")

	var date *time.Time
	if raw := c.QueryParam("date"); raw != "" {
		d, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return respond.Fail(c, http.StatusBadRequest, "Invalid date format")
		}
		date = &d
	}

	listing, err := h.svc.ListForFacility(c.Request().Context(), facilityID, status, date, pg.Limit, pg.Offset())
	if err != nil {
		return apperrors.Render(c, err, h.dev)
	}
	return respond.OK(c, http.StatusOK, "", map[string]interface{}{
		"appointments": listing.Appointments,
		"stats":        listing.Stats,
		"pagination":   pagination.NewResponse(pg, len(listing.Appointments), listing.Total),
	})
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respond.Fail(c, http.StatusBadRequest, "Invalid appointment ID format")
	}
	facilityID, err := uuid.Parse(auth.FacilityIDFromContext(c.Request().Context()))
	if err != nil {
		return respond.Fail(c, http.StatusForbidden, "No facility associated with this account")
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return respond.Fail(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := h.validate.Struct(&req); err != nil {
		return respond.Fail(c, http.StatusBadRequest, "Status is required")
	}

	a, err := h.svc.UpdateStatus(c.Request().Context(), facilityID, id, req.Status)
	if err != nil {
		return apperrors.Render(c, err, h.dev)
	}
	return respond.OK(c, http.StatusOK, "Appointment status updated successfully", a)
}
