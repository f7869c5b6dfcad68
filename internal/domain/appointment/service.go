package appointment

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/carebook/carebook/internal/domain/facility"
	"github.com/carebook/carebook/internal/platform/apperrors"
	"github.com/carebook/carebook/internal/platform/events"
	"github.com/carebook/carebook/internal/platform/notification"
	"github.com/carebook/carebook/pkg/timeslot"
)

// CatalogGateway is the booking flow's view of the facility catalog.
type CatalogGateway interface {
	Facility(ctx context.Context, id uuid.UUID) (*facility.Facility, bool, error)
	Service(ctx context.Context, id uuid.UUID) (*facility.CareService, bool, error)
}

type Service struct {
	repo    Repository
	avail   *Availability
	catalog CatalogGateway
	notify  *notification.Dispatcher
	events  events.Publisher
	now     func() time.Time
}

func NewService(repo Repository, catalog CatalogGateway, notify *notification.Dispatcher, pub events.Publisher) *Service {
	return &Service{
		repo:    repo,
		avail:   NewAvailability(repo),
		catalog: catalog,
		notify:  notify,
		events:  pub,
		now:     time.Now,
	}
}

// BookInput carries a validated booking request.
type BookInput struct {
	FacilityID uuid.UUID
	ServiceID  uuid.UUID
	Date       time.Time
	Slot       timeslot.Slot
	Reason     string
	UserEmail  string
}

// Book creates a pending appointment after running the full conflict check
// chain. The store's unique indexes back up the checks under concurrency.
func (s *Service) Book(ctx context.Context, userID string, in BookInput) (*Appointment, error) {
	if !in.Slot.Valid() {
		return nil, apperrors.Validationf("Invalid time slot: end time must be after start time")
	}
	reason := strings.TrimSpace(in.Reason)
	if n := utf8.RuneCountInString(reason); n < 5 || n > 500 {
		return nil, apperrors.Validationf("Reason must be between 5 and 500 characters")
	}

	if err := s.avail.CheckUserCapacity(ctx, userID); err != nil {
		return nil, err
	}

	f, ok, err := s.catalog.Facility(ctx, in.FacilityID)
	if err != nil {
		return nil, apperrors.Internal("Error booking appointment", err)
	}
	if !ok {
		return nil, apperrors.NotFoundf("Facility not found or inactive")
	}
	if !f.Active {
		return nil, apperrors.Conflictf("Facility not found or inactive")
	}

	cs, ok, err := s.catalog.Service(ctx, in.ServiceID)
	if err != nil {
		return nil, apperrors.Internal("Error booking appointment", err)
	}
	if !ok || cs.FacilityID != in.FacilityID {
		return nil, apperrors.NotFoundf("Service not found or does not belong to this facility")
	}
	if cs.StockStatus == facility.StockOutOfStock {
		return nil, apperrors.Conflictf("Service is currently out of stock")
	}

	if timeslot.BeforeToday(in.Date, s.now()) {
		return nil, apperrors.Validationf("Appointment date must be in the future")
	}

	if err := s.avail.CheckSlotFree(ctx, in.FacilityID, in.Date, in.Slot, nil); err != nil {
		return nil, err
	}
	if err := s.avail.CheckUserFree(ctx, userID, in.Date, in.Slot, nil); err != nil {
		return nil, err
	}

	a := &Appointment{
		UserID:     userID,
		UserEmail:  in.UserEmail,
		FacilityID: in.FacilityID,
		ServiceID:  in.ServiceID,
		Date:       in.Date,
		Slot:       in.Slot,
		Reason:     reason,
		Status:     StatusPending,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		switch {
		case errors.Is(err, ErrFacilitySlotTaken):
			return nil, apperrors.Conflictf("Time slot is already booked")
		case errors.Is(err, ErrUserSlotTaken):
			return nil, apperrors.Conflictf("You already have an appointment at this time")
		}
		return nil, apperrors.Internal("Error booking appointment", err)
	}
	a.FacilityName = f.Name
	a.ServiceName = cs.Name

	s.notify.Booked(s.event(a))
	s.events.Publish(ctx, s.appointmentEvent(events.TypeBooked, a))
	return a, nil
}

// RescheduleInput carries the new date and slot for an existing appointment.
type RescheduleInput struct {
	Date time.Time
	Slot timeslot.Slot
}

// Reschedule moves an appointment the caller owns to a new date and slot and
// resets it to pending, re-entering the confirmation workflow.
func (s *Service) Reschedule(ctx context.Context, userID string, id uuid.UUID, in RescheduleInput) (*Appointment, error) {
	if !in.Slot.Valid() {
		return nil, apperrors.Validationf("Invalid time slot: end time must be after start time")
	}

	if timeslot.BeforeToday(in.Date, s.now()) {
		return nil, apperrors.Validationf("Appointment date must be in the future")
	}

	var a *Appointment
	err := s.repo.InTx(ctx, func(ctx context.Context) error {
		var err error
		a, err = s.repo.GetByIDForUser(ctx, id, userID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NotFoundf("Appointment not found")
			}
			return apperrors.Internal("Error rescheduling appointment", err)
		}
		if Terminal(a.Status) {
			return apperrors.Conflictf("Cannot reschedule completed or cancelled appointment")
		}

		if err := s.avail.CheckSlotFree(ctx, a.FacilityID, in.Date, in.Slot, &id); err != nil {
			return err
		}
		if err := s.avail.CheckUserFree(ctx, userID, in.Date, in.Slot, &id); err != nil {
			return err
		}

		a.Date = in.Date
		a.Slot = in.Slot
		a.Status = StatusPending
		if err := s.repo.Update(ctx, a); err != nil {
			switch {
			case errors.Is(err, ErrFacilitySlotTaken):
				return apperrors.Conflictf("New time slot is already booked")
			case errors.Is(err, ErrUserSlotTaken):
				return apperrors.Conflictf("You already have an appointment at this time")
			}
			return apperrors.Internal("Error rescheduling appointment", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify.Rescheduled(s.event(a))
	s.events.Publish(ctx, s.appointmentEvent(events.TypeRescheduled, a))
	return a, nil
}

// Cancel marks an appointment the caller owns as cancelled. The record stays
// queryable for history; nothing is deleted.
func (s *Service) Cancel(ctx context.Context, userID string, id uuid.UUID) (*Appointment, error) {
	var a *Appointment
	err := s.repo.InTx(ctx, func(ctx context.Context) error {
		var err error
		a, err = s.repo.GetByIDForUser(ctx, id, userID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NotFoundf("Appointment not found")
			}
			return apperrors.Internal("Error cancelling appointment", err)
		}
		if Terminal(a.Status) {
			return apperrors.Conflictf("Cannot cancel completed or already cancelled appointment")
		}

		a.Status = StatusCancelled
		if err := s.repo.Update(ctx, a); err != nil {
			return apperrors.Internal("Error cancelling appointment", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify.Cancelled(s.event(a))
	s.events.Publish(ctx, s.appointmentEvent(events.TypeCancelled, a))
	return a, nil
}

// UpdateStatus moves an appointment through the admin status graph. Terminal
// statuses are frozen; only forward transitions are allowed.
func (s *Service) UpdateStatus(ctx context.Context, facilityID uuid.UUID, id uuid.UUID, status string) (*Appointment, error) {
	if !ValidStatus(status) {
		return nil, apperrors.Validationf("Invalid status. Must be one of: pending, confirmed, completed, cancelled")
	}

	var a *Appointment
	err := s.repo.InTx(ctx, func(ctx context.Context) error {
		var err error
		a, err = s.repo.GetByIDForFacility(ctx, id, facilityID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NotFoundf("Appointment not found")
			}
			return apperrors.Internal("Error updating appointment status", err)
		}
		if !CanTransition(a.Status, status) {
			return apperrors.Conflictf("Cannot change appointment status from %s to %s", a.Status, status)
		}

		a.Status = status
		if err := s.repo.Update(ctx, a); err != nil {
			return apperrors.Internal("Error updating appointment status", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify.StatusChanged(s.event(a))
	s.events.Publish(ctx, s.appointmentEvent(events.TypeStatusChanged, a))
	return a, nil
}

// ListForUser returns the caller's appointments, newest date first.
func (s *Service) ListForUser(ctx context.Context, userID string, status string, limit, offset int) ([]*Appointment, int, error) {
	if status != "" && !ValidStatus(status) {
		return nil, 0, apperrors.Validationf("Invalid status. Must be one of: pending, confirmed, completed, cancelled")
	}
	items, total, err := s.repo.ListByUser(ctx, userID, ListFilter{Status: status}, limit, offset)
	if err != nil {
		return nil, 0, apperrors.Internal("Error fetching user appointments", err)
	}
	return items, total, nil
}

// FacilityListing bundles a facility's appointment page with its per-status
// counts.
type FacilityListing struct {
	Appointments []*Appointment
	Stats        map[string]int
	Total        int
}

// ListForFacility returns a facility's appointments in day-planner order,
// plus status statistics across the whole facility.
func (s *Service) ListForFacility(ctx context.Context, facilityID uuid.UUID, status string, date *time.Time, limit, offset int) (*FacilityListing, error) {
	if status != "" && !ValidStatus(status) {
		return nil, apperrors.Validationf("Invalid status. Must be one of: pending, confirmed, completed, cancelled")
	}
	items, total, err := s.repo.ListByFacility(ctx, facilityID, ListFilter{Status: status, Date: date}, limit, offset)
	if err != nil {
		return nil, apperrors.Internal("Error fetching facility appointments", err)
	}
	stats, err := s.repo.StatsByFacility(ctx, facilityID)
	if err != nil {
		return nil, apperrors.Internal("Error fetching facility appointments", err)
	}
	return &FacilityListing{Appointments: items, Stats: stats, Total: total}, nil
}

func (s *Service) event(a *Appointment) notification.Event {
	return notification.Event{
		To:           a.UserEmail,
		FacilityName: a.FacilityName,
		Date:         a.Date.Format("2006-01-02"),
		Start:        a.Slot.Start,
		End:          a.Slot.End,
		Reason:       a.Reason,
		Status:       a.Status,
	}
}

func (s *Service) appointmentEvent(typ string, a *Appointment) events.AppointmentEvent {
	return events.AppointmentEvent{
		Type:          typ,
		AppointmentID: a.ID.String(),
		UserID:        a.UserID,
		FacilityID:    a.FacilityID.String(),
		Date:          a.Date.Format("2006-01-02"),
		SlotStart:     a.Slot.Start,
		SlotEnd:       a.Slot.End,
		Status:        a.Status,
	}
}
