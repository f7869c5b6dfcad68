package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/carebook/carebook/internal/platform/apperrors"
	"github.com/carebook/carebook/pkg/timeslot"
)

// maxActiveAppointments caps how many pending or confirmed appointments one
// user may hold at once.
const maxActiveAppointments = 5

// Availability runs the pre-flight conflict checks for booking and
// reschedule. These checks exist for friendly error messages; the store's
// unique indexes remain the authority under concurrency.
type Availability struct {
	repo Repository
}

func NewAvailability(repo Repository) *Availability {
	return &Availability{repo: repo}
}

// CheckUserCapacity rejects users already holding the active-appointment cap.
func (av *Availability) CheckUserCapacity(ctx context.Context, userID string) error {
	count, err := av.repo.CountActiveByUser(ctx, userID)
	if err != nil {
		return apperrors.Internal("Error booking appointment", err)
	}
	if count >= maxActiveAppointments {
		return apperrors.Conflictf("You have too many pending appointments. Please complete or cancel existing ones.")
	}
	return nil
}

// CheckSlotFree rejects when an active appointment already occupies the
// facility's slot. excludeID ignores the appointment being rescheduled.
func (av *Availability) CheckSlotFree(ctx context.Context, facilityID uuid.UUID, date time.Time, slot timeslot.Slot, excludeID *uuid.UUID) error {
	taken, err := av.repo.SlotTaken(ctx, facilityID, date, slot, excludeID)
	if err != nil {
		return apperrors.Internal("Error booking appointment", err)
	}
	if taken {
		if excludeID != nil {
			return apperrors.Conflictf("New time slot is already booked")
		}
		return apperrors.Conflictf("Time slot is already booked")
	}
	return nil
}

// CheckUserFree rejects when the user holds an active appointment at the
// same date and slot, at any facility.
func (av *Availability) CheckUserFree(ctx context.Context, userID string, date time.Time, slot timeslot.Slot, excludeID *uuid.UUID) error {
	taken, err := av.repo.UserSlotTaken(ctx, userID, date, slot, excludeID)
	if err != nil {
		return apperrors.Internal("Error booking appointment", err)
	}
	if taken {
		return apperrors.Conflictf("You already have an appointment at this time")
	}
	return nil
}
