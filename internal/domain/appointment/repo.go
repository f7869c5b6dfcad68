package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/carebook/carebook/pkg/timeslot"
)

// Sentinel errors surfaced by the store when a uniqueness constraint fires.
// The pre-flight availability checks give friendlier fast-path errors, but
// these are the authoritative conflict signals.
var (
	ErrFacilitySlotTaken = errors.New("facility slot already held by an active appointment")
	ErrUserSlotTaken     = errors.New("user already holds an active appointment at this slot")
)

// ListFilter narrows list queries. Zero values mean "no filter".
type ListFilter struct {
	Status string
	Date   *time.Time
}

type Repository interface {
	// InTx runs fn with a transaction attached to its context; the
	// read-modify-write flows use it so a status check and the update
	// commit together.
	InTx(ctx context.Context, fn func(ctx context.Context) error) error

	Create(ctx context.Context, a *Appointment) error
	GetByIDForUser(ctx context.Context, id uuid.UUID, userID string) (*Appointment, error)
	GetByIDForFacility(ctx context.Context, id, facilityID uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error

	CountActiveByUser(ctx context.Context, userID string) (int, error)
	SlotTaken(ctx context.Context, facilityID uuid.UUID, date time.Time, slot timeslot.Slot, excludeID *uuid.UUID) (bool, error)
	UserSlotTaken(ctx context.Context, userID string, date time.Time, slot timeslot.Slot, excludeID *uuid.UUID) (bool, error)

	ListByUser(ctx context.Context, userID string, filter ListFilter, limit, offset int) ([]*Appointment, int, error)
	ListByFacility(ctx context.Context, facilityID uuid.UUID, filter ListFilter, limit, offset int) ([]*Appointment, int, error)
	StatsByFacility(ctx context.Context, facilityID uuid.UUID) (map[string]int, error)
}
