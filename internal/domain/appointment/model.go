package appointment

import (
	"time"

	"github.com/google/uuid"

	"github.com/carebook/carebook/pkg/timeslot"
)

// Appointment statuses. Pending and confirmed are the "active" statuses that
// hold a slot; completed and cancelled are terminal.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

var validStatuses = map[string]bool{
	StatusPending: true, StatusConfirmed: true,
	StatusCompleted: true, StatusCancelled: true,
}

// ValidStatus reports whether s is one of the four appointment statuses.
func ValidStatus(s string) bool { return validStatuses[s] }

// ActiveStatuses are the statuses that occupy a slot for conflict purposes.
var ActiveStatuses = []string{StatusPending, StatusConfirmed}

// transitions is the admin status graph. Terminal statuses have no exits;
// a cancelled or completed appointment can never be revived.
var transitions = map[string][]string{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
	StatusCompleted: {},
	StatusCancelled: {},
}

// CanTransition reports whether an admin may move an appointment from one
// status to another.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether the status permits no further changes by the
// owning user.
func Terminal(status string) bool {
	return status == StatusCompleted || status == StatusCancelled
}

// Appointment maps to the appointment table. FacilityName and ServiceName
// are joined on read for display and notifications; they are not columns.
type Appointment struct {
	ID         uuid.UUID     `db:"id" json:"id"`
	UserID     string        `db:"user_id" json:"user_id"`
	UserEmail  string        `db:"user_email" json:"-"`
	FacilityID uuid.UUID     `db:"facility_id" json:"facility_id"`
	ServiceID  uuid.UUID     `db:"service_id" json:"service_id"`
	Date       time.Time     `db:"appointment_date" json:"appointmentDate"`
	Slot       timeslot.Slot `db:"-" json:"timeSlot"`
	Reason     string        `db:"reason" json:"reason"`
	Status     string        `db:"status" json:"status"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time     `db:"updated_at" json:"updated_at"`

	FacilityName string `db:"-" json:"facility_name,omitempty"`
	ServiceName  string `db:"-" json:"service_name,omitempty"`
}
