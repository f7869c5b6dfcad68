package facility

import (
	"time"

	"github.com/google/uuid"
)

// Facility types.
const (
	TypeHospital = "hospital"
	TypePharmacy = "pharmacy"
)

// DayHours is a single weekday's opening window. Empty strings mean the
// facility is closed that day.
type DayHours struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

// Complete reports whether both open and close times are set.
func (d DayHours) Complete() bool {
	return d.Open != "" && d.Close != ""
}

// WeeklyHours maps lowercase weekday names to opening windows. Stored as
// JSONB.
type WeeklyHours map[string]DayHours

// For returns the hours for a weekday name. ok is false when the day is
// missing or its window is incomplete.
func (w WeeklyHours) For(day string) (DayHours, bool) {
	h, ok := w[day]
	if !ok || !h.Complete() {
		return DayHours{}, false
	}
	return h, true
}

// Facility maps to the facility table.
type Facility struct {
	ID        uuid.UUID   `db:"id" json:"id"`
	Name      string      `db:"name" json:"name"`
	Type      string      `db:"type" json:"type"`
	Address   string      `db:"address" json:"address"`
	City      string      `db:"city" json:"city"`
	Phone     *string     `db:"phone" json:"phone,omitempty"`
	Email     *string     `db:"email" json:"email,omitempty"`
	Hours     WeeklyHours `db:"hours" json:"hours"`
	Active    bool        `db:"active" json:"active"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt time.Time   `db:"updated_at" json:"updated_at"`
}

// Stock statuses for a care service.
const (
	StockInStock    = "in_stock"
	StockLowStock   = "low_stock"
	StockOutOfStock = "out_of_stock"
)

// CareService maps to the care_service table: something a facility offers
// that can be booked against.
type CareService struct {
	ID          uuid.UUID `db:"id" json:"id"`
	FacilityID  uuid.UUID `db:"facility_id" json:"facility_id"`
	Name        string    `db:"name" json:"name"`
	Category    *string   `db:"category" json:"category,omitempty"`
	StockStatus string    `db:"stock_status" json:"stock_status"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
