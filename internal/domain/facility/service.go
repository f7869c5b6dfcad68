package facility

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/carebook/carebook/internal/platform/apperrors"
	"github.com/carebook/carebook/pkg/timeslot"
)

var validTypes = map[string]bool{
	TypeHospital: true, TypePharmacy: true,
}

var validStockStatuses = map[string]bool{
	StockInStock: true, StockLowStock: true, StockOutOfStock: true,
}

type Service struct {
	facilities Repository
	services   ServiceRepository
	hours      *HoursCache
}

func NewService(facilities Repository, services ServiceRepository, hours *HoursCache) *Service {
	return &Service{facilities: facilities, services: services, hours: hours}
}

func (s *Service) CreateFacility(ctx context.Context, f *Facility) error {
	if f.Name == "" || f.Type == "" || f.Address == "" || f.City == "" {
		return apperrors.Validationf("Name, type, address and city are required")
	}
	if !validTypes[f.Type] {
		return apperrors.Validationf("Invalid facility type: %s", f.Type)
	}
	for day, h := range f.Hours {
		if !h.Complete() {
			continue
		}
		if _, err := timeslot.ParseClock(h.Open); err != nil {
			return apperrors.Validationf("Invalid opening time for %s", day)
		}
		if _, err := timeslot.ParseClock(h.Close); err != nil {
			return apperrors.Validationf("Invalid closing time for %s", day)
		}
	}
	f.Active = true
	if err := s.facilities.Create(ctx, f); err != nil {
		return apperrors.Internal("Error creating facility", err)
	}
	return nil
}

func (s *Service) GetFacility(ctx context.Context, id uuid.UUID) (*Facility, error) {
	f, err := s.facilities.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFoundf("Facility not found")
		}
		return nil, apperrors.Internal("Error fetching facility", err)
	}
	return f, nil
}

func (s *Service) ListFacilities(ctx context.Context, limit, offset int) ([]*Facility, int, error) {
	items, total, err := s.facilities.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, apperrors.Internal("Error fetching facilities", err)
	}
	return items, total, nil
}

func (s *Service) UpdateFacility(ctx context.Context, f *Facility) error {
	if f.Type != "" && !validTypes[f.Type] {
		return apperrors.Validationf("Invalid facility type: %s", f.Type)
	}
	if err := s.facilities.Update(ctx, f); err != nil {
		return apperrors.Internal("Error updating facility", err)
	}
	s.hours.Invalidate(f.ID)
	return nil
}

func (s *Service) DeactivateFacility(ctx context.Context, id uuid.UUID) error {
	if err := s.facilities.Deactivate(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NotFoundf("Facility not found")
		}
		return apperrors.Internal("Error deactivating facility", err)
	}
	s.hours.Invalidate(id)
	return nil
}

func (s *Service) CreateCareService(ctx context.Context, cs *CareService) error {
	if cs.Name == "" || cs.FacilityID == uuid.Nil {
		return apperrors.Validationf("Name and facility are required")
	}
	if cs.StockStatus != "" && !validStockStatuses[cs.StockStatus] {
		return apperrors.Validationf("Invalid stock status: %s", cs.StockStatus)
	}
	if _, err := s.GetFacility(ctx, cs.FacilityID); err != nil {
		return err
	}
	cs.Active = true
	if err := s.services.Create(ctx, cs); err != nil {
		return apperrors.Internal("Error creating service", err)
	}
	return nil
}

func (s *Service) ListCareServices(ctx context.Context, facilityID uuid.UUID, limit, offset int) ([]*CareService, int, error) {
	items, total, err := s.services.ListByFacility(ctx, facilityID, limit, offset)
	if err != nil {
		return nil, 0, apperrors.Internal("Error fetching services", err)
	}
	return items, total, nil
}

// Availability is the slot listing for one facility and date. Slots are the
// start times; every slot runs until the next enumerated start.
type Availability struct {
	Date           string    `json:"date"`
	DayName        string    `json:"dayName,omitempty"`
	FacilityHours  *DayHours `json:"facilityHours,omitempty"`
	AvailableSlots []string  `json:"availableSlots"`
	Closed         bool      `json:"-"`
}

// AvailableSlots computes the bookable slot starts for a facility on a date.
// Hours come from the cache when warm; a closed weekday yields an empty slot
// list, not an error.
func (s *Service) AvailableSlots(ctx context.Context, facilityID uuid.UUID, date time.Time) (*Availability, error) {
	hours, ok := s.hours.Get(facilityID)
	if !ok {
		f, err := s.GetFacility(ctx, facilityID)
		if err != nil {
			return nil, err
		}
		hours = f.Hours
		s.hours.Put(facilityID, hours)
	}

	av := &Availability{
		Date:           date.Format("2006-01-02"),
		DayName:        timeslot.WeekdayName(date),
		AvailableSlots: []string{},
	}

	day, open := hours.For(av.DayName)
	if !open {
		av.Closed = true
		return av, nil
	}
	av.FacilityHours = &day

	if starts := timeslot.Enumerate(day.Open, day.Close); starts != nil {
		av.AvailableSlots = starts
	}
	return av, nil
}
