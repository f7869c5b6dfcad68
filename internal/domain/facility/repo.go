package facility

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, f *Facility) error
	GetByID(ctx context.Context, id uuid.UUID) (*Facility, error)
	Update(ctx context.Context, f *Facility) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Facility, int, error)
}

type ServiceRepository interface {
	Create(ctx context.Context, cs *CareService) error
	GetByID(ctx context.Context, id uuid.UUID) (*CareService, error)
	ListByFacility(ctx context.Context, facilityID uuid.UUID, limit, offset int) ([]*CareService, int, error)
}
