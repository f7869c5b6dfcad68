package facility

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Gateway is the read-side view of the catalog consumed by the booking flow.
// Lookups report absence as a boolean rather than an error so callers can
// attach their own not-found semantics.
type Gateway struct {
	facilities Repository
	services   ServiceRepository
}

func NewGateway(facilities Repository, services ServiceRepository) *Gateway {
	return &Gateway{facilities: facilities, services: services}
}

func (g *Gateway) Facility(ctx context.Context, id uuid.UUID) (*Facility, bool, error) {
	f, err := g.facilities.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return f, true, nil
}

func (g *Gateway) Service(ctx context.Context, id uuid.UUID) (*CareService, bool, error) {
	cs, err := g.services.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return cs, true, nil
}
