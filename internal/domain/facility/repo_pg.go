package facility

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carebook/carebook/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const facilityCols = `id, name, type, address, city, phone, email, hours, active, created_at, updated_at`

func (r *repoPG) scanFacility(row pgx.Row) (*Facility, error) {
	var f Facility
	var hours []byte
	err := row.Scan(&f.ID, &f.Name, &f.Type, &f.Address, &f.City, &f.Phone, &f.Email,
		&hours, &f.Active, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(hours) > 0 {
		if err := json.Unmarshal(hours, &f.Hours); err != nil {
			return nil, fmt.Errorf("decode facility hours: %w", err)
		}
	}
	return &f, nil
}

func (r *repoPG) Create(ctx context.Context, f *Facility) error {
	f.ID = uuid.New()
	hours, err := json.Marshal(f.Hours)
	if err != nil {
		return fmt.Errorf("encode facility hours: %w", err)
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO facility (id, name, type, address, city, phone, email, hours, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		f.ID, f.Name, f.Type, f.Address, f.City, f.Phone, f.Email, hours, f.Active)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Facility, error) {
	return r.scanFacility(r.conn(ctx).QueryRow(ctx, `SELECT `+facilityCols+` FROM facility WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, f *Facility) error {
	hours, err := json.Marshal(f.Hours)
	if err != nil {
		return fmt.Errorf("encode facility hours: %w", err)
	}
	_, err = r.conn(ctx).Exec(ctx, `
		UPDATE facility SET name=$2, type=$3, address=$4, city=$5, phone=$6, email=$7,
			hours=$8, active=$9, updated_at=NOW()
		WHERE id = $1`,
		f.ID, f.Name, f.Type, f.Address, f.City, f.Phone, f.Email, hours, f.Active)
	return err
}

func (r *repoPG) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE facility SET active=false, updated_at=NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Facility, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM facility WHERE active = true`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+facilityCols+` FROM facility WHERE active = true ORDER BY name ASC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Facility
	for rows.Next() {
		f, err := r.scanFacility(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, f)
	}
	return items, total, nil
}

type serviceRepoPG struct{ pool *pgxpool.Pool }

func NewServiceRepoPG(pool *pgxpool.Pool) ServiceRepository { return &serviceRepoPG{pool: pool} }

func (r *serviceRepoPG) conn(ctx context.Context) db.Querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const serviceCols = `id, facility_id, name, category, stock_status, active, created_at, updated_at`

func (r *serviceRepoPG) scanService(row pgx.Row) (*CareService, error) {
	var cs CareService
	err := row.Scan(&cs.ID, &cs.FacilityID, &cs.Name, &cs.Category, &cs.StockStatus,
		&cs.Active, &cs.CreatedAt, &cs.UpdatedAt)
	return &cs, err
}

func (r *serviceRepoPG) Create(ctx context.Context, cs *CareService) error {
	cs.ID = uuid.New()
	if cs.StockStatus == "" {
		cs.StockStatus = StockInStock
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO care_service (id, facility_id, name, category, stock_status, active)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		cs.ID, cs.FacilityID, cs.Name, cs.Category, cs.StockStatus, cs.Active)
	return err
}

func (r *serviceRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*CareService, error) {
	return r.scanService(r.conn(ctx).QueryRow(ctx, `SELECT `+serviceCols+` FROM care_service WHERE id = $1`, id))
}

func (r *serviceRepoPG) ListByFacility(ctx context.Context, facilityID uuid.UUID, limit, offset int) ([]*CareService, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM care_service WHERE facility_id = $1`, facilityID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+serviceCols+` FROM care_service WHERE facility_id = $1 ORDER BY name ASC LIMIT $2 OFFSET $3`, facilityID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*CareService
	for rows.Next() {
		cs, err := r.scanService(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, cs)
	}
	return items, total, nil
}
