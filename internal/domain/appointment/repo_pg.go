package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carebook/carebook/internal/platform/db"
	"github.com/carebook/carebook/pkg/timeslot"
)

// Partial unique index names from the schema; which one fired tells us which
// conflict to report.
const (
	facilitySlotIndex = "appointment_facility_slot_active_idx"
	userSlotIndex     = "appointment_user_slot_active_idx"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.InTx(ctx, r.pool, fn)
}

func (r *repoPG) conn(ctx context.Context) db.Querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const apptCols = `a.id, a.user_id, a.user_email, a.facility_id, a.service_id, a.appointment_date,
	a.slot_start, a.slot_end, a.reason, a.status, a.created_at, a.updated_at,
	f.name, cs.name`

const apptJoins = ` FROM appointment a
	JOIN facility f ON f.id = a.facility_id
	JOIN care_service cs ON cs.id = a.service_id`

func (r *repoPG) scanAppt(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.UserID, &a.UserEmail, &a.FacilityID, &a.ServiceID, &a.Date,
		&a.Slot.Start, &a.Slot.End, &a.Reason, &a.Status, &a.CreatedAt, &a.UpdatedAt,
		&a.FacilityName, &a.ServiceName)
	return &a, err
}

// mapConflict translates a unique-violation into the matching sentinel.
func mapConflict(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return err
	}
	switch pgErr.ConstraintName {
	case facilitySlotIndex:
		return ErrFacilitySlotTaken
	case userSlotIndex:
		return ErrUserSlotTaken
	}
	return err
}

func (r *repoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointment (id, user_id, user_email, facility_id, service_id, appointment_date,
			slot_start, slot_end, reason, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		a.ID, a.UserID, a.UserEmail, a.FacilityID, a.ServiceID, a.Date,
		a.Slot.Start, a.Slot.End, a.Reason, a.Status)
	return mapConflict(err)
}

func (r *repoPG) GetByIDForUser(ctx context.Context, id uuid.UUID, userID string) (*Appointment, error) {
	return r.scanAppt(r.conn(ctx).QueryRow(ctx,
		`SELECT `+apptCols+apptJoins+` WHERE a.id = $1 AND a.user_id = $2`, id, userID))
}

func (r *repoPG) GetByIDForFacility(ctx context.Context, id, facilityID uuid.UUID) (*Appointment, error) {
	return r.scanAppt(r.conn(ctx).QueryRow(ctx,
		`SELECT `+apptCols+apptJoins+` WHERE a.id = $1 AND a.facility_id = $2`, id, facilityID))
}

func (r *repoPG) Update(ctx context.Context, a *Appointment) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointment SET appointment_date=$2, slot_start=$3, slot_end=$4,
			status=$5, updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.Date, a.Slot.Start, a.Slot.End, a.Status)
	return mapConflict(err)
}

func (r *repoPG) CountActiveByUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM appointment
		WHERE user_id = $1 AND status = ANY($2)`, userID, ActiveStatuses).Scan(&count)
	return count, err
}

func (r *repoPG) SlotTaken(ctx context.Context, facilityID uuid.UUID, date time.Time, slot timeslot.Slot, excludeID *uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM appointment
			WHERE facility_id = $1 AND appointment_date = $2
			  AND slot_start = $3 AND slot_end = $4
			  AND status = ANY($5)`
	args := []interface{}{facilityID, date, slot.Start, slot.End, ActiveStatuses}
	if excludeID != nil {
		query += ` AND id <> $6`
		args = append(args, *excludeID)
	}
	query += `)`

	var taken bool
	err := r.conn(ctx).QueryRow(ctx, query, args...).Scan(&taken)
	return taken, err
}

func (r *repoPG) UserSlotTaken(ctx context.Context, userID string, date time.Time, slot timeslot.Slot, excludeID *uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM appointment
			WHERE user_id = $1 AND appointment_date = $2
			  AND slot_start = $3 AND slot_end = $4
			  AND status = ANY($5)`
	args := []interface{}{userID, date, slot.Start, slot.End, ActiveStatuses}
	if excludeID != nil {
		query += ` AND id <> $6`
		args = append(args, *excludeID)
	}
	query += `)`

	var taken bool
	err := r.conn(ctx).QueryRow(ctx, query, args...).Scan(&taken)
	return taken, err
}

func (r *repoPG) ListByUser(ctx context.Context, userID string, filter ListFilter, limit, offset int) ([]*Appointment, int, error) {
	where := ` WHERE a.user_id = $1`
	args := []interface{}{userID}
	idx := 2

	if filter.Status != "" {
		where += fmt.Sprintf(` AND a.status = $%d`, idx)
		args = append(args, filter.Status)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM appointment a`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + apptCols + apptJoins + where +
		fmt.Sprintf(` ORDER BY a.appointment_date DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	return r.queryAppts(ctx, query, args, total)
}

func (r *repoPG) ListByFacility(ctx context.Context, facilityID uuid.UUID, filter ListFilter, limit, offset int) ([]*Appointment, int, error) {
	where := ` WHERE a.facility_id = $1`
	args := []interface{}{facilityID}
	idx := 2

	if filter.Status != "" {
		where += fmt.Sprintf(` AND a.status = $%d`, idx)
		args = append(args, filter.Status)
		idx++
	}
	if filter.Date != nil {
		where += fmt.Sprintf(` AND a.appointment_date = $%d`, idx)
		args = append(args, *filter.Date)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM appointment a`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + apptCols + apptJoins + where +
		fmt.Sprintf(` ORDER BY a.appointment_date ASC, a.slot_start ASC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	return r.queryAppts(ctx, query, args, total)
}

func (r *repoPG) queryAppts(ctx context.Context, query string, args []interface{}, total int) ([]*Appointment, int, error) {
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := r.scanAppt(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

func (r *repoPG) StatsByFacility(ctx context.Context, facilityID uuid.UUID) (map[string]int, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT status, COUNT(*) FROM appointment
		WHERE facility_id = $1 GROUP BY status`, facilityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}
