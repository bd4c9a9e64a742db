package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var slotColumns = []string{"s.id", "s.start_time", "s.status", "s.created_at", "s.updated_at"}

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanSlot(row pgx.Row) (*Slot, error) {
	var s Slot

	err := row.Scan(
		&s.ID,
		&s.StartTime,
		&s.Status,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}

	return &s, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.SlotID,
		&a.PatientName,
		&a.PatientPhone,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &a, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// timeRange narrows a slot query to from <= start_time < to; zero bounds
// are left open.
func timeRange(b sq.SelectBuilder, from, to time.Time) sq.SelectBuilder {
	if !from.IsZero() {
		b = b.Where(sq.GtOrEq{"s.start_time": from})
	}
	if !to.IsZero() {
		b = b.Where(sq.Lt{"s.start_time": to})
	}
	return b
}

// Interface methods

func (r *PgRepository) GetSlotByID(ctx context.Context, id uuid.UUID) (*Slot, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT s.id, s.start_time, s.status, s.created_at, s.updated_at
		FROM slots s
		WHERE s.id = $1
	`, id)
	return scanSlot(row)
}

func (r *PgRepository) InsertSlotsIfAbsent(ctx context.Context, starts []time.Time) (int, error) {
	if len(starts) == 0 {
		return 0, nil
	}

	q := psql.Insert("slots").Columns("id", "start_time", "status")
	for _, st := range starts {
		q = q.Values(uuid.New(), st, string(SlotAvailable))
	}

	query, args, err := q.Suffix("ON CONFLICT (start_time) DO NOTHING").ToSql()
	if err != nil {
		return 0, fmt.Errorf("build slot insert: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *PgRepository) ListSlots(ctx context.Context, from, to time.Time, status *SlotStatus) ([]Slot, error) {
	b := timeRange(psql.Select(slotColumns...).From("slots s"), from, to)
	if status != nil {
		b = b.Where(sq.Eq{"s.status": string(*status)})
	}

	query, args, err := b.OrderBy("s.start_time ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build slot query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []Slot{}
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) ListSchedule(ctx context.Context, from, to time.Time) ([]ScheduleEntry, error) {
	cols := append(append([]string{}, slotColumns...),
		"a.id", "a.patient_name", "a.patient_phone", "a.created_at")

	b := timeRange(
		psql.Select(cols...).From("slots s").LeftJoin("appointments a ON a.slot_id = s.id"),
		from, to,
	)

	query, args, err := b.OrderBy("s.start_time ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build schedule query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []ScheduleEntry{}
	for rows.Next() {
		var (
			e            ScheduleEntry
			apptID       *uuid.UUID
			patientName  *string
			patientPhone *string
			apptCreated  *time.Time
		)

		err := rows.Scan(
			&e.ID,
			&e.StartTime,
			&e.Status,
			&e.CreatedAt,
			&e.UpdatedAt,
			&apptID,
			&patientName,
			&patientPhone,
			&apptCreated,
		)
		if err != nil {
			return nil, err
		}

		if apptID != nil {
			e.Appointment = &Appointment{
				ID:           *apptID,
				SlotID:       e.ID,
				PatientName:  deref(patientName),
				PatientPhone: deref(patientPhone),
			}
			if apptCreated != nil {
				e.Appointment.CreatedAt = *apptCreated
			}
		}
		result = append(result, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) ListAppointmentsByPhone(ctx context.Context, phone string) ([]AppointmentDetail, error) {
	cols := append([]string{"a.id", "a.slot_id", "a.patient_name", "a.patient_phone", "a.created_at"}, slotColumns...)

	query, args, err := psql.Select(cols...).
		From("appointments a").
		Join("slots s ON s.id = a.slot_id").
		Where(sq.Eq{"a.patient_phone": phone}).
		OrderBy("s.start_time DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build appointment query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []AppointmentDetail{}
	for rows.Next() {
		var d AppointmentDetail
		err := rows.Scan(
			&d.ID,
			&d.SlotID,
			&d.PatientName,
			&d.PatientPhone,
			&d.Appointment.CreatedAt,
			&d.Slot.ID,
			&d.Slot.StartTime,
			&d.Slot.Status,
			&d.Slot.CreatedAt,
			&d.Slot.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) BookSlot(ctx context.Context, slotID uuid.UUID, patientName, patientPhone string) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin booking tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE slots
		SET status = 'BOOKED',
		    updated_at = now()
		WHERE id = $1
		  AND status = 'AVAILABLE'
	`, slotID)
	if err != nil {
		return nil, fmt.Errorf("mark slot booked: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrSlotTaken
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO appointments (id, slot_id, patient_name, patient_phone, created_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING id, slot_id, patient_name, patient_phone, created_at
	`, uuid.New(), slotID, patientName, patientPhone)

	appt, err := scanAppointment(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("insert appointment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit booking tx: %w", err)
	}

	return appt, nil
}

func (r *PgRepository) ToggleSlotStatus(ctx context.Context, slotID uuid.UUID) (*Slot, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE slots s
		SET status = CASE s.status
		                 WHEN 'AVAILABLE' THEN 'BLOCKED'
		                 WHEN 'BLOCKED' THEN 'AVAILABLE'
		                 ELSE s.status
		             END,
		    updated_at = CASE WHEN s.status = 'BOOKED' THEN s.updated_at ELSE now() END
		WHERE s.id = $1
		RETURNING s.id, s.start_time, s.status, s.created_at, s.updated_at
	`, slotID)
	return scanSlot(row)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
