package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"clinic-scheduler/internal/model"
	"clinic-scheduler/internal/scheduling"
)

const appointmentColumns = `a.id, a.patient_id, a.doctor_id, a.clinic_id, a.start_time,
	a.duration_minutes, a.appointment_type, a.status, a.notes, a.symptoms,
	a.created_by, a.created_at, a.updated_at`

const recordQuery = `SELECT ` + appointmentColumns + `, p.name, d.name, c.name
	FROM appointment a
	JOIN patient p ON a.patient_id = p.id
	JOIN doctor d ON a.doctor_id = d.id
	JOIN clinic c ON a.clinic_id = c.id`

func scanAppointment(row pgx.Row, a *model.Appointment, extra ...any) error {
	var status, createdBy string
	dest := []any{
		&a.ID, &a.PatientID, &a.DoctorID, &a.ClinicID, &a.StartTime,
		&a.DurationMinutes, &a.Type, &status, &a.Notes, &a.Symptoms,
		&createdBy, &a.CreatedAt, &a.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return err
	}
	a.Status = model.Status(status)
	a.CreatedBy = model.CreatedBy(createdBy)
	a.StartTime = a.StartTime.UTC()
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	return nil
}

func scanRecord(row pgx.Row) (*model.AppointmentRecord, error) {
	r := &model.AppointmentRecord{}
	if err := scanAppointment(row, &r.Appointment, &r.PatientName, &r.DoctorName, &r.ClinicName); err != nil {
		return nil, err
	}
	return r, nil
}

func getRecord(ctx context.Context, q querier, id int64) (*model.AppointmentRecord, error) {
	r, err := scanRecord(q.QueryRow(ctx, recordQuery+` WHERE a.id = $1`, id))
	if isNoRows(err) {
		return nil, scheduling.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get appointment %d: %w", id, err)
	}
	return r, nil
}

func (s *Store) Get(ctx context.Context, id int64) (*model.AppointmentRecord, error) {
	return getRecord(ctx, s.pool, id)
}

func (s *Store) List(ctx context.Context, lq scheduling.ListQuery) ([]model.AppointmentRecord, error) {
	var where []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if lq.DoctorID != 0 {
		add("a.doctor_id = $%d", lq.DoctorID)
	}
	if lq.PatientID != 0 {
		add("a.patient_id = $%d", lq.PatientID)
	}
	if lq.Status != nil {
		add("a.status = $%d", string(*lq.Status))
	}

	q := recordQuery
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, lq.Limit)
	q += fmt.Sprintf(` ORDER BY a.start_time ASC, a.id ASC LIMIT $%d`, len(args))

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AppointmentRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM appointment WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// WithDoctorLock locks the doctor row for the life of the transaction, so
// concurrent bookings for one doctor run one after another.
func (s *Store) WithDoctorLock(ctx context.Context, doctorID int64, fn func(scheduling.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var locked int64
	err = tx.QueryRow(ctx, `SELECT id FROM doctor WHERE id = $1 FOR UPDATE`, doctorID).Scan(&locked)
	if isNoRows(err) {
		return model.NotFound("Doctor", doctorID)
	}
	if err != nil {
		return fmt.Errorf("lock doctor %d: %w", doctorID, err)
	}

	if err := fn(&apptTx{tx: tx}); err != nil {
		return err
	}
	return mapError(tx.Commit(ctx))
}

type apptTx struct {
	tx pgx.Tx
}

func (t *apptTx) ActiveForDoctor(ctx context.Context, doctorID, excludeID int64) ([]model.Appointment, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT `+appointmentColumns+` FROM appointment a
		 WHERE a.doctor_id = $1 AND a.id <> $2
		   AND a.status IN ('Scheduled', 'Confirmed')
		 ORDER BY a.start_time`, doctorID, excludeID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Appointment
	for rows.Next() {
		var a model.Appointment
		if err := scanAppointment(rows, &a); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (t *apptTx) Insert(ctx context.Context, a *model.Appointment) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO appointment
		 (patient_id, doctor_id, clinic_id, start_time, end_time, duration_minutes,
		  appointment_type, status, notes, symptoms, created_by, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		 RETURNING id`,
		a.PatientID, a.DoctorID, a.ClinicID, a.StartTime, a.EndTime(), a.DurationMinutes,
		a.Type, string(a.Status), a.Notes, a.Symptoms, string(a.CreatedBy), a.CreatedAt, a.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return 0, mapError(err)
	}
	a.ID = id
	return id, nil
}

func (t *apptTx) Update(ctx context.Context, a *model.Appointment) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE appointment
		 SET start_time=$1, end_time=$2, status=$3, notes=$4, symptoms=$5, updated_at=$6
		 WHERE id=$7`,
		a.StartTime, a.EndTime(), string(a.Status), a.Notes, a.Symptoms, a.UpdatedAt, a.ID,
	)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return scheduling.ErrNotFound
	}
	return nil
}

func (t *apptTx) Get(ctx context.Context, id int64) (*model.AppointmentRecord, error) {
	return getRecord(ctx, t.tx, id)
}
