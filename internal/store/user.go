package store

import (
	"context"
	"fmt"

	"clinic-scheduler/internal/model"
)

func accountTable(role model.Role) (string, error) {
	switch role {
	case model.RoleDoctor:
		return "doctor", nil
	case model.RolePatient:
		return "patient", nil
	}
	return "", fmt.Errorf("no account table for role %s", role)
}

// FindAccount returns the active doctor or patient with the given username.
func (s *Store) FindAccount(ctx context.Context, role model.Role, username string) (*model.Account, error) {
	table, err := accountTable(role)
	if err != nil {
		return nil, err
	}
	a := &model.Account{Role: role}
	err = s.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, name FROM `+table+`
		 WHERE username = $1 AND is_active`, username,
	).Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Name)
	if isNoRows(err) {
		return nil, model.NotFound(role.String(), 0)
	}
	if err != nil {
		return nil, fmt.Errorf("find %s account: %w", table, err)
	}
	return a, nil
}

// CreateAccount inserts a doctor or patient and sets a.ID.
func (s *Store) CreateAccount(ctx context.Context, a *model.Account) error {
	table, err := accountTable(a.Role)
	if err != nil {
		return err
	}
	return s.pool.QueryRow(ctx,
		`INSERT INTO `+table+` (username, password_hash, name) VALUES ($1,$2,$3) RETURNING id`,
		a.Username, a.PasswordHash, a.Name,
	).Scan(&a.ID)
}

func (s *Store) CreateClinic(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO clinic (name) VALUES ($1) RETURNING id`, name,
	).Scan(&id)
	return id, err
}

func (s *Store) exists(ctx context.Context, table string, id int64) (bool, error) {
	var ok bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM `+table+` WHERE id = $1 AND is_active)`, id,
	).Scan(&ok)
	return ok, err
}

func (s *Store) PatientExists(ctx context.Context, id int64) (bool, error) {
	return s.exists(ctx, "patient", id)
}

func (s *Store) DoctorExists(ctx context.Context, id int64) (bool, error) {
	return s.exists(ctx, "doctor", id)
}

func (s *Store) ClinicExists(ctx context.Context, id int64) (bool, error) {
	return s.exists(ctx, "clinic", id)
}
