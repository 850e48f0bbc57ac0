package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dharsanguruparan/uniz-user-service/internal/model"
)

// StaffRepository persists faculty and admin profiles.
type StaffRepository struct {
	pool *pgxpool.Pool
}

// NewStaffRepository constructs a repository.
func NewStaffRepository(pool *pgxpool.Pool) *StaffRepository {
	return &StaffRepository{pool: pool}
}

// GetFaculty returns a faculty profile by username.
func (r *StaffRepository) GetFaculty(ctx context.Context, username string) (*model.FacultyProfile, error) {
	var f model.FacultyProfile
	err := r.pool.QueryRow(ctx, `
		SELECT id, username, name, email, department, designation, role, contact, profile_url, created_at, updated_at
		FROM faculty_profiles WHERE username=$1
	`, username).Scan(&f.ID, &f.Username, &f.Name, &f.Email, &f.Department, &f.Designation, &f.Role, &f.Contact, &f.ProfileURL, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("select faculty %s: %w", username, translate(err))
	}
	return &f, nil
}

// CreateFaculty inserts a faculty profile. Duplicate usernames yield
// ErrAlreadyExists.
func (r *StaffRepository) CreateFaculty(ctx context.Context, f *model.FacultyProfile) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO faculty_profiles (id, username, name, email, department, designation, role)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at, updated_at
	`, f.ID, f.Username, f.Name, f.Email, f.Department, f.Designation, f.Role).Scan(&f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert faculty %s: %w", f.Username, translate(err))
	}
	return nil
}

// GetAdmin returns an admin profile by username.
func (r *StaffRepository) GetAdmin(ctx context.Context, username string) (*model.AdminProfile, error) {
	var a model.AdminProfile
	err := r.pool.QueryRow(ctx, `
		SELECT id, username, email, role, created_at, updated_at FROM admin_profiles WHERE username=$1
	`, username).Scan(&a.ID, &a.Username, &a.Email, &a.Role, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("select admin %s: %w", username, translate(err))
	}
	return &a, nil
}

// EnsureAdmin inserts an admin profile unless the username already exists.
func (r *StaffRepository) EnsureAdmin(ctx context.Context, a *model.AdminProfile) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO admin_profiles (id, username, email, role)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (username) DO NOTHING
	`, a.ID, a.Username, a.Email, a.Role)
	if err != nil {
		return fmt.Errorf("ensure admin %s: %w", a.Username, err)
	}
	return nil
}
