package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dharsanguruparan/uniz-user-service/internal/model"
)

const studentColumns = `id, username, name, email, gender, branch, year, section, roomno, phone,
	blood_group, date_of_birth, father_name, mother_name, father_occupation, mother_occupation,
	father_email, mother_email, father_address, mother_address, profile_url,
	is_present_in_campus, is_application_pending, created_at, updated_at`

// StudentRepository persists student profiles keyed by username.
type StudentRepository struct {
	pool *pgxpool.Pool
}

// NewStudentRepository constructs a repository.
func NewStudentRepository(pool *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

// Get returns a profile by username.
func (r *StudentRepository) Get(ctx context.Context, username string) (*model.StudentProfile, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+studentColumns+` FROM student_profiles WHERE username=$1`, username)
	p, err := scanStudent(row)
	if err != nil {
		return nil, fmt.Errorf("select student %s: %w", username, translate(err))
	}
	return p, nil
}

// UpsertUploadRow creates or updates a student from a bulk upload row. The
// create-or-update is a single statement so it is atomic per student.
func (r *StudentRepository) UpsertUploadRow(ctx context.Context, row model.UploadRow) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO student_profiles (id, username, name, email, gender, branch, year, section, phone)
		VALUES ($1,$1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (username) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			gender = EXCLUDED.gender,
			branch = EXCLUDED.branch,
			year = EXCLUDED.year,
			section = EXCLUDED.section,
			phone = EXCLUDED.phone,
			updated_at = NOW()
	`, row.ID, row.Name, row.Email, row.Gender, row.Branch, row.Year, row.Section, row.Phone)
	if err != nil {
		return fmt.Errorf("upsert student %s: %w", row.ID, translate(err))
	}
	return nil
}

// Upsert applies update to the student, creating the profile with id when it
// does not exist yet.
func (r *StudentRepository) Upsert(ctx context.Context, id, username string, update model.StudentUpdate) (*model.StudentProfile, error) {
	cols := update.Columns()
	insert := map[string]any{"id": id, "username": username}
	for k, v := range cols {
		insert[k] = v
	}
	query, args, err := psql.Insert("student_profiles").
		SetMap(insert).
		Suffix(onConflictSet(cols) + " RETURNING " + studentColumns).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build upsert: %w", err)
	}
	p, err := scanStudent(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("upsert student %s: %w", username, translate(err))
	}
	return p, nil
}

// Update modifies an existing student. It returns ErrNotFound when the
// username is unknown.
func (r *StudentRepository) Update(ctx context.Context, username string, update model.StudentUpdate) (*model.StudentProfile, error) {
	query, args, err := psql.Update("student_profiles").
		SetMap(update.Columns()).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"username": username}).
		Suffix("RETURNING " + studentColumns).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update: %w", err)
	}
	p, err := scanStudent(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("update student %s: %w", username, translate(err))
	}
	return p, nil
}

// Search returns one page of students matching filter plus the total match
// count.
func (r *StudentRepository) Search(ctx context.Context, filter model.StudentFilter) ([]model.StudentProfile, int, error) {
	where := sq.And{}
	if filter.Query != "" {
		like := "%" + escapeLike(filter.Query) + "%"
		where = append(where, sq.Or{sq.ILike{"username": like}, sq.ILike{"name": like}})
	}
	if filter.Branch != "" {
		where = append(where, sq.Eq{"branch": filter.Branch})
	}
	if filter.Year != "" {
		where = append(where, sq.Eq{"year": filter.Year})
	}
	if filter.Gender != "" {
		where = append(where, sq.Eq{"gender": filter.Gender})
	}
	if filter.IsPresentInCampus != nil {
		where = append(where, sq.Eq{"is_present_in_campus": *filter.IsPresentInCampus})
	}

	countQuery, countArgs, err := psql.Select("COUNT(*)").From("student_profiles").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count: %w", err)
	}
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}

	offset := uint64((filter.Page - 1) * filter.Limit)
	query, args, err := psql.Select(studentColumns).From("student_profiles").
		Where(where).
		OrderBy("username ASC").
		Limit(uint64(filter.Limit)).
		Offset(offset).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build search: %w", err)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("search students: %w", err)
	}
	defer rows.Close()
	var out []model.StudentProfile
	for rows.Next() {
		p, err := scanStudent(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan student: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate students: %w", err)
	}
	return out, total, nil
}

func onConflictSet(cols map[string]any) string {
	keys := make([]string, 0, len(cols))
	for k := range cols {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	sets := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", k, k))
	}
	sets = append(sets, "updated_at = NOW()")
	return "ON CONFLICT (username) DO UPDATE SET " + strings.Join(sets, ", ")
}

func scanStudent(row pgx.Row) (*model.StudentProfile, error) {
	var p model.StudentProfile
	err := row.Scan(
		&p.ID, &p.Username, &p.Name, &p.Email, &p.Gender, &p.Branch, &p.Year, &p.Section, &p.RoomNo, &p.Phone,
		&p.BloodGroup, &p.DateOfBirth, &p.FatherName, &p.MotherName, &p.FatherOccupation, &p.MotherOccupation,
		&p.FatherEmail, &p.MotherEmail, &p.FatherAddress, &p.MotherAddress, &p.ProfileURL,
		&p.IsPresentInCampus, &p.IsApplicationPending, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// escapeLike makes q match literally inside an ILIKE pattern.
func escapeLike(q string) string {
	return likeEscaper.Replace(q)
}
