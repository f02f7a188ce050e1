package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-staff-go/internal/staff/entity"
)

// StaffRepo provides data access for the staff table using sqlx.
// The schema lives in pkg/database/migrations.
type StaffRepo struct {
	db *sqlx.DB
}

func NewStaffRepo(db *sqlx.DB) *StaffRepo { return &StaffRepo{db: db} }

const staffColumns = `id, employee_id, name, email, phone, password_hash, role, position, photo, dob,
	current_address, permanent_address, department, leave_quota, aadhar, created_at, updated_at`

// Create inserts a new staff row. CreatedAt/UpdatedAt are set by the database.
func (r *StaffRepo) Create(ctx context.Context, s *entity.Staff) error {
	const q = `INSERT INTO staff (id, employee_id, name, email, phone, password_hash, role, position, photo, dob,
		current_address, permanent_address, department, leave_quota, aadhar)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		RETURNING created_at, updated_at`
	row := r.db.QueryRowxContext(ctx, q,
		s.ID, s.EmployeeID, s.Name, s.Email, s.Phone, s.PasswordHash, s.Role, s.Position, s.Photo, s.DOB,
		s.CurrentAddress, s.PermanentAddress, s.Department, s.LeaveQuota, s.Aadhar)
	if err := row.Scan(&s.CreatedAt, &s.UpdatedAt); err != nil {
		return fmt.Errorf("insert staff: %w", translatePQ(err))
	}
	return nil
}

func (r *StaffRepo) getOne(ctx context.Context, where string, arg any) (*entity.Staff, error) {
	q := `SELECT ` + staffColumns + ` FROM staff WHERE ` + where
	var s entity.Staff
	if err := r.db.GetContext(ctx, &s, q, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select staff: %w", err)
	}
	return &s, nil
}

// FindByID returns the staff row with the given id.
func (r *StaffRepo) FindByID(ctx context.Context, id string) (*entity.Staff, error) {
	return r.getOne(ctx, "id=$1", id)
}

// FindByEmployeeID returns the staff row with the given employee identifier.
func (r *StaffRepo) FindByEmployeeID(ctx context.Context, employeeID string) (*entity.Staff, error) {
	return r.getOne(ctx, "employee_id=$1", employeeID)
}

// FindByEmail matches case-insensitively (email is citext).
func (r *StaffRepo) FindByEmail(ctx context.Context, email string) (*entity.Staff, error) {
	return r.getOne(ctx, "email=$1", email)
}

// FindIdentityByID returns only the fields needed by the auth gate.
func (r *StaffRepo) FindIdentityByID(ctx context.Context, id string) (*entity.Identity, error) {
	const q = `SELECT id, employee_id, name, email, role FROM staff WHERE id=$1`
	var v entity.Identity
	if err := r.db.GetContext(ctx, &v, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select identity: %w", err)
	}
	return &v, nil
}

// List returns every staff row ordered by employee id.
func (r *StaffRepo) List(ctx context.Context) ([]*entity.Staff, error) {
	q := `SELECT ` + staffColumns + ` FROM staff ORDER BY employee_id`
	var out []*entity.Staff
	if err := r.db.SelectContext(ctx, &out, q); err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	return out, nil
}

// Search does a case-insensitive substring match over the searchable columns.
func (r *StaffRepo) Search(ctx context.Context, term string) ([]*entity.Staff, error) {
	q := `SELECT ` + staffColumns + ` FROM staff
		WHERE name ILIKE $1 OR employee_id ILIKE $1 OR email ILIKE $1 OR department ILIKE $1 OR position ILIKE $1
		ORDER BY employee_id`
	var out []*entity.Staff
	if err := r.db.SelectContext(ctx, &out, q, "%"+escapeLike(term)+"%"); err != nil {
		return nil, fmt.Errorf("search staff: %w", err)
	}
	return out, nil
}

// escapeLike escapes LIKE metacharacters so the term matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// Update applies a partial update and returns the updated row.
func (r *StaffRepo) Update(ctx context.Context, id string, p entity.StaffPatch) (*entity.Staff, error) {
	q := `UPDATE staff SET
		name=COALESCE($2,name), email=COALESCE($3,email), phone=COALESCE($4,phone), role=COALESCE($5,role),
		department=COALESCE($6,department), position=COALESCE($7,position),
		current_address=COALESCE($8,current_address), permanent_address=COALESCE($9,permanent_address),
		aadhar=COALESCE($10,aadhar), leave_quota=COALESCE($11,leave_quota),
		dob=CASE WHEN $12 THEN $13 ELSE dob END, updated_at=NOW()
		WHERE id=$1 RETURNING ` + staffColumns
	var s entity.Staff
	err := r.db.GetContext(ctx, &s, q, id,
		p.Name, p.Email, p.Phone, p.Role, p.Department, p.Position,
		p.CurrentAddress, p.PermanentAddress, p.Aadhar, p.LeaveQuota,
		p.DOBSet, p.DOB)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update staff: %w", translatePQ(err))
	}
	return &s, nil
}

func (r *StaffRepo) execOne(ctx context.Context, q string, args ...any) error {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdatePasswordHash replaces the password hash of the row with id.
func (r *StaffRepo) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	const q = `UPDATE staff SET password_hash=$2, updated_at=NOW() WHERE id=$1`
	if err := r.execOne(ctx, q, id, hash); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// UpdatePasswordHashByEmail replaces the password hash of the row owning email.
func (r *StaffRepo) UpdatePasswordHashByEmail(ctx context.Context, email, hash string) error {
	const q = `UPDATE staff SET password_hash=$2, updated_at=NOW() WHERE email=$1`
	if err := r.execOne(ctx, q, email, hash); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// SetPhoto stores the photo object key; nil clears it.
func (r *StaffRepo) SetPhoto(ctx context.Context, id string, photo *string) error {
	const q = `UPDATE staff SET photo=$2, updated_at=NOW() WHERE id=$1`
	if err := r.execOne(ctx, q, id, photo); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("set photo: %w", err)
	}
	return nil
}

// Delete removes the row with id.
func (r *StaffRepo) Delete(ctx context.Context, id string) error {
	if err := r.execOne(ctx, `DELETE FROM staff WHERE id=$1`, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete staff: %w", err)
	}
	return nil
}

// Stats counts staff by role and by department.
func (r *StaffRepo) Stats(ctx context.Context) (*entity.Stats, error) {
	var counts struct {
		Employees int `db:"employees"`
		Admins    int `db:"admins"`
	}
	const q = `SELECT
		COUNT(*) FILTER (WHERE role='employee') AS employees,
		COUNT(*) FILTER (WHERE role='admin') AS admins
		FROM staff`
	if err := r.db.GetContext(ctx, &counts, q); err != nil {
		return nil, fmt.Errorf("count staff: %w", err)
	}
	deps := []entity.DepartmentCount{}
	const dq = `SELECT department, COUNT(*) AS count FROM staff GROUP BY department ORDER BY department`
	if err := r.db.SelectContext(ctx, &deps, dq); err != nil {
		return nil, fmt.Errorf("count departments: %w", err)
	}
	return &entity.Stats{
		TotalEmployees: counts.Employees,
		TotalAdmins:    counts.Admins,
		TotalStaff:     counts.Employees + counts.Admins,
		Departments:    deps,
	}, nil
}
