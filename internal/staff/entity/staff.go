package entity

import "time"

// Role is the access level of a staff account.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool { return r == RoleAdmin || r == RoleEmployee }

// Staff represents a row in the `staff` table. PasswordHash never leaves the
// process: it is excluded from JSON.
type Staff struct {
	ID               string     `db:"id" json:"_id"`
	EmployeeID       string     `db:"employee_id" json:"employee_id"`
	Name             string     `db:"name" json:"name"`
	Email            string     `db:"email" json:"email"`
	Phone            string     `db:"phone" json:"phone"`
	PasswordHash     string     `db:"password_hash" json:"-"`
	Role             Role       `db:"role" json:"role"`
	Position         string     `db:"position" json:"position"`
	Photo            *string    `db:"photo" json:"photo"`
	DOB              *time.Time `db:"dob" json:"dob"`
	CurrentAddress   string     `db:"current_address" json:"currentAddress"`
	PermanentAddress string     `db:"permanent_address" json:"permanentAddress"`
	Department       string     `db:"department" json:"department"`
	LeaveQuota       int        `db:"leave_quota" json:"leave_quota"`
	Aadhar           *string    `db:"aadhar" json:"aadhar"`
	CreatedAt        time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updatedAt"`
}

// Identity is the non-sensitive projection used for authentication.
type Identity struct {
	ID         string `db:"id" json:"id"`
	EmployeeID string `db:"employee_id" json:"employee_id"`
	Name       string `db:"name" json:"name"`
	Email      string `db:"email" json:"email"`
	Role       Role   `db:"role" json:"role"`
}

// Identity projects s onto the fields safe to attach to a request.
func (s *Staff) Identity() *Identity {
	return &Identity{ID: s.ID, EmployeeID: s.EmployeeID, Name: s.Name, Email: s.Email, Role: s.Role}
}

// StaffPatch carries a partial update; nil fields are left untouched.
// DOBSet distinguishes "clear dob" (DOBSet && DOB == nil) from "keep".
type StaffPatch struct {
	Name             *string
	Email            *string
	Phone            *string
	Role             *Role
	Department       *string
	Position         *string
	CurrentAddress   *string
	PermanentAddress *string
	Aadhar           *string
	LeaveQuota       *int
	DOBSet           bool
	DOB              *time.Time
}

// DepartmentCount is one bucket of the department histogram.
type DepartmentCount struct {
	Department string `db:"department" json:"_id"`
	Count      int    `db:"count" json:"count"`
}

// Stats is the staff overview.
type Stats struct {
	TotalEmployees int               `json:"totalEmployees"`
	TotalAdmins    int               `json:"totalAdmins"`
	TotalStaff     int               `json:"totalStaff"`
	Departments    []DepartmentCount `json:"departments"`
}
