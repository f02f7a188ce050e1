package repo

import (
	"errors"

	"github.com/lib/pq"

	"github.com/ovaphlow/pitchfork/service-staff-go/internal/apperr"
)

var (
	ErrNotFound            = apperr.New(apperr.KindNotFound, "Employee not found")
	ErrDuplicateEmployeeID = apperr.New(apperr.KindConflict, "Employee ID already exists")
	ErrDuplicateEmail      = apperr.New(apperr.KindConflict, "Email already exists")
)

// uniqueViolation is the Postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// translatePQ maps unique violations on the staff table to conflict errors.
func translatePQ(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return err
	}
	switch pqErr.Constraint {
	case "staff_employee_id_key":
		return ErrDuplicateEmployeeID
	case "staff_email_key":
		return ErrDuplicateEmail
	}
	return apperr.Wrap(apperr.KindConflict, "Duplicate value", err)
}
