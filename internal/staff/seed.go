package staff

import (
	"context"
	"errors"

	"github.com/ovaphlow/pitchfork/service-staff-go/internal/staff/entity"
	"github.com/ovaphlow/pitchfork/service-staff-go/internal/staff/repo"
)

// Bootstrap accounts created by Seed.
var seedAccounts = []NewStaff{
	{
		EmployeeID: "Admin1122",
		Name:       "Aditya (Admin)",
		Email:      "admin@example.com",
		Phone:      "9999999999",
		Password:   "1122",
		Role:       entity.RoleAdmin,
		Position:   "HR Manager",
		LeaveQuota: 30,
	},
	{
		EmployeeID: "ISARED025014",
		Name:       "Shashi",
		Email:      "employee@example.com",
		Phone:      "8888888888",
		Password:   "1234",
		Role:       entity.RoleEmployee,
		Position:   "Software Engineer",
		LeaveQuota: 12,
	},
}

// Seed creates the bootstrap admin and employee accounts. Accounts that
// already exist are left untouched. It returns how many were created.
func (s *Service) Seed(ctx context.Context) (int, error) {
	n := 0
	for _, acc := range seedAccounts {
		_, err := s.Create(ctx, acc)
		switch {
		case err == nil:
			n++
		case errors.Is(err, repo.ErrDuplicateEmployeeID), errors.Is(err, repo.ErrDuplicateEmail):
			s.logger.Infow("seed account exists", "employee_id", acc.EmployeeID)
		default:
			return n, err
		}
	}
	return n, nil
}
