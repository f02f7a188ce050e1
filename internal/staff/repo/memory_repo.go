package repo

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ovaphlow/pitchfork/service-staff-go/internal/staff/entity"
)

// MemoryRepo is a process-local implementation of the staff store with the
// same uniqueness and not-found semantics as StaffRepo. It backs local
// development (STORE_BACKEND=memory) and tests.
type MemoryRepo struct {
	mu   sync.RWMutex
	rows map[string]*entity.Staff
	now  func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{rows: make(map[string]*entity.Staff), now: time.Now}
}

func clone(s *entity.Staff) *entity.Staff {
	c := *s
	if s.Photo != nil {
		p := *s.Photo
		c.Photo = &p
	}
	if s.DOB != nil {
		d := *s.DOB
		c.DOB = &d
	}
	if s.Aadhar != nil {
		a := *s.Aadhar
		c.Aadhar = &a
	}
	return &c
}

// conflict reports a uniqueness violation against rows other than skipID.
// Callers hold mu.
func (m *MemoryRepo) conflict(skipID, employeeID, email string) error {
	for id, row := range m.rows {
		if id == skipID {
			continue
		}
		if employeeID != "" && row.EmployeeID == employeeID {
			return ErrDuplicateEmployeeID
		}
		if email != "" && strings.EqualFold(row.Email, email) {
			return ErrDuplicateEmail
		}
	}
	return nil
}

func (m *MemoryRepo) Create(_ context.Context, s *entity.Staff) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.conflict("", s.EmployeeID, s.Email); err != nil {
		return err
	}
	now := m.now()
	s.CreatedAt, s.UpdatedAt = now, now
	m.rows[s.ID] = clone(s)
	return nil
}

func (m *MemoryRepo) find(match func(*entity.Staff) bool) (*entity.Staff, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, row := range m.rows {
		if match(row) {
			return clone(row), nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryRepo) FindByID(_ context.Context, id string) (*entity.Staff, error) {
	return m.find(func(s *entity.Staff) bool { return s.ID == id })
}

func (m *MemoryRepo) FindByEmployeeID(_ context.Context, employeeID string) (*entity.Staff, error) {
	return m.find(func(s *entity.Staff) bool { return s.EmployeeID == employeeID })
}

func (m *MemoryRepo) FindByEmail(_ context.Context, email string) (*entity.Staff, error) {
	return m.find(func(s *entity.Staff) bool { return strings.EqualFold(s.Email, email) })
}

func (m *MemoryRepo) FindIdentityByID(ctx context.Context, id string) (*entity.Identity, error) {
	s, err := m.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.Identity(), nil
}

func (m *MemoryRepo) sorted(match func(*entity.Staff) bool) []*entity.Staff {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*entity.Staff, 0, len(m.rows))
	for _, row := range m.rows {
		if match(row) {
			out = append(out, clone(row))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out
}

func (m *MemoryRepo) List(_ context.Context) ([]*entity.Staff, error) {
	return m.sorted(func(*entity.Staff) bool { return true }), nil
}

func (m *MemoryRepo) Search(_ context.Context, term string) ([]*entity.Staff, error) {
	t := strings.ToLower(term)
	return m.sorted(func(s *entity.Staff) bool {
		for _, f := range []string{s.Name, s.EmployeeID, s.Email, s.Department, s.Position} {
			if strings.Contains(strings.ToLower(f), t) {
				return true
			}
		}
		return false
	}), nil
}

func (m *MemoryRepo) Update(_ context.Context, id string, p entity.StaffPatch) (*entity.Staff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	if p.Email != nil {
		if err := m.conflict(id, "", *p.Email); err != nil {
			return nil, err
		}
	}
	next := clone(row)
	setIf(&next.Name, p.Name)
	setIf(&next.Email, p.Email)
	setIf(&next.Phone, p.Phone)
	setIf(&next.Role, p.Role)
	setIf(&next.Department, p.Department)
	setIf(&next.Position, p.Position)
	setIf(&next.CurrentAddress, p.CurrentAddress)
	setIf(&next.PermanentAddress, p.PermanentAddress)
	setIf(&next.LeaveQuota, p.LeaveQuota)
	if p.Aadhar != nil {
		a := *p.Aadhar
		next.Aadhar = &a
	}
	if p.DOBSet {
		next.DOB = p.DOB
	}
	next.UpdatedAt = m.now()
	m.rows[id] = next
	return clone(next), nil
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func (m *MemoryRepo) mutate(match func(*entity.Staff) bool, fn func(*entity.Staff)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if match(row) {
			fn(row)
			row.UpdatedAt = m.now()
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryRepo) UpdatePasswordHash(_ context.Context, id, hash string) error {
	return m.mutate(func(s *entity.Staff) bool { return s.ID == id }, func(s *entity.Staff) { s.PasswordHash = hash })
}

func (m *MemoryRepo) UpdatePasswordHashByEmail(_ context.Context, email, hash string) error {
	return m.mutate(func(s *entity.Staff) bool { return strings.EqualFold(s.Email, email) }, func(s *entity.Staff) { s.PasswordHash = hash })
}

func (m *MemoryRepo) SetPhoto(_ context.Context, id string, photo *string) error {
	return m.mutate(func(s *entity.Staff) bool { return s.ID == id }, func(s *entity.Staff) { s.Photo = photo })
}

func (m *MemoryRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *MemoryRepo) Stats(_ context.Context) (*entity.Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := &entity.Stats{Departments: []entity.DepartmentCount{}}
	byDept := map[string]int{}
	for _, row := range m.rows {
		switch row.Role {
		case entity.RoleAdmin:
			st.TotalAdmins++
		case entity.RoleEmployee:
			st.TotalEmployees++
		}
		byDept[row.Department]++
	}
	for d, n := range byDept {
		st.Departments = append(st.Departments, entity.DepartmentCount{Department: d, Count: n})
	}
	sort.Slice(st.Departments, func(i, j int) bool { return st.Departments[i].Department < st.Departments[j].Department })
	st.TotalStaff = st.TotalEmployees + st.TotalAdmins
	return st, nil
}
