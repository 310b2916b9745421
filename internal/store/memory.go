// AngelaMos | 2026
// memory.go

package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

type memoryData struct {
	users       map[string]User
	plans       map[string]Plan
	assignments map[string]Assignment
}

func (d *memoryData) clone() *memoryData {
	c := &memoryData{
		users:       make(map[string]User, len(d.users)),
		plans:       make(map[string]Plan, len(d.plans)),
		assignments: make(map[string]Assignment, len(d.assignments)),
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.plans {
		c.plans[k] = v
	}
	for k, v := range d.assignments {
		c.assignments[k] = v
	}
	return c
}

// Memory is a Store kept in process memory. It mirrors the Postgres
// constraints (unique username, unique plan name, one assignment per user,
// cascade on user delete, restrict on plan delete) and serializes every
// operation behind one lock.
type Memory struct {
	mu    *sync.Mutex
	data  **memoryData
	inTx  bool
	clock func() time.Time
}

func NewMemory() *Memory {
	data := &memoryData{
		users:       make(map[string]User),
		plans:       make(map[string]Plan),
		assignments: make(map[string]Assignment),
	}
	return &Memory{
		mu:    &sync.Mutex{},
		data:  &data,
		clock: time.Now,
	}
}

func (m *Memory) Users() UserRepository {
	return memoryUsers{m}
}

func (m *Memory) Plans() PlanRepository {
	return memoryPlans{m}
}

func (m *Memory) Assignments() AssignmentRepository {
	return memoryAssignments{m}
}

// InTx holds the store lock for the whole of fn and restores the previous
// contents if fn fails.
func (m *Memory) InTx(ctx context.Context, fn func(tx Store) error) error {
	if m.inTx {
		return fn(m)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := (*m.data).clone()
	tx := &Memory{mu: m.mu, data: m.data, inTx: true, clock: m.clock}

	if err := fn(tx); err != nil {
		*m.data = snapshot
		return err
	}

	return nil
}

func (m *Memory) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (m *Memory) locked(fn func(d *memoryData) error) error {
	if !m.inTx {
		m.mu.Lock()
		defer m.mu.Unlock()
	}
	return fn(*m.data)
}

type memoryUsers struct{ m *Memory }

func (r memoryUsers) Create(ctx context.Context, user *User) error {
	return r.m.locked(func(d *memoryData) error {
		for _, u := range d.users {
			if u.Username == user.Username {
				return fmt.Errorf("create user: %w", ErrUsernameTaken)
			}
		}
		now := r.m.clock()
		user.CreatedAt = now
		user.UpdatedAt = now
		d.users[user.ID] = *user
		return nil
	})
}

func (r memoryUsers) GetByID(ctx context.Context, id string) (*User, error) {
	var out *User
	err := r.m.locked(func(d *memoryData) error {
		u, ok := d.users[id]
		if !ok {
			return fmt.Errorf("get user: %w", ErrUserNotFound)
		}
		out = &u
		return nil
	})
	return out, err
}

func (r memoryUsers) GetByUsername(ctx context.Context, username string) (*User, error) {
	var out *User
	err := r.m.locked(func(d *memoryData) error {
		for _, u := range d.users {
			if u.Username == username {
				found := u
				out = &found
				return nil
			}
		}
		return fmt.Errorf("get user by username: %w", ErrUserNotFound)
	})
	return out, err
}

func (r memoryUsers) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.m.locked(func(d *memoryData) error {
		u, ok := d.users[id]
		if !ok {
			return fmt.Errorf("update password: %w", ErrUserNotFound)
		}
		u.PasswordHash = passwordHash
		u.UpdatedAt = r.m.clock()
		d.users[id] = u
		return nil
	})
}

func (r memoryUsers) Delete(ctx context.Context, id string) error {
	return r.m.locked(func(d *memoryData) error {
		if _, ok := d.users[id]; !ok {
			return fmt.Errorf("delete user: %w", ErrUserNotFound)
		}
		delete(d.users, id)
		delete(d.assignments, id)
		return nil
	})
}

func (r memoryUsers) List(ctx context.Context, params ListUsersParams) ([]User, int, error) {
	params.Normalize()

	var matched []User
	err := r.m.locked(func(d *memoryData) error {
		search := strings.ToLower(params.Search)
		for _, u := range d.users {
			if search != "" && !userMatches(u, search) {
				continue
			}
			u.PasswordHash = ""
			matched = append(matched, u)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	total := len(matched)
	start := params.Offset()
	if start > total {
		start = total
	}
	end := start + params.PageSize
	if end > total {
		end = total
	}

	page := make([]User, 0, end-start)
	page = append(page, matched[start:end]...)

	return page, total, nil
}

func userMatches(u User, search string) bool {
	if strings.Contains(strings.ToLower(u.Username), search) {
		return true
	}
	return u.Email != nil && strings.Contains(strings.ToLower(*u.Email), search)
}

type memoryPlans struct{ m *Memory }

func (r memoryPlans) Create(ctx context.Context, plan *Plan) error {
	return r.m.locked(func(d *memoryData) error {
		key := NormalizePlanName(plan.Name)
		for _, p := range d.plans {
			if NormalizePlanName(p.Name) == key {
				return fmt.Errorf("create plan: %w", ErrPlanNameTaken)
			}
		}
		now := r.m.clock()
		plan.CreatedAt = now
		plan.UpdatedAt = now
		d.plans[plan.ID] = *plan
		return nil
	})
}

func (r memoryPlans) GetByID(ctx context.Context, id string) (*Plan, error) {
	var out *Plan
	err := r.m.locked(func(d *memoryData) error {
		p, ok := d.plans[id]
		if !ok {
			return fmt.Errorf("get plan: %w", ErrPlanNotFound)
		}
		out = &p
		return nil
	})
	return out, err
}

func (r memoryPlans) GetByName(ctx context.Context, name string) (*Plan, error) {
	var out *Plan
	key := NormalizePlanName(name)
	err := r.m.locked(func(d *memoryData) error {
		for _, p := range d.plans {
			if NormalizePlanName(p.Name) == key {
				found := p
				out = &found
				return nil
			}
		}
		return fmt.Errorf("get plan by name: %w", ErrPlanNotFound)
	})
	return out, err
}

func (r memoryPlans) List(ctx context.Context) ([]Plan, error) {
	plans := []Plan{}
	err := r.m.locked(func(d *memoryData) error {
		for _, p := range d.plans {
			plans = append(plans, p)
		}
		return nil
	})

	sort.Slice(plans, func(i, j int) bool {
		if plans[i].CreatedAt.Equal(plans[j].CreatedAt) {
			return plans[i].Name < plans[j].Name
		}
		return plans[i].CreatedAt.Before(plans[j].CreatedAt)
	})

	return plans, err
}

func (r memoryPlans) Delete(ctx context.Context, id string) error {
	return r.m.locked(func(d *memoryData) error {
		if _, ok := d.plans[id]; !ok {
			return fmt.Errorf("delete plan: %w", ErrPlanNotFound)
		}
		for _, a := range d.assignments {
			if a.PlanID == id {
				return fmt.Errorf("delete plan: %w", ErrPlanInUse)
			}
		}
		delete(d.plans, id)
		return nil
	})
}

type memoryAssignments struct{ m *Memory }

func (r memoryAssignments) Upsert(ctx context.Context, userID, planID string) (*Assignment, error) {
	var out *Assignment
	err := r.m.locked(func(d *memoryData) error {
		if _, ok := d.users[userID]; !ok {
			return fmt.Errorf("assign plan: %w", ErrUserNotFound)
		}
		if _, ok := d.plans[planID]; !ok {
			return fmt.Errorf("assign plan: %w", ErrPlanNotFound)
		}
		a := Assignment{
			UserID:     userID,
			PlanID:     planID,
			AssignedAt: r.m.clock(),
		}
		d.assignments[userID] = a
		out = &a
		return nil
	})
	return out, err
}

func (r memoryAssignments) Current(ctx context.Context, userID string) (*PlanAssignment, error) {
	var out *PlanAssignment
	err := r.m.locked(func(d *memoryData) error {
		a, ok := d.assignments[userID]
		if !ok {
			return nil
		}
		p, ok := d.plans[a.PlanID]
		if !ok {
			return fmt.Errorf("current plan: dangling assignment for %s", userID)
		}
		out = &PlanAssignment{Plan: p, AssignedAt: a.AssignedAt}
		return nil
	})
	return out, err
}

func (r memoryAssignments) CurrentForUsers(
	ctx context.Context,
	userIDs []string,
) (map[string]PlanAssignment, error) {
	result := make(map[string]PlanAssignment, len(userIDs))
	err := r.m.locked(func(d *memoryData) error {
		for _, id := range userIDs {
			a, ok := d.assignments[id]
			if !ok {
				continue
			}
			if p, ok := d.plans[a.PlanID]; ok {
				result[id] = PlanAssignment{Plan: p, AssignedAt: a.AssignedAt}
			}
		}
		return nil
	})
	return result, err
}

func (r memoryAssignments) CountByPlan(ctx context.Context, planID string) (int, error) {
	count := 0
	err := r.m.locked(func(d *memoryData) error {
		for _, a := range d.assignments {
			if a.PlanID == planID {
				count++
			}
		}
		return nil
	})
	return count, err
}

var _ Store = (*Memory)(nil)
