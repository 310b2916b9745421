// AngelaMos | 2026
// store.go

// Package store holds the three relations the service persists: users,
// the plan catalog, and the one-plan-per-user assignment table. Postgres and
// in-memory implementations satisfy the same Store interface.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/carterperez-dev/templates/plan-backend/internal/core"
)

var (
	ErrUserNotFound  = fmt.Errorf("user: %w", core.ErrNotFound)
	ErrPlanNotFound  = fmt.Errorf("plan: %w", core.ErrNotFound)
	ErrUsernameTaken = fmt.Errorf("username: %w", core.ErrDuplicateKey)
	ErrPlanNameTaken = fmt.Errorf("plan name: %w", core.ErrDuplicateKey)
	ErrPlanInUse     = fmt.Errorf("plan is assigned to users: %w", core.ErrConflict)
)

type User struct {
	ID           string    `db:"id"`
	Username     string    `db:"username"`
	Email        *string   `db:"email"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

type Plan struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

type Assignment struct {
	UserID     string    `db:"user_id"`
	PlanID     string    `db:"plan_id"`
	AssignedAt time.Time `db:"assigned_at"`
}

// PlanAssignment is a user's current plan together with when it was set.
type PlanAssignment struct {
	Plan       Plan
	AssignedAt time.Time
}

type ListUsersParams struct {
	Page     int
	PageSize int
	Search   string
}

func (p *ListUsersParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

func (p *ListUsersParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, params ListUsersParams) ([]User, int, error)
}

type PlanRepository interface {
	Create(ctx context.Context, plan *Plan) error
	GetByID(ctx context.Context, id string) (*Plan, error)
	GetByName(ctx context.Context, name string) (*Plan, error)
	List(ctx context.Context) ([]Plan, error)
	Delete(ctx context.Context, id string) error
}

type AssignmentRepository interface {
	// Upsert sets the user's plan, replacing any existing assignment. It
	// fails with ErrUserNotFound or ErrPlanNotFound for unknown ids.
	Upsert(ctx context.Context, userID, planID string) (*Assignment, error)
	// Current returns nil without error for an unplanned user.
	Current(ctx context.Context, userID string) (*PlanAssignment, error)
	CurrentForUsers(
		ctx context.Context,
		userIDs []string,
	) (map[string]PlanAssignment, error)
	CountByPlan(ctx context.Context, planID string) (int, error)
}

type Store interface {
	Users() UserRepository
	Plans() PlanRepository
	Assignments() AssignmentRepository
	// InTx runs fn against a transactional view of the store. Writes made
	// through tx are discarded when fn returns an error.
	InTx(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error
}

// NormalizePlanName is the key plan names are compared by.
func NormalizePlanName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
