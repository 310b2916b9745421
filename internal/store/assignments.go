// AngelaMos | 2026
// assignments.go

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/carterperez-dev/templates/plan-backend/internal/core"
)

const (
	fkAssignmentUser = "user_plans_user_id_fkey"
	fkAssignmentPlan = "user_plans_plan_id_fkey"
)

type assignmentRepository struct {
	db core.DBTX
}

type planAssignmentRow struct {
	UserID          string    `db:"user_id"`
	PlanID          string    `db:"plan_id"`
	PlanName        string    `db:"plan_name"`
	PlanDescription string    `db:"plan_description"`
	PlanCreatedAt   time.Time `db:"plan_created_at"`
	PlanUpdatedAt   time.Time `db:"plan_updated_at"`
	AssignedAt      time.Time `db:"assigned_at"`
}

func (row planAssignmentRow) toPlanAssignment() PlanAssignment {
	return PlanAssignment{
		Plan: Plan{
			ID:          row.PlanID,
			Name:        row.PlanName,
			Description: row.PlanDescription,
			CreatedAt:   row.PlanCreatedAt,
			UpdatedAt:   row.PlanUpdatedAt,
		},
		AssignedAt: row.AssignedAt,
	}
}

const planAssignmentColumns = `
	up.user_id, up.plan_id, up.assigned_at,
	p.name AS plan_name, p.description AS plan_description,
	p.created_at AS plan_created_at, p.updated_at AS plan_updated_at`

// Upsert is a single statement keyed on the user_plans primary key, so
// concurrent calls for one user serialize in the database and leave one row.
func (r *assignmentRepository) Upsert(
	ctx context.Context,
	userID, planID string,
) (*Assignment, error) {
	query := `
		INSERT INTO user_plans (user_id, plan_id, assigned_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET plan_id = EXCLUDED.plan_id, assigned_at = EXCLUDED.assigned_at
		RETURNING user_id, plan_id, assigned_at`

	var a Assignment
	err := r.db.GetContext(ctx, &a, query, userID, planID)
	if err != nil {
		switch foreignKeyConstraint(err) {
		case fkAssignmentUser:
			return nil, fmt.Errorf("assign plan: %w", ErrUserNotFound)
		case fkAssignmentPlan:
			return nil, fmt.Errorf("assign plan: %w", ErrPlanNotFound)
		}
		if isInvalidID(err) {
			return nil, fmt.Errorf("assign plan: %w", core.ErrNotFound)
		}
		return nil, fmt.Errorf("assign plan: %w", err)
	}

	return &a, nil
}

func (r *assignmentRepository) Current(
	ctx context.Context,
	userID string,
) (*PlanAssignment, error) {
	query := `
		SELECT` + planAssignmentColumns + `
		FROM user_plans up
		JOIN plans p ON p.id = up.plan_id
		WHERE up.user_id = $1`

	var row planAssignmentRow
	err := r.db.GetContext(ctx, &row, query, userID)
	if errors.Is(err, sql.ErrNoRows) || isInvalidID(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("current plan: %w", err)
	}

	pa := row.toPlanAssignment()
	return &pa, nil
}

func (r *assignmentRepository) CurrentForUsers(
	ctx context.Context,
	userIDs []string,
) (map[string]PlanAssignment, error) {
	result := make(map[string]PlanAssignment, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}

	query := `
		SELECT` + planAssignmentColumns + `
		FROM user_plans up
		JOIN plans p ON p.id = up.plan_id
		WHERE up.user_id = ANY($1::uuid[])`

	var rows []planAssignmentRow
	if err := r.db.SelectContext(ctx, &rows, query, userIDs); err != nil {
		return nil, fmt.Errorf("current plans: %w", err)
	}

	for _, row := range rows {
		result[row.UserID] = row.toPlanAssignment()
	}

	return result, nil
}

func (r *assignmentRepository) CountByPlan(
	ctx context.Context,
	planID string,
) (int, error) {
	var count int
	err := r.db.GetContext(
		ctx,
		&count,
		`SELECT COUNT(*) FROM user_plans WHERE plan_id = $1`,
		planID,
	)
	if isInvalidID(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("count assignments: %w", err)
	}

	return count, nil
}
