// AngelaMos | 2026
// plans.go

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/carterperez-dev/templates/plan-backend/internal/core"
)

type planRepository struct {
	db core.DBTX
}

func (r *planRepository) Create(ctx context.Context, plan *Plan) error {
	query := `
		INSERT INTO plans (id, name, description)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at`

	err := r.db.GetContext(ctx, plan, query,
		plan.ID,
		plan.Name,
		plan.Description,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create plan: %w", ErrPlanNameTaken)
		}
		return fmt.Errorf("create plan: %w", err)
	}

	return nil
}

func (r *planRepository) GetByID(ctx context.Context, id string) (*Plan, error) {
	query := `
		SELECT id, name, description, created_at, updated_at
		FROM plans
		WHERE id = $1`

	var plan Plan
	err := r.db.GetContext(ctx, &plan, query, id)
	if errors.Is(err, sql.ErrNoRows) || isInvalidID(err) {
		return nil, fmt.Errorf("get plan: %w", ErrPlanNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get plan: %w", err)
	}

	return &plan, nil
}

func (r *planRepository) GetByName(ctx context.Context, name string) (*Plan, error) {
	query := `
		SELECT id, name, description, created_at, updated_at
		FROM plans
		WHERE UPPER(name) = $1`

	var plan Plan
	err := r.db.GetContext(ctx, &plan, query, NormalizePlanName(name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get plan by name: %w", ErrPlanNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get plan by name: %w", err)
	}

	return &plan, nil
}

func (r *planRepository) List(ctx context.Context) ([]Plan, error) {
	query := `
		SELECT id, name, description, created_at, updated_at
		FROM plans
		ORDER BY created_at ASC, name ASC`

	plans := []Plan{}
	if err := r.db.SelectContext(ctx, &plans, query); err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}

	return plans, nil
}

// Delete refuses to remove a plan that is still assigned; the RESTRICT
// foreign key on user_plans enforces it.
func (r *planRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM plans WHERE id = $1`, id)
	if foreignKeyConstraint(err) != "" {
		return fmt.Errorf("delete plan: %w", ErrPlanInUse)
	}
	if isInvalidID(err) {
		return fmt.Errorf("delete plan: %w", ErrPlanNotFound)
	}
	if err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("delete plan: %w", ErrPlanNotFound)
	}

	return nil
}
