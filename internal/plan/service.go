// AngelaMos | 2026
// service.go

package plan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/templates/plan-backend/internal/config"
	"github.com/carterperez-dev/templates/plan-backend/internal/core"
	"github.com/carterperez-dev/templates/plan-backend/internal/store"
)

type Service struct {
	store store.Store
	cache *Cache
}

func NewService(s store.Store, cache *Cache) *Service {
	return &Service{store: s, cache: cache}
}

// ErrBlankPlanName rejects names that are empty once trimmed; dispatch would
// treat such a plan as no plan at all.
var ErrBlankPlanName = fmt.Errorf("plan name is blank: %w", core.ErrInvalidInput)

func (s *Service) Create(ctx context.Context, req CreatePlanRequest) (*store.Plan, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrBlankPlanName
	}

	p := &store.Plan{
		ID:          uuid.New().String(),
		Name:        name,
		Description: req.Description,
	}

	if err := s.store.Plans().Create(ctx, p); err != nil {
		return nil, err
	}

	return p, nil
}

func (s *Service) List(ctx context.Context) ([]store.Plan, error) {
	return s.store.Plans().List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (*store.Plan, error) {
	return s.store.Plans().GetByID(ctx, id)
}

// Delete fails with store.ErrPlanInUse while any user holds the plan.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.Plans().Delete(ctx, id)
}

// Assign sets the user's plan, replacing any previous one.
func (s *Service) Assign(
	ctx context.Context,
	userID, planID string,
) (*store.Assignment, error) {
	ctx, span := core.StartSpan(ctx, "plan", "plan.assign",
		attribute.String("user.id", userID),
		attribute.String("plan.id", planID),
	)
	defer span.End()

	a, err := s.store.Assignments().Upsert(ctx, userID, planID)
	if err != nil {
		core.FailSpan(ctx, err, "assign failed")
		return nil, err
	}

	s.cache.Delete(ctx, userID)

	return a, nil
}

// AssignByName resolves a username and a plan name, then assigns. Lookups
// and the write share one unit of work.
func (s *Service) AssignByName(
	ctx context.Context,
	username, planName string,
) (*store.Assignment, *store.Plan, error) {
	var (
		assignment *store.Assignment
		plan       *store.Plan
	)

	err := s.store.InTx(ctx, func(tx store.Store) error {
		u, err := tx.Users().GetByUsername(ctx, username)
		if err != nil {
			return err
		}

		plan, err = tx.Plans().GetByName(ctx, planName)
		if err != nil {
			return err
		}

		assignment, err = tx.Assignments().Upsert(ctx, u.ID, plan.ID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	s.cache.Delete(ctx, assignment.UserID)

	return assignment, plan, nil
}

// CurrentPlan returns the user's plan, nil when unplanned, reading through
// the cache.
func (s *Service) CurrentPlan(
	ctx context.Context,
	userID string,
) (*store.PlanAssignment, error) {
	if pa, ok := s.cache.Get(ctx, userID); ok {
		return pa, nil
	}

	pa, err := s.store.Assignments().Current(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.cache.Set(ctx, userID, pa)

	return pa, nil
}

// Forget drops any cached plan for the user.
func (s *Service) Forget(ctx context.Context, userID string) {
	s.cache.Delete(ctx, userID)
}

// EnsureCatalog creates every seed plan whose name is not taken yet. Running
// it again, or from several instances at once, creates nothing twice.
func (s *Service) EnsureCatalog(ctx context.Context, seeds []config.PlanSeed) (int, error) {
	created := 0

	for _, seed := range seeds {
		_, err := s.store.Plans().GetByName(ctx, seed.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, store.ErrPlanNotFound) {
			return created, fmt.Errorf("seed plan %s: %w", seed.Name, err)
		}

		_, err = s.Create(ctx, CreatePlanRequest{
			Name:        seed.Name,
			Description: seed.Description,
		})
		if errors.Is(err, store.ErrPlanNameTaken) {
			continue
		}
		if err != nil {
			return created, fmt.Errorf("seed plan %s: %w", seed.Name, err)
		}

		slog.InfoContext(ctx, "plan seeded", "name", seed.Name)
		created++
	}

	return created, nil
}
