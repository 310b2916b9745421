// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/carterperez-dev/templates/plan-backend/internal/core"
	"github.com/carterperez-dev/templates/plan-backend/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameExists     = errors.New("username already exists")
)

type Service struct {
	store       store.Store
	hasher      *core.PasswordHasher
	jwt         *JWTManager
	defaultPlan string
}

func NewService(
	s store.Store,
	hasher *core.PasswordHasher,
	jwt *JWTManager,
	defaultPlan string,
) *Service {
	return &Service{
		store:       s,
		hasher:      hasher,
		jwt:         jwt,
		defaultPlan: strings.TrimSpace(defaultPlan),
	}
}

// Register creates the user and, when a default plan is configured, assigns
// it in the same unit of work. The returned assignment is nil for an
// unplanned user.
func (s *Service) Register(
	ctx context.Context,
	req RegisterRequest,
) (*store.User, *store.PlanAssignment, error) {
	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	user := &store.User{
		ID:           uuid.New().String(),
		Username:     req.Username,
		PasswordHash: passwordHash,
	}
	if req.Email != "" {
		email := req.Email
		user.Email = &email
	}

	var assignment *store.PlanAssignment

	err = s.store.InTx(ctx, func(tx store.Store) error {
		if err := tx.Users().Create(ctx, user); err != nil {
			return err
		}

		if s.defaultPlan == "" {
			return nil
		}

		plan, err := tx.Plans().GetByName(ctx, s.defaultPlan)
		if err != nil {
			return fmt.Errorf("default plan %q: %w", s.defaultPlan, err)
		}

		a, err := tx.Assignments().Upsert(ctx, user.ID, plan.ID)
		if err != nil {
			return err
		}

		assignment = &store.PlanAssignment{Plan: *plan, AssignedAt: a.AssignedAt}
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrUsernameTaken) {
			return nil, nil, ErrUsernameExists
		}
		return nil, nil, fmt.Errorf("register: %w", err)
	}

	user.PasswordHash = ""
	return user, assignment, nil
}

// Login answers unknown usernames and wrong passwords identically, and spends
// one hash verification either way.
func (s *Service) Login(
	ctx context.Context,
	req LoginRequest,
) (*TokenResponse, error) {
	user, err := s.store.Users().GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			//nolint:errcheck // timing attack prevention - always verify to prevent enumeration
			_, _, _ = s.hasher.VerifyTimingSafe(req.Password, nil)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	valid, newHash, err := s.hasher.VerifyTimingSafe(
		req.Password,
		&user.PasswordHash,
	)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}

	if !valid {
		return nil, ErrInvalidCredentials
	}

	if newHash != "" {
		if err := s.store.Users().UpdatePassword(ctx, user.ID, newHash); err != nil {
			slog.WarnContext(ctx, "password rehash failed",
				"user_id", user.ID,
				"error", err,
			)
		}
	}

	token, err := s.jwt.Issue(Identity{UserID: user.ID, Username: user.Username})
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	return &TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(s.jwt.TTL().Seconds()),
	}, nil
}
