// AngelaMos | 2026
// cache.go

package plan

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/templates/plan-backend/internal/store"
)

const cacheKeyPrefix = "plan:user:"

// Cache keeps resolved plans in redis so token resolution does not hit the
// database on every request. A nil client turns every call into a no-op.
// Redis failures are logged and treated as misses.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

type cacheEntry struct {
	Planned     bool      `json:"planned"`
	PlanID      string    `json:"plan_id,omitempty"`
	Name        string    `json:"name,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
	AssignedAt  time.Time `json:"assigned_at,omitempty"`
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}

func cacheKey(userID string) string {
	return cacheKeyPrefix + userID
}

// Get reports whether the user's plan was cached. A hit with a nil plan is a
// cached unplanned user.
func (c *Cache) Get(ctx context.Context, userID string) (*store.PlanAssignment, bool) {
	if !c.enabled() {
		return nil, false
	}

	raw, err := c.client.Get(ctx, cacheKey(userID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.WarnContext(ctx, "plan cache read failed",
				"user_id", userID,
				"error", err,
			)
		}
		return nil, false
	}

	var entry cacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		slog.WarnContext(ctx, "plan cache entry corrupt",
			"user_id", userID,
			"error", err,
		)
		c.Delete(ctx, userID)
		return nil, false
	}

	if !entry.Planned {
		return nil, true
	}

	return &store.PlanAssignment{
		Plan: store.Plan{
			ID:          entry.PlanID,
			Name:        entry.Name,
			Description: entry.Description,
			CreatedAt:   entry.CreatedAt,
			UpdatedAt:   entry.UpdatedAt,
		},
		AssignedAt: entry.AssignedAt,
	}, true
}

func (c *Cache) Set(ctx context.Context, userID string, pa *store.PlanAssignment) {
	if !c.enabled() {
		return
	}

	entry := cacheEntry{}
	if pa != nil {
		entry = cacheEntry{
			Planned:     true,
			PlanID:      pa.Plan.ID,
			Name:        pa.Plan.Name,
			Description: pa.Plan.Description,
			CreatedAt:   pa.Plan.CreatedAt,
			UpdatedAt:   pa.Plan.UpdatedAt,
			AssignedAt:  pa.AssignedAt,
		}
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		slog.WarnContext(ctx, "plan cache encode failed", "error", err)
		return
	}

	if err := c.client.Set(ctx, cacheKey(userID), raw, c.ttl).Err(); err != nil {
		slog.WarnContext(ctx, "plan cache write failed",
			"user_id", userID,
			"error", err,
		)
	}
}

func (c *Cache) Delete(ctx context.Context, userID string) {
	if !c.enabled() {
		return
	}

	if err := c.client.Del(ctx, cacheKey(userID)).Err(); err != nil {
		slog.WarnContext(ctx, "plan cache invalidation failed",
			"user_id", userID,
			"error", err,
		)
	}
}
