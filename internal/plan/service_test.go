// AngelaMos | 2026
// service_test.go

package plan

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/plan-backend/internal/config"
	"github.com/carterperez-dev/templates/plan-backend/internal/core"
	"github.com/carterperez-dev/templates/plan-backend/internal/store"
)

// =============================================================================
// Test Helpers
// =============================================================================

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to create miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })

	return client, mr
}

type fixture struct {
	store   *store.Memory
	service *Service
	mr      *miniredis.Miniredis
}

func newFixture(t *testing.T, withRedis bool) *fixture {
	t.Helper()
	f := &fixture{store: store.NewMemory()}

	var client *redis.Client
	if withRedis {
		client, f.mr = setupTestRedis(t)
	}

	f.service = NewService(f.store, NewCache(client, time.Minute))
	return f
}

func (f *fixture) seedUser(t *testing.T, username string) *store.User {
	t.Helper()
	u := &store.User{ID: uuid.New().String(), Username: username, PasswordHash: "h"}
	require.NoError(t, f.store.Users().Create(context.Background(), u))
	return u
}

func (f *fixture) seedPlan(t *testing.T, name string) *store.Plan {
	t.Helper()
	p, err := f.service.Create(context.Background(), CreatePlanRequest{Name: name, Description: name + " tier"})
	require.NoError(t, err)
	return p
}

// =============================================================================
// Catalog
// =============================================================================

func TestService_CreateAndList(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	p, err := f.service.Create(ctx, CreatePlanRequest{Name: "  BASIC ", Description: "entry"})
	require.NoError(t, err)
	assert.Equal(t, "BASIC", p.Name)

	_, err = f.service.Create(ctx, CreatePlanRequest{Name: "basic"})
	assert.ErrorIs(t, err, store.ErrPlanNameTaken)
	assert.ErrorIs(t, err, core.ErrDuplicateKey)

	plans, err := f.service.List(ctx)
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, "entry", plans[0].Description)

	got, err := f.service.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
}

func TestService_CreateRejectsBlankName(t *testing.T) {
	f := newFixture(t, false)

	_, err := f.service.Create(context.Background(), CreatePlanRequest{Name: "  \t "})
	assert.ErrorIs(t, err, ErrBlankPlanName)
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	plans, err := f.service.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, plans)
}

func TestService_DeleteRespectsAssignments(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	u := f.seedUser(t, "alice")
	p := f.seedPlan(t, "PRO")

	_, err := f.service.Assign(ctx, u.ID, p.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, f.service.Delete(ctx, p.ID), store.ErrPlanInUse)

	other := f.seedPlan(t, "BASIC")
	_, err = f.service.Assign(ctx, u.ID, other.ID)
	require.NoError(t, err)

	require.NoError(t, f.service.Delete(ctx, p.ID))
	assert.ErrorIs(t, f.service.Delete(ctx, p.ID), store.ErrPlanNotFound)
}

func TestService_EnsureCatalog(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	f.seedPlan(t, "pro")

	seeds := []config.PlanSeed{
		{Name: "BASIC", Description: "summary"},
		{Name: "PRO", Description: "analytics"},
		{Name: "ENTERPRISE", Description: "everything"},
	}

	created, err := f.service.EnsureCatalog(ctx, seeds)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	created, err = f.service.EnsureCatalog(ctx, seeds)
	require.NoError(t, err)
	assert.Equal(t, 0, created)

	plans, err := f.service.List(ctx)
	require.NoError(t, err)
	assert.Len(t, plans, 3)
}

// =============================================================================
// Assignment
// =============================================================================

func TestService_AssignReplaces(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	u := f.seedUser(t, "bob")
	basic := f.seedPlan(t, "BASIC")
	enterprise := f.seedPlan(t, "ENTERPRISE")

	current, err := f.service.CurrentPlan(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, current)

	first, err := f.service.Assign(ctx, u.ID, basic.ID)
	require.NoError(t, err)

	second, err := f.service.Assign(ctx, u.ID, enterprise.ID)
	require.NoError(t, err)
	assert.False(t, second.AssignedAt.Before(first.AssignedAt))

	current, err = f.service.CurrentPlan(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, "ENTERPRISE", current.Plan.Name)
	assert.Equal(t, second.AssignedAt, current.AssignedAt)
}

func TestService_AssignUnknownIDs(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	u := f.seedUser(t, "carol")
	p := f.seedPlan(t, "BASIC")

	_, err := f.service.Assign(ctx, uuid.New().String(), p.ID)
	assert.ErrorIs(t, err, store.ErrUserNotFound)

	_, err = f.service.Assign(ctx, u.ID, uuid.New().String())
	assert.ErrorIs(t, err, store.ErrPlanNotFound)

	current, err := f.service.CurrentPlan(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, current)
}

func TestService_AssignByName(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	u := f.seedUser(t, "dave")
	f.seedPlan(t, "PRO")

	a, p, err := f.service.AssignByName(ctx, "dave", "pro")
	require.NoError(t, err)
	assert.Equal(t, u.ID, a.UserID)
	assert.Equal(t, "PRO", p.Name)

	_, _, err = f.service.AssignByName(ctx, "nobody", "PRO")
	assert.ErrorIs(t, err, store.ErrUserNotFound)

	_, _, err = f.service.AssignByName(ctx, "dave", "PLATINUM")
	assert.ErrorIs(t, err, store.ErrPlanNotFound)
}

// =============================================================================
// Cache
// =============================================================================

func TestService_CurrentPlanIsCached(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	u := f.seedUser(t, "erin")
	p := f.seedPlan(t, "PRO")

	_, err := f.service.Assign(ctx, u.ID, p.ID)
	require.NoError(t, err)

	first, err := f.service.CurrentPlan(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.True(t, f.mr.Exists(cacheKey(u.ID)))
	assert.Equal(t, time.Minute, f.mr.TTL(cacheKey(u.ID)))

	cached, ok := f.service.cache.Get(ctx, u.ID)
	require.True(t, ok)
	assert.Equal(t, first.Plan.ID, cached.Plan.ID)
	assert.Equal(t, "PRO", cached.Plan.Name)
	assert.True(t, first.AssignedAt.Equal(cached.AssignedAt))
}

func TestService_AssignInvalidatesCache(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	u := f.seedUser(t, "frank")
	basic := f.seedPlan(t, "BASIC")
	pro := f.seedPlan(t, "PRO")

	current, err := f.service.CurrentPlan(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, current)
	assert.True(t, f.mr.Exists(cacheKey(u.ID)), "unplanned users are cached too")

	_, err = f.service.Assign(ctx, u.ID, basic.ID)
	require.NoError(t, err)
	assert.False(t, f.mr.Exists(cacheKey(u.ID)))

	current, err = f.service.CurrentPlan(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "BASIC", current.Plan.Name)

	_, _, err = f.service.AssignByName(ctx, "frank", "PRO")
	require.NoError(t, err)

	current, err = f.service.CurrentPlan(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, pro.ID, current.Plan.ID)

	f.service.Forget(ctx, u.ID)
	assert.False(t, f.mr.Exists(cacheKey(u.ID)))
}

func TestCache_ExpiresAfterTTL(t *testing.T) {
	client, mr := setupTestRedis(t)
	c := NewCache(client, 30*time.Second)
	ctx := context.Background()

	c.Set(ctx, "u1", &store.PlanAssignment{Plan: store.Plan{ID: "p1", Name: "PRO"}})
	_, ok := c.Get(ctx, "u1")
	require.True(t, ok)

	mr.FastForward(31 * time.Second)

	_, ok = c.Get(ctx, "u1")
	assert.False(t, ok)
}

func TestCache_CorruptEntryIsAMiss(t *testing.T) {
	client, mr := setupTestRedis(t)
	c := NewCache(client, time.Minute)

	require.NoError(t, mr.Set(cacheKey("u1"), "{not json"))

	_, ok := c.Get(context.Background(), "u1")
	assert.False(t, ok)
	assert.False(t, mr.Exists(cacheKey("u1")))
}

func TestCache_RedisDownFallsBackToStore(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	u := f.seedUser(t, "grace")
	p := f.seedPlan(t, "BASIC")

	_, err := f.service.Assign(ctx, u.ID, p.ID)
	require.NoError(t, err)

	f.mr.Close()

	current, err := f.service.CurrentPlan(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, "BASIC", current.Plan.Name)
}

func TestCache_DisabledIsNoop(t *testing.T) {
	var nilCache *Cache
	ctx := context.Background()

	nilCache.Set(ctx, "u1", nil)
	nilCache.Delete(ctx, "u1")
	_, ok := nilCache.Get(ctx, "u1")
	assert.False(t, ok)

	c := NewCache(nil, time.Minute)
	c.Set(ctx, "u1", nil)
	_, ok = c.Get(ctx, "u1")
	assert.False(t, ok)
}
