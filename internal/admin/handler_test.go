// AngelaMos | 2026
// handler_test.go

package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/plan-backend/internal/middleware"
	"github.com/carterperez-dev/templates/plan-backend/internal/store"
)

const testAdminToken = "ops"

func seed(t *testing.T, s *store.Memory) {
	t.Helper()
	ctx := context.Background()

	basic := &store.Plan{ID: uuid.New().String(), Name: "BASIC"}
	pro := &store.Plan{ID: uuid.New().String(), Name: "PRO"}
	require.NoError(t, s.Plans().Create(ctx, basic))
	require.NoError(t, s.Plans().Create(ctx, pro))

	for _, name := range []string{"ann", "ben", "cat"} {
		u := &store.User{ID: uuid.New().String(), Username: name, PasswordHash: "h"}
		require.NoError(t, s.Users().Create(ctx, u))
		if name != "cat" {
			_, err := s.Assignments().Upsert(ctx, u.ID, pro.ID)
			require.NoError(t, err)
		}
	}
}

func serve(h *Handler, path string, admin bool) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	h.RegisterRoutes(r, middleware.RequireAdminToken(testAdminToken))

	req := httptest.NewRequest(http.MethodGet, path, nil)
	if admin {
		req.Header.Set(middleware.AdminTokenHeader, testAdminToken)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestGetPlanStats(t *testing.T) {
	s := store.NewMemory()
	seed(t, s)

	rec := serve(NewHandler(HandlerConfig{Store: s}), "/admin/stats/plans", true)
	require.Equal(t, http.StatusOK, rec.Code)

	var usage []PlanUsage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &usage))

	counts := map[string]int{}
	for _, u := range usage {
		counts[u.Name] = u.Users
	}
	assert.Equal(t, map[string]int{"BASIC": 0, "PRO": 2}, counts)
}

func TestGetSystemStats(t *testing.T) {
	s := store.NewMemory()
	seed(t, s)

	t.Run("without redis", func(t *testing.T) {
		rec := serve(NewHandler(HandlerConfig{Store: s}), "/admin/stats", true)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp SystemStatsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Database.Healthy)
		assert.Nil(t, resp.Database.Stats)
		assert.Nil(t, resp.Redis)
		assert.Len(t, resp.Plans, 2)
		assert.NotEmpty(t, resp.Runtime.GoVersion)
	})

	t.Run("with redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })

		h := NewHandler(HandlerConfig{
			Store:      s,
			RedisStats: client.PoolStats,
			RedisPing:  func(ctx context.Context) error { return client.Ping(ctx).Err() },
		})

		rec := serve(h, "/admin/stats", true)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp SystemStatsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.NotNil(t, resp.Redis)
		assert.True(t, resp.Redis.Healthy)
		assert.NotNil(t, resp.Redis.Stats)
	})
}

func TestStatsRequireAdminToken(t *testing.T) {
	h := NewHandler(HandlerConfig{Store: store.NewMemory()})

	for _, path := range []string{"/admin/stats", "/admin/stats/plans", "/admin/stats/runtime"} {
		assert.Equal(t, http.StatusForbidden, serve(h, path, false).Code, path)
	}
	assert.Equal(t, http.StatusOK, serve(h, "/admin/stats/runtime", true).Code)
}
