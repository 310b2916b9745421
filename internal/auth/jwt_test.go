// AngelaMos | 2026
// jwt_test.go

package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/plan-backend/internal/config"
	"github.com/carterperez-dev/templates/plan-backend/internal/core"
)

const testSecret = "k7Qz!pR2#vX9@mW4$tY6^bN8&cJ3*hL5"

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            testSecret,
		AccessTokenExpire: 8 * time.Hour,
		Issuer:            "plan-backend",
		Audience:          "plan-backend-api",
	}
}

func newTestJWTManager(t *testing.T) *JWTManager {
	t.Helper()
	m, err := NewJWTManager(testJWTConfig())
	require.NoError(t, err)
	return m
}

func TestJWTManager_RoundTrip(t *testing.T) {
	m := newTestJWTManager(t)

	token, err := m.Issue(Identity{UserID: "3f1c2d4e-0000-4000-8000-000000000001", Username: "alice"})
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(token, "."))

	claims, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "3f1c2d4e-0000-4000-8000-000000000001", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.NotEmpty(t, claims.TokenID)
	assert.WithinDuration(t, time.Now().Add(8*time.Hour), claims.ExpiresAt, time.Minute)
}

func TestJWTManager_UniqueTokenIDs(t *testing.T) {
	m := newTestJWTManager(t)

	a, err := m.Issue(Identity{UserID: "u1"})
	require.NoError(t, err)
	b, err := m.Issue(Identity{UserID: "u1"})
	require.NoError(t, err)

	ca, err := m.Verify(a)
	require.NoError(t, err)
	cb, err := m.Verify(b)
	require.NoError(t, err)
	assert.NotEqual(t, ca.TokenID, cb.TokenID)
}

func TestJWTManager_Expired(t *testing.T) {
	issuedAt := time.Now().Add(-24 * time.Hour)
	m := newTestJWTManager(t)

	token, err := m.WithClock(func() time.Time { return issuedAt }).
		Issue(Identity{UserID: "u1"})
	require.NoError(t, err)

	_, err = m.WithClock(func() time.Time { return issuedAt.Add(8*time.Hour + time.Second) }).
		Verify(token)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrTokenExpired)

	claims, err := m.WithClock(func() time.Time { return issuedAt.Add(7 * time.Hour) }).
		Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
}

func TestJWTManager_Tampered(t *testing.T) {
	m := newTestJWTManager(t)

	token, err := m.Issue(Identity{UserID: "u1"})
	require.NoError(t, err)

	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

	accepted := 0
	for i := range len(token) {
		if token[i] == '.' {
			continue
		}
		for j := range len(alphabet) {
			if alphabet[j] == token[i] {
				continue
			}
			b := []byte(token)
			b[i] = alphabet[j]
			if _, err := m.Verify(string(b)); err == nil {
				accepted++
				t.Errorf("position %d changed %q -> %q still verifies", i, token[i], alphabet[j])
			} else {
				assert.ErrorIs(t, err, core.ErrTokenInvalid)
			}
		}
	}
	assert.Zero(t, accepted)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)

	other, err := m.Issue(Identity{UserID: "u2"})
	require.NoError(t, err)
	swapped := parts[0] + "." + strings.Split(other, ".")[1] + "." + parts[2]

	_, err = m.Verify(swapped)
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestJWTManager_Rejects(t *testing.T) {
	m := newTestJWTManager(t)

	otherCfg := testJWTConfig()
	otherCfg.Secret = "Zx8#Lq2@Wp5!Rt7$Ym1^Kv4&Hn6*Gb9%"
	foreignSecret, err := NewJWTManager(otherCfg)
	require.NoError(t, err)

	audCfg := testJWTConfig()
	audCfg.Audience = "someone-else"
	foreignAudience, err := NewJWTManager(audCfg)
	require.NoError(t, err)

	issCfg := testJWTConfig()
	issCfg.Issuer = "someone-else"
	foreignIssuer, err := NewJWTManager(issCfg)
	require.NoError(t, err)

	wrongType := func() string {
		now := time.Now()
		tok, buildErr := jwt.NewBuilder().
			Issuer(m.config.Issuer).
			Audience([]string{m.config.Audience}).
			Subject("u1").
			IssuedAt(now).
			Expiration(now.Add(time.Hour)).
			Claim("type", "refresh").
			Build()
		require.NoError(t, buildErr)
		signed, signErr := jwt.Sign(tok, jwt.WithKey(jwa.HS256(), m.key))
		require.NoError(t, signErr)
		return string(signed)
	}

	issue := func(mgr *JWTManager) string {
		tok, issueErr := mgr.Issue(Identity{UserID: "u1"})
		require.NoError(t, issueErr)
		return tok
	}

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.token"},
		{"signed with another secret", issue(foreignSecret)},
		{"other audience", issue(foreignAudience)},
		{"other issuer", issue(foreignIssuer)},
		{"non access type", wrongType()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Verify(tt.token)
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrTokenInvalid)
		})
	}
}

func TestJWTManager_IssueRequiresSubject(t *testing.T) {
	m := newTestJWTManager(t)

	_, err := m.Issue(Identity{Username: "nobody"})
	assert.Error(t, err)
}

func TestNewJWTManager_Config(t *testing.T) {
	cfg := testJWTConfig()
	cfg.Secret = ""
	_, err := NewJWTManager(cfg)
	assert.Error(t, err)

	cfg = testJWTConfig()
	cfg.AccessTokenExpire = 0
	_, err = NewJWTManager(cfg)
	assert.Error(t, err)

	m, err := NewJWTManager(testJWTConfig())
	require.NoError(t, err)
	assert.Equal(t, 8*time.Hour, m.TTL())
}
