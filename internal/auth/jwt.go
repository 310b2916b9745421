// AngelaMos | 2026
// jwt.go

package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/carterperez-dev/templates/plan-backend/internal/config"
	"github.com/carterperez-dev/templates/plan-backend/internal/core"
)

const tokenTypeAccess = "access"

// Identity is what a token is issued for.
type Identity struct {
	UserID   string
	Username string
}

// Claims is the verified content of an access token.
type Claims struct {
	UserID    string
	Username  string
	TokenID   string
	ExpiresAt time.Time
}

// JWTManager issues and verifies HS256 access tokens. Tokens are stateless:
// nothing about them is persisted.
type JWTManager struct {
	key    jwk.Key
	config config.JWTConfig
	now    func() time.Time
}

func NewJWTManager(cfg config.JWTConfig) (*JWTManager, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if cfg.AccessTokenExpire <= 0 {
		return nil, errors.New("jwt access token expiry must be positive")
	}

	key, err := jwk.Import([]byte(cfg.Secret))
	if err != nil {
		return nil, fmt.Errorf("import secret: %w", err)
	}

	if setErr := key.Set(jwk.AlgorithmKey, jwa.HS256()); setErr != nil {
		return nil, fmt.Errorf("set algorithm: %w", setErr)
	}

	return &JWTManager{
		key:    key,
		config: cfg,
		now:    time.Now,
	}, nil
}

// WithClock returns a copy of m that reads time from now. Issue and Verify
// both use it.
func (m *JWTManager) WithClock(now func() time.Time) *JWTManager {
	c := *m
	c.now = now
	return &c
}

// TTL is the lifetime given to every issued token.
func (m *JWTManager) TTL() time.Duration {
	return m.config.AccessTokenExpire
}

func (m *JWTManager) Issue(identity Identity) (string, error) {
	if identity.UserID == "" {
		return "", errors.New("issue token: empty subject")
	}

	now := m.now()

	token, err := jwt.NewBuilder().
		JwtID(uuid.New().String()).
		Issuer(m.config.Issuer).
		Audience([]string{m.config.Audience}).
		Subject(identity.UserID).
		IssuedAt(now).
		NotBefore(now).
		Expiration(now.Add(m.config.AccessTokenExpire)).
		Claim("username", identity.Username).
		Claim("type", tokenTypeAccess).
		Build()
	if err != nil {
		return "", fmt.Errorf("build token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256(), m.key))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return string(signed), nil
}

// Verify checks signature, issuer, audience, type and time claims. Every
// failure wraps core.ErrTokenExpired or core.ErrTokenInvalid.
func (m *JWTManager) Verify(tokenString string) (*Claims, error) {
	if err := checkCanonicalEncoding(tokenString); err != nil {
		return nil, fmt.Errorf("verify token: %v: %w", err, core.ErrTokenInvalid)
	}

	token, err := jwt.Parse(
		[]byte(tokenString),
		jwt.WithKey(jwa.HS256(), m.key),
		jwt.WithValidate(true),
		jwt.WithIssuer(m.config.Issuer),
		jwt.WithAudience(m.config.Audience),
		jwt.WithClock(jwt.ClockFunc(m.now)),
	)
	if err != nil {
		if isTokenExpiredError(err) {
			return nil, fmt.Errorf("verify token: %w", core.ErrTokenExpired)
		}
		return nil, fmt.Errorf("verify token: %v: %w", err, core.ErrTokenInvalid)
	}

	var tokenType string
	if err := token.Get("type", &tokenType); err != nil ||
		tokenType != tokenTypeAccess {
		return nil, fmt.Errorf(
			"verify token: invalid token type: %w",
			core.ErrTokenInvalid,
		)
	}

	subject, ok := token.Subject()
	if !ok || subject == "" {
		return nil, fmt.Errorf(
			"verify token: missing subject: %w",
			core.ErrTokenInvalid,
		)
	}

	claims := &Claims{UserID: subject}

	//nolint:errcheck // username is informational, the subject identifies the user
	_ = token.Get("username", &claims.Username)

	if jti, ok := token.JwtID(); ok {
		claims.TokenID = jti
	}
	if exp, ok := token.Expiration(); ok {
		claims.ExpiresAt = exp
	}

	return claims, nil
}

// checkCanonicalEncoding rejects segments that are not canonical unpadded
// base64url. The parser decodes leniently, so a signature whose trailing
// padding bits were altered would otherwise still verify.
func checkCanonicalEncoding(tokenString string) error {
	segments := strings.Split(tokenString, ".")
	if len(segments) != 3 {
		return errors.New("malformed token")
	}

	for _, seg := range segments {
		if _, err := base64.RawURLEncoding.Strict().DecodeString(seg); err != nil {
			return errors.New("non-canonical segment encoding")
		}
	}

	return nil
}

func isTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "exp") &&
		strings.Contains(errStr, "not satisfied")
}
