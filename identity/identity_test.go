package identity

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-0123456789abcdef0123"

func testConfig(clock clockwork.Clock) Config {
	return Config{
		Secret:   testSecret,
		Issuer:   "regit",
		Audience: "regit-api",
		TokenTTL: time.Hour,
		Clock:    clock,
	}
}

func TestIssueAndValidate(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	cfg := testConfig(clock)

	token, err := NewIssuer(cfg).Issue(Subject{
		ID:     "u1",
		Email:  "u1@example.com",
		Name:   "User One",
		Groups: []string{"managers"},
	})
	require.NoError(t, err)

	claims, err := NewValidator(cfg).ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "u1@example.com", claims.Email)
	assert.Equal(t, "User One", claims.Name)
	assert.Equal(t, []string{"managers"}, claims.Groups)
	assert.Equal(t, clock.Now(), claims.IssuedAt)
	assert.Equal(t, clock.Now().Add(time.Hour), claims.ExpiresAt)
}

func TestValidateToken_Failures(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	cfg := testConfig(clock)
	validator := NewValidator(cfg)
	ctx := context.Background()

	t.Run("expired", func(t *testing.T) {
		local := clockwork.NewFakeClockAt(clock.Now())
		localCfg := testConfig(local)
		token, err := NewIssuer(localCfg).Issue(Subject{ID: "u1"})
		require.NoError(t, err)

		local.Advance(2 * time.Hour)

		_, err = NewValidator(localCfg).ValidateToken(ctx, token)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := cfg
		other.Secret = "another-secret"
		token, err := NewIssuer(other).Issue(Subject{ID: "u1"})
		require.NoError(t, err)

		_, err = validator.ValidateToken(ctx, token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := cfg
		other.Issuer = "someone-else"
		token, err := NewIssuer(other).Issue(Subject{ID: "u1"})
		require.NoError(t, err)

		_, err = validator.ValidateToken(ctx, token)
		assert.ErrorIs(t, err, ErrInvalidIssuer)
	})

	t.Run("wrong audience", func(t *testing.T) {
		other := cfg
		other.Audience = "billing"
		token, err := NewIssuer(other).Issue(Subject{ID: "u1"})
		require.NoError(t, err)

		_, err = validator.ValidateToken(ctx, token)
		assert.ErrorIs(t, err, ErrInvalidAudience)
	})

	t.Run("missing subject", func(t *testing.T) {
		claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Audience:  jwt.ClaimStrings{cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(clock.Now()),
			ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
		}}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = validator.ValidateToken(ctx, token)
		assert.ErrorIs(t, err, ErrMissingClaim)
	})

	t.Run("unsigned token", func(t *testing.T) {
		claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			Issuer:    cfg.Issuer,
			Audience:  jwt.ClaimStrings{cfg.Audience},
			ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
		}}
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = validator.ValidateToken(ctx, token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := validator.ValidateToken(ctx, "not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := validator.ValidateToken(cctx, "anything")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestIssue_RequiresSubject(t *testing.T) {
	_, err := NewIssuer(Config{Secret: testSecret}).Issue(Subject{})
	assert.ErrorIs(t, err, ErrMissingClaim)
}
