package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIssuer(t *testing.T, secret string, ttl time.Duration) *Issuer {
	t.Helper()
	issuer, err := NewIssuer(secret, ttl)
	require.NoError(t, err)
	return issuer
}

func TestIssueAndVerify_Success(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t, "super-secret", time.Hour)
	tok, err := issuer.Issue("user-123")
	require.NoError(t, err)

	userID, err := issuer.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-123", userID)
}

func TestNewIssuer_RequiresSecret(t *testing.T) {
	t.Parallel()

	_, err := NewIssuer("", time.Hour)
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestNewIssuer_DefaultTTL(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t, "k", 0)
	assert.Equal(t, DefaultTokenTTL, issuer.ttl)
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t, "secret", time.Hour)
	tok, err := issuer.sign("u1", time.Now().Add(-time.Minute))
	require.NoError(t, err)

	_, err = issuer.Verify(tok)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerify_ExpiresWithClock(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t, "secret", time.Hour)
	tok, err := issuer.Issue("u1")
	require.NoError(t, err)

	issuer.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = issuer.Verify(tok)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := newTestIssuer(t, "right-secret", time.Hour).Issue("u2")
	require.NoError(t, err)

	_, err = newTestIssuer(t, "wrong-secret", time.Hour).Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t, "k", time.Hour)
	for _, raw := range []string{"", "not.a.jwt", "abc"} {
		_, err := issuer.Verify(raw)
		assert.ErrorIs(t, err, ErrInvalidToken, "token %q", raw)
	}
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t, "k", time.Hour)
	claims := Claims{
		UserID: "u3",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = issuer.Verify(none)
	assert.ErrorIs(t, err, ErrInvalidToken)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("k"))
	require.NoError(t, err)
	_, err = issuer.Verify(hs512)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_RequiresExpiryAndUser(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t, "k", time.Hour)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: "u4"}).SignedString([]byte("k"))
	require.NoError(t, err)
	_, err = issuer.Verify(noExp)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noUser, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte("k"))
	require.NoError(t, err)
	_, err = issuer.Verify(noUser)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
