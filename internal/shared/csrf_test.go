package shared

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSRFEnsureTokenIsStable(t *testing.T) {
	m := NewCSRFManager("test-secret")
	sess := newSession()

	first, err := m.EnsureToken(context.Background(), sess)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := m.EnsureToken(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, first, second, "repeated calls must reuse the session token")
}

func TestCSRFVerifyToken(t *testing.T) {
	m := NewCSRFManager("test-secret")
	sess := newSession()

	token, err := m.EnsureToken(context.Background(), sess)
	require.NoError(t, err)

	assert.NoError(t, m.VerifyToken(context.Background(), sess, token))

	err = m.VerifyToken(context.Background(), sess, "forged")
	assert.ErrorIs(t, err, ErrCSRFTokenMismatch)

	err = m.VerifyToken(context.Background(), sess, "")
	assert.ErrorIs(t, err, ErrCSRFTokenMissing)

	err = m.VerifyToken(context.Background(), nil, token)
	assert.ErrorIs(t, err, ErrCSRFTokenMissing)
}

func TestCSRFTokensDifferPerSession(t *testing.T) {
	m := NewCSRFManager("test-secret")

	a, err := m.EnsureToken(context.Background(), newSession())
	require.NoError(t, err)
	b, err := m.EnsureToken(context.Background(), newSession())
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}
