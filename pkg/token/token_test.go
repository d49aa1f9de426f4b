package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func TestNewAndVerify(t *testing.T) {
	signed, exp, err := New("alice", time.Hour, secret)
	require.Nil(t, err)
	require.NotEmpty(t, signed)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, time.Minute)

	claims, err := Verify(signed, secret)
	require.Nil(t, err)
	assert.Equal(t, "alice", claims.Username)
}

func TestVerifyExpired(t *testing.T) {
	signed, _, err := New("alice", -time.Minute, secret)
	require.Nil(t, err)

	_, err = Verify(signed, secret)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyWrongSecret(t *testing.T) {
	signed, _, err := New("alice", time.Hour, secret)
	require.Nil(t, err)

	_, err = Verify(signed, []byte("other-secret"))
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifyGarbage(t *testing.T) {
	_, err := Verify("not.a.token", secret)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
