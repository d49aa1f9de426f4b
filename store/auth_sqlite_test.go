package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sealroom/models"
)

func TestNewSession(t *testing.T) {

	t.Run("sign in successfully", func(t *testing.T) {
		fixture := NewFixture(t)
		defer fixture.tearDown()
		seedUsers(fixture, owner)

		token, exp, user, err := fixture.authStore.NewSession(fixture.ctx, owner.Username, owner.Password)
		require.Nil(t, err)
		assert.NotEmpty(t, token)
		assert.True(t, exp.After(time.Now()))
		require.NotNil(t, user)
		assert.Equal(t, owner.Username, user.Username)
		assert.True(t, user.IsOnline)

		session, err := fixture.authStore.Session(fixture.ctx, token)
		require.Nil(t, err)
		assert.Equal(t, owner.Username, session.Username)
	})

	t.Run("wrong password", func(t *testing.T) {
		fixture := NewFixture(t)
		defer fixture.tearDown()
		seedUsers(fixture, owner)

		_, _, _, err := fixture.authStore.NewSession(fixture.ctx, owner.Username, "wrong")
		assert.ErrorIs(t, err, ErrBadCredentials)
	})

	t.Run("unknown user", func(t *testing.T) {
		fixture := NewFixture(t)
		defer fixture.tearDown()

		_, _, _, err := fixture.authStore.NewSession(fixture.ctx, "nobody", "password")
		assert.ErrorIs(t, err, ErrBadCredentials)
	})
}

func TestSession(t *testing.T) {

	t.Run("garbage token", func(t *testing.T) {
		fixture := NewFixture(t)
		defer fixture.tearDown()

		_, err := fixture.authStore.Session(fixture.ctx, "not-a-token")
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("destroyed session is rejected", func(t *testing.T) {
		fixture := NewFixture(t)
		defer fixture.tearDown()
		seedUsers(fixture, owner)

		token, _, _, err := fixture.authStore.NewSession(fixture.ctx, owner.Username, owner.Password)
		require.Nil(t, err)

		err = fixture.authStore.DestroySession(fixture.ctx, models.Session{
			Username: owner.Username,
			Token:    token,
		})
		require.Nil(t, err)

		_, err = fixture.authStore.Session(fixture.ctx, token)
		assert.ErrorIs(t, err, ErrUnauthenticated)

		// signing out also marks the user offline
		user, err := fixture.userStore.GetUserByUsername(fixture.ctx, owner.Username)
		require.Nil(t, err)
		assert.False(t, user.IsOnline)
	})
}
