package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sealroom/models"
)

func TestCreateUser(t *testing.T) {

	t.Run("create user successfully", func(t *testing.T) {
		fixture := NewFixture(t)
		defer fixture.tearDown()

		err := fixture.userStore.CreateUser(fixture.ctx, owner)
		require.Nil(t, err)

		user, err := fixture.userStore.GetUserByUsername(fixture.ctx, owner.Username)
		require.Nil(t, err)
		require.NotNil(t, user)
		assert.Equal(t, owner.Name, user.Name)
		assert.False(t, user.IsOnline)
		assert.Nil(t, user.LastSeen)
	})

	t.Run("duplicate username is rejected", func(t *testing.T) {
		fixture := NewFixture(t)
		defer fixture.tearDown()
		seedUsers(fixture, owner)

		err := fixture.userStore.CreateUser(fixture.ctx, models.User{
			Username: owner.Username,
			Password: "other",
			Name:     "Other",
		})
		assert.ErrorIs(t, err, ErrConflictedUser)
	})
}

func TestGetUserByUsername(t *testing.T) {
	fixture := NewFixture(t)
	defer fixture.tearDown()
	seedUsers(fixture, owner)

	user, err := fixture.userStore.GetUserByUsername(fixture.ctx, "nobody")
	require.Nil(t, err)
	assert.Nil(t, user)

	user, err = fixture.userStore.GetUserByUsername(fixture.ctx, owner.Username)
	require.Nil(t, err)
	require.NotNil(t, user)
	assert.Equal(t, owner.Username, user.Username)
}

func TestGetUsersByUsernames(t *testing.T) {
	fixture := NewFixture(t)
	defer fixture.tearDown()
	seedUsers(fixture, owner, member1, member2)

	users, err := fixture.userStore.GetUsersByUsernames(fixture.ctx, owner.Username, member2.Username, "nobody")
	require.Nil(t, err)
	require.Len(t, users, 2)

	usernames := []string{users[0].Username, users[1].Username}
	assert.Contains(t, usernames, owner.Username)
	assert.Contains(t, usernames, member2.Username)
}

func TestUpdateUser(t *testing.T) {

	t.Run("update profile successfully", func(t *testing.T) {
		fixture := NewFixture(t)
		defer fixture.tearDown()
		seedUsers(fixture, owner)

		user, err := fixture.userStore.UpdateUser(fixture.ctx, owner.Username, UserUpdateInput{
			Name:   "New Name",
			Avatar: "https://example.com/a.png",
		})
		require.Nil(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "New Name", user.Name)
		assert.Equal(t, "https://example.com/a.png", user.Avatar)

		got, err := fixture.userStore.GetUserByUsername(fixture.ctx, owner.Username)
		require.Nil(t, err)
		assert.Equal(t, "New Name", got.Name)
	})

	t.Run("unknown user is nil", func(t *testing.T) {
		fixture := NewFixture(t)
		defer fixture.tearDown()

		user, err := fixture.userStore.UpdateUser(fixture.ctx, "nobody", UserUpdateInput{Name: "Name"})
		require.Nil(t, err)
		assert.Nil(t, user)
	})

	t.Run("invalid input is rejected", func(t *testing.T) {
		fixture := NewFixture(t)
		defer fixture.tearDown()
		seedUsers(fixture, owner)

		_, err := fixture.userStore.UpdateUser(fixture.ctx, owner.Username, UserUpdateInput{Name: ""})
		assert.ErrorIs(t, err, ErrInvalidInput)

		got, err := fixture.userStore.GetUserByUsername(fixture.ctx, owner.Username)
		require.Nil(t, err)
		assert.Equal(t, owner.Name, got.Name)
	})
}

func TestListUsers(t *testing.T) {
	fixture := NewFixture(t)
	defer fixture.tearDown()
	seedUsers(fixture, member2, owner, member1)

	users, err := fixture.userStore.ListUsers(fixture.ctx)
	require.Nil(t, err)
	require.Len(t, users, 3)

	// ordered by username
	assert.Equal(t, member1.Username, users[0].Username)
	assert.Equal(t, member2.Username, users[1].Username)
	assert.Equal(t, owner.Username, users[2].Username)
}

func TestComparePassword(t *testing.T) {
	fixture := NewFixture(t)
	defer fixture.tearDown()
	seedUsers(fixture, owner)

	ok, err := fixture.userStore.ComparePassword(fixture.ctx, owner.Username, owner.Password)
	require.Nil(t, err)
	assert.True(t, ok)

	ok, err = fixture.userStore.ComparePassword(fixture.ctx, owner.Username, "wrong")
	require.Nil(t, err)
	assert.False(t, ok)

	ok, err = fixture.userStore.ComparePassword(fixture.ctx, "nobody", owner.Password)
	require.Nil(t, err)
	assert.False(t, ok)
}

func TestSetOnline(t *testing.T) {
	fixture := NewFixture(t)
	defer fixture.tearDown()
	seedUsers(fixture, owner)

	err := fixture.userStore.SetOnline(fixture.ctx, owner.Username, true)
	require.Nil(t, err)

	user, err := fixture.userStore.GetUserByUsername(fixture.ctx, owner.Username)
	require.Nil(t, err)
	assert.True(t, user.IsOnline)
	require.NotNil(t, user.LastSeen)

	err = fixture.userStore.SetOnline(fixture.ctx, owner.Username, false)
	require.Nil(t, err)

	user, err = fixture.userStore.GetUserByUsername(fixture.ctx, owner.Username)
	require.Nil(t, err)
	assert.False(t, user.IsOnline)
}
