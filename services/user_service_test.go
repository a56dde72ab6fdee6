package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/linkfeed/config"
	"github.com/cppla/linkfeed/models"
	"github.com/cppla/linkfeed/preview"
	"github.com/cppla/linkfeed/store"
	"github.com/cppla/linkfeed/utils"
)

func newUserService(t *testing.T) (*UserService, *store.Memory, *utils.TokenBlacklist) {
	t.Helper()
	config.Set(config.AppConfig{JWTSecret: "test-secret"})
	mem := store.NewMemory()
	assets, err := preview.NewAssetStore(t.TempDir(), 1)
	require.NoError(t, err)
	bl := utils.NewTokenBlacklist(utils.NewCache(nil))
	return NewUserService(mem, assets, bl, time.Hour, nil), mem, bl
}

func register(t *testing.T, svc *UserService, first, email string) *models.User {
	t.Helper()
	u, err := svc.Register(context.Background(), RegisterInput{
		FirstName: first, LastName: "Test", Email: email, Password: "hunter22",
	})
	require.NoError(t, err)
	return u
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _, _ := newUserService(t)
	ctx := context.Background()

	u := register(t, svc, "Ada", "Ada@Example.com")
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.NotEqual(t, "hunter22", u.PasswordHash)

	token, got, err := svc.Login(ctx, "ada@example.com", "hunter22")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, u.ID, got.ID)

	claims, err := utils.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)

	_, _, err = svc.Login(ctx, "ada@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = svc.Login(ctx, "nobody@example.com", "hunter22")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _ := newUserService(t)
	ctx := context.Background()

	cases := []RegisterInput{
		{LastName: "X", Email: "a@example.com", Password: "hunter22"},
		{FirstName: "A", LastName: "X", Email: "not-an-email", Password: "hunter22"},
		{FirstName: "A", LastName: "X", Email: "a@example.com", Password: "abc"},
		{FirstName: "A", LastName: "X", Email: "a@example.com", Password: "hunter22", PicturePath: "../x.png"},
	}
	for _, in := range cases {
		_, err := svc.Register(ctx, in)
		assert.ErrorIs(t, err, store.ErrValidation, "%+v", in)
	}

	register(t, svc, "Ada", "ada@example.com")
	_, err := svc.Register(ctx, RegisterInput{FirstName: "B", LastName: "Y", Email: "ADA@example.com", Password: "hunter22"})
	assert.ErrorIs(t, err, store.ErrDuplicateEmail)
}

func TestLogoutRevokesToken(t *testing.T) {
	svc, _, bl := newUserService(t)
	ctx := context.Background()
	register(t, svc, "Ada", "ada@example.com")

	token, _, err := svc.Login(ctx, "ada@example.com", "hunter22")
	require.NoError(t, err)
	claims, err := utils.ParseToken(token)
	require.NoError(t, err)
	assert.False(t, bl.IsRevoked(ctx, claims.ID))

	svc.Logout(ctx, claims)
	assert.True(t, bl.IsRevoked(ctx, claims.ID))
}

func TestToggleFriend(t *testing.T) {
	svc, _, _ := newUserService(t)
	ctx := context.Background()
	a := register(t, svc, "Ada", "ada@example.com")
	b := register(t, svc, "Bob", "bob@example.com")

	friends, err := svc.ToggleFriend(ctx, a.ID, b.ID)
	require.NoError(t, err)
	require.Len(t, friends, 1)
	assert.Equal(t, b.ID, friends[0].ID)
	assert.Equal(t, "Bob", friends[0].FirstName)

	back, err := svc.Friends(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, back, 1)
	assert.Equal(t, a.ID, back[0].ID)

	friends, err = svc.ToggleFriend(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.Empty(t, friends)
	assert.NotNil(t, friends)

	_, err = svc.Friends(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
