package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/linkfeed/models"
)

// runStoreContract exercises behaviour every backend must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	newUser := func(t *testing.T, s Store, email string) *models.User {
		u := &models.User{FirstName: "Ada", LastName: "Lovelace", Email: email, PasswordHash: "x"}
		require.NoError(t, s.CreateUser(ctx, u))
		return u
	}
	newPost := func(t *testing.T, s Store, userID string) *models.Post {
		p := &models.Post{
			UserID:      userID,
			FirstName:   "Ada",
			LastName:    "Lovelace",
			URL:         "https://example.com",
			PicturePath: "example-1.jpg",
		}
		require.NoError(t, s.CreatePost(ctx, p))
		return p
	}

	t.Run("create and get post", func(t *testing.T) {
		s := newStore(t)
		p := newPost(t, s, "u1")
		require.NotEmpty(t, p.ID)

		got, err := s.GetPost(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, p.URL, got.URL)
		assert.Equal(t, "example-1.jpg", got.PicturePath)
		assert.NotNil(t, got.Likes)
		assert.Empty(t, got.Likes)
		assert.NotNil(t, got.Comments)
		assert.Empty(t, got.Comments)
	})

	t.Run("create rejects missing picture", func(t *testing.T) {
		s := newStore(t)
		err := s.CreatePost(ctx, &models.Post{UserID: "u1", URL: "https://example.com"})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("missing post", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetPost(ctx, "does-not-exist")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.ToggleLike(ctx, "does-not-exist", "u1")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.AppendComment(ctx, "does-not-exist", "hi")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, s.DeletePost(ctx, "does-not-exist"), ErrNotFound)
	})

	t.Run("toggle like twice restores state", func(t *testing.T) {
		s := newStore(t)
		p := newPost(t, s, "u1")

		liked, err := s.ToggleLike(ctx, p.ID, "u2")
		require.NoError(t, err)
		assert.True(t, liked.Likes.Has("u2"))
		assert.Equal(t, 1, liked.LikeCount())

		unliked, err := s.ToggleLike(ctx, p.ID, "u2")
		require.NoError(t, err)
		assert.False(t, unliked.Likes.Has("u2"))
		assert.Equal(t, 0, unliked.LikeCount())
	})

	t.Run("concurrent likes are not lost", func(t *testing.T) {
		s := newStore(t)
		p := newPost(t, s, "u1")

		const n = 20
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			succeeded = map[string]bool{}
		)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				uid := fmt.Sprintf("liker-%d", i)
				_, err := s.ToggleLike(ctx, p.ID, uid)
				if err != nil {
					// Optimistic backends may give up under contention but must say so.
					assert.True(t, errors.Is(err, ErrConcurrentModification), "unexpected error: %v", err)
					return
				}
				mu.Lock()
				succeeded[uid] = true
				mu.Unlock()
			}(i)
		}
		wg.Wait()

		got, err := s.GetPost(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, len(succeeded), got.LikeCount())
		for uid := range succeeded {
			assert.True(t, got.Likes.Has(uid), uid)
		}
	})

	t.Run("comments append in order", func(t *testing.T) {
		s := newStore(t)
		p := newPost(t, s, "u1")
		_, err := s.AppendComment(ctx, p.ID, "first")
		require.NoError(t, err)
		got, err := s.AppendComment(ctx, p.ID, "second")
		require.NoError(t, err)
		assert.Equal(t, models.StringList{"first", "second"}, got.Comments)
	})

	t.Run("list by author", func(t *testing.T) {
		s := newStore(t)
		newPost(t, s, "alice")
		newPost(t, s, "alice")
		newPost(t, s, "bob")

		all, err := s.ListPosts(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 3)

		alice, err := s.ListPostsByAuthor(ctx, "alice")
		require.NoError(t, err)
		assert.Len(t, alice, 2)

		none, err := s.ListPostsByAuthor(ctx, "nobody")
		require.NoError(t, err)
		assert.NotNil(t, none)
		assert.Empty(t, none)
	})

	t.Run("delete post", func(t *testing.T) {
		s := newStore(t)
		p := newPost(t, s, "u1")
		require.NoError(t, s.DeletePost(ctx, p.ID))
		_, err := s.GetPost(ctx, p.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("users", func(t *testing.T) {
		s := newStore(t)
		u := newUser(t, s, "Ada@Example.com")

		byEmail, err := s.GetUserByEmail(ctx, "ada@example.com")
		require.NoError(t, err)
		assert.Equal(t, u.ID, byEmail.ID)

		err = s.CreateUser(ctx, &models.User{FirstName: "A", LastName: "B", Email: "ada@example.com", PasswordHash: "x"})
		assert.ErrorIs(t, err, ErrDuplicateEmail)

		_, err = s.GetUser(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("toggle friend is symmetric", func(t *testing.T) {
		s := newStore(t)
		a := newUser(t, s, "a@example.com")
		b := newUser(t, s, "b@example.com")

		got, err := s.ToggleFriend(ctx, a.ID, b.ID)
		require.NoError(t, err)
		assert.True(t, got.Friends.Contains(b.ID))
		other, err := s.GetUser(ctx, b.ID)
		require.NoError(t, err)
		assert.True(t, other.Friends.Contains(a.ID))

		friends, err := s.GetUsers(ctx, got.Friends)
		require.NoError(t, err)
		require.Len(t, friends, 1)
		assert.Equal(t, b.ID, friends[0].ID)

		got, err = s.ToggleFriend(ctx, a.ID, b.ID)
		require.NoError(t, err)
		assert.False(t, got.Friends.Contains(b.ID))
		other, err = s.GetUser(ctx, b.ID)
		require.NoError(t, err)
		assert.False(t, other.Friends.Contains(a.ID))

		_, err = s.ToggleFriend(ctx, a.ID, a.ID)
		assert.ErrorIs(t, err, ErrValidation)
		_, err = s.ToggleFriend(ctx, a.ID, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
