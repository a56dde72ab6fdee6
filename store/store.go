// Package store persists posts and users. Every backend guarantees that
// concurrent mutations of the same post never lose an update.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/cppla/linkfeed/models"
)

// maxUpdateAttempts bounds the optimistic read-modify-write loop.
const maxUpdateAttempts = 3

// PostStore is the post collection.
type PostStore interface {
	CreatePost(ctx context.Context, post *models.Post) error
	GetPost(ctx context.Context, id string) (*models.Post, error)
	// ListPosts and ListPostsByAuthor return posts in no particular order.
	ListPosts(ctx context.Context) ([]models.Post, error)
	ListPostsByAuthor(ctx context.Context, userID string) ([]models.Post, error)
	// ToggleLike flips userID in the post's likes and returns the post after the flip.
	ToggleLike(ctx context.Context, postID, userID string) (*models.Post, error)
	AppendComment(ctx context.Context, postID, text string) (*models.Post, error)
	DeletePost(ctx context.Context, id string) error
}

// UserStore is the user directory.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUsers(ctx context.Context, ids []string) ([]models.User, error)
	// ToggleFriend adds or removes friendID on userID and mirrors the change on
	// friendID. Returns userID's record afterwards.
	ToggleFriend(ctx context.Context, userID, friendID string) (*models.User, error)
}

// Store bundles both collections behind one backend.
type Store interface {
	PostStore
	UserStore
	Close(ctx context.Context) error
}

// NewID returns a time-ordered identifier so ids sort like creation times.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func validatePost(p *models.Post) error {
	if p == nil {
		return fmt.Errorf("%w: post is nil", ErrValidation)
	}
	if strings.TrimSpace(p.UserID) == "" {
		return fmt.Errorf("%w: userId is required", ErrValidation)
	}
	if strings.TrimSpace(p.URL) == "" {
		return fmt.Errorf("%w: url is required", ErrValidation)
	}
	if strings.TrimSpace(p.PicturePath) == "" {
		return fmt.Errorf("%w: picturePath is required", ErrValidation)
	}
	return nil
}

func validateUser(u *models.User) error {
	if u == nil {
		return fmt.Errorf("%w: user is nil", ErrValidation)
	}
	if strings.TrimSpace(u.Email) == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	if strings.TrimSpace(u.FirstName) == "" || strings.TrimSpace(u.LastName) == "" {
		return fmt.Errorf("%w: firstName and lastName are required", ErrValidation)
	}
	return nil
}

func validateFriendPair(userID, friendID string) error {
	if userID == "" || friendID == "" {
		return fmt.Errorf("%w: user ids are required", ErrValidation)
	}
	if userID == friendID {
		return fmt.Errorf("%w: cannot befriend yourself", ErrValidation)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
