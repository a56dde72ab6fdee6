package services

import (
	"context"
	"slices"
	"strings"

	"github.com/cppla/linkfeed/models"
	"github.com/cppla/linkfeed/store"
)

// FeedService assembles the reverse-chronological feed. Every call re-reads
// the store.
type FeedService struct {
	posts store.PostStore
}

func NewFeedService(posts store.PostStore) *FeedService {
	return &FeedService{posts: posts}
}

// Feed returns every post, newest first.
func (f *FeedService) Feed(ctx context.Context) ([]models.Post, error) {
	posts, err := f.posts.ListPosts(ctx)
	if err != nil {
		return nil, err
	}
	return SortFeed(posts), nil
}

// UserFeed returns authorID's posts, newest first.
func (f *FeedService) UserFeed(ctx context.Context, authorID string) ([]models.Post, error) {
	posts, err := f.posts.ListPostsByAuthor(ctx, authorID)
	if err != nil {
		return nil, err
	}
	return SortFeed(posts), nil
}

// SortFeed orders posts by createdAt descending, then id descending, in place.
// A nil slice comes back empty.
func SortFeed(posts []models.Post) []models.Post {
	if posts == nil {
		return []models.Post{}
	}
	slices.SortFunc(posts, func(a, b models.Post) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	return posts
}
