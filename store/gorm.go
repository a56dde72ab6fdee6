package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/linkfeed/models"
)

// Gorm persists posts and users in a relational database. Post mutations use a
// version column: read, mutate in memory, then write only if the version is
// unchanged, retrying a bounded number of times.
type Gorm struct {
	db *gorm.DB
}

// NewGorm wraps an opened gorm connection.
func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

// Migrate creates missing tables and columns.
func (g *Gorm) Migrate() error {
	return g.db.AutoMigrate(&models.User{}, &models.Post{})
}

func (g *Gorm) CreatePost(ctx context.Context, post *models.Post) error {
	if err := validatePost(post); err != nil {
		return err
	}
	post.Normalize()
	if post.ID == "" {
		post.ID = NewID()
	}
	post.Version = 1
	return g.db.WithContext(ctx).Create(post).Error
}

func (g *Gorm) GetPost(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := g.db.WithContext(ctx).First(&post, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	post.Normalize()
	return &post, nil
}

func (g *Gorm) ListPosts(ctx context.Context) ([]models.Post, error) {
	var posts []models.Post
	if err := g.db.WithContext(ctx).Find(&posts).Error; err != nil {
		return nil, err
	}
	return normalizePosts(posts), nil
}

func (g *Gorm) ListPostsByAuthor(ctx context.Context, userID string) ([]models.Post, error) {
	var posts []models.Post
	if err := g.db.WithContext(ctx).Where("user_id = ?", userID).Find(&posts).Error; err != nil {
		return nil, err
	}
	return normalizePosts(posts), nil
}

func (g *Gorm) ToggleLike(ctx context.Context, postID, userID string) (*models.Post, error) {
	return g.updatePost(ctx, postID, func(p *models.Post) map[string]any {
		p.Likes.Toggle(userID)
		return map[string]any{"likes": p.Likes}
	})
}

func (g *Gorm) AppendComment(ctx context.Context, postID, text string) (*models.Post, error) {
	return g.updatePost(ctx, postID, func(p *models.Post) map[string]any {
		p.Comments = append(p.Comments, text)
		return map[string]any{"comments": p.Comments}
	})
}

// updatePost runs the version-checked read-modify-write cycle.
func (g *Gorm) updatePost(ctx context.Context, postID string, apply func(*models.Post) map[string]any) (*models.Post, error) {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		post, err := g.GetPost(ctx, postID)
		if err != nil {
			return nil, err
		}

		changes := apply(post)
		now := time.Now()
		changes["version"] = gorm.Expr("version + 1")
		changes["updated_at"] = now

		res := g.db.WithContext(ctx).
			Model(&models.Post{}).
			Where("id = ? AND version = ?", post.ID, post.Version).
			Updates(changes)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 1 {
			post.Version++
			post.UpdatedAt = now
			return post, nil
		}
	}
	return nil, fmt.Errorf("%w: post %s", ErrConcurrentModification, postID)
}

func (g *Gorm) DeletePost(ctx context.Context, id string) error {
	res := g.db.WithContext(ctx).Delete(&models.Post{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (g *Gorm) CreateUser(ctx context.Context, user *models.User) error {
	if err := validateUser(user); err != nil {
		return err
	}
	user.Email = normalizeEmail(user.Email)
	if user.Friends == nil {
		user.Friends = models.StringList{}
	}
	if user.ID == "" {
		user.ID = NewID()
	}
	if err := g.db.WithContext(ctx).Create(user).Error; err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (g *Gorm) GetUser(ctx context.Context, id string) (*models.User, error) {
	return g.findUser(g.db.WithContext(ctx), "id = ?", id)
}

func (g *Gorm) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return g.findUser(g.db.WithContext(ctx), "email = ?", normalizeEmail(email))
}

func (g *Gorm) findUser(tx *gorm.DB, query string, args ...any) (*models.User, error) {
	var user models.User
	if err := tx.Where(query, args...).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if user.Friends == nil {
		user.Friends = models.StringList{}
	}
	return &user, nil
}

// GetUsers returns the users that exist, in the order of ids.
func (g *Gorm) GetUsers(ctx context.Context, ids []string) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	var users []models.User
	if err := g.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	out := make([]models.User, 0, len(users))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

// ToggleFriend locks both rows in id order so two opposite toggles cannot deadlock.
func (g *Gorm) ToggleFriend(ctx context.Context, userID, friendID string) (*models.User, error) {
	if err := validateFriendPair(userID, friendID); err != nil {
		return nil, err
	}
	var result *models.User
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		first, second := userID, friendID
		if second < first {
			first, second = second, first
		}
		locked := make(map[string]*models.User, 2)
		for _, id := range []string{first, second} {
			u, err := g.findUser(tx.Clauses(clause.Locking{Strength: "UPDATE"}), "id = ?", id)
			if err != nil {
				return err
			}
			locked[id] = u
		}

		user, friend := locked[userID], locked[friendID]
		if user.Friends.Contains(friendID) {
			user.Friends = removeString(user.Friends, friendID)
			friend.Friends = removeString(friend.Friends, userID)
		} else {
			user.Friends = append(user.Friends, friendID)
			if !friend.Friends.Contains(userID) {
				friend.Friends = append(friend.Friends, userID)
			}
		}
		for _, u := range []*models.User{user, friend} {
			if err := tx.Model(&models.User{}).Where("id = ?", u.ID).Update("friends", u.Friends).Error; err != nil {
				return err
			}
		}
		result = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Close releases the underlying connection pool.
func (g *Gorm) Close(ctx context.Context) error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func normalizePosts(posts []models.Post) []models.Post {
	if posts == nil {
		return []models.Post{}
	}
	for i := range posts {
		posts[i].Normalize()
	}
	return posts
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// mysql driver reports 1062 unless TranslateError is enabled
	return strings.Contains(err.Error(), "Duplicate entry")
}
