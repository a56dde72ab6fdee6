package store

import (
	"context"
	"sync"
	"time"

	"github.com/cppla/linkfeed/models"
)

// Memory keeps everything in process. Records are copy-on-write: a mutation
// clones the record under that record's lock and swaps the pointer, so readers
// never observe a half-applied update.
type Memory struct {
	mu        sync.RWMutex
	posts     map[string]*models.Post
	users     map[string]*models.User
	postLocks map[string]*sync.Mutex
	userMu    sync.Mutex
	now       func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		posts:     make(map[string]*models.Post),
		users:     make(map[string]*models.User),
		postLocks: make(map[string]*sync.Mutex),
		now:       time.Now,
	}
}

// CreatePost stores a copy of post and fills id, version and timestamps on the argument.
func (m *Memory) CreatePost(ctx context.Context, post *models.Post) error {
	if err := validatePost(post); err != nil {
		return err
	}
	post.Normalize()
	if post.ID == "" {
		post.ID = NewID()
	}
	now := m.now()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = now
	}
	post.UpdatedAt = now
	post.Version = 1

	m.mu.Lock()
	defer m.mu.Unlock()
	m.posts[post.ID] = post.Clone()
	m.postLocks[post.ID] = &sync.Mutex{}
	return nil
}

func (m *Memory) GetPost(ctx context.Context, id string) (*models.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p.Clone(), nil
}

func (m *Memory) ListPosts(ctx context.Context) ([]models.Post, error) {
	return m.filterPosts(func(*models.Post) bool { return true }), nil
}

func (m *Memory) ListPostsByAuthor(ctx context.Context, userID string) ([]models.Post, error) {
	return m.filterPosts(func(p *models.Post) bool { return p.UserID == userID }), nil
}

func (m *Memory) filterPosts(keep func(*models.Post) bool) []models.Post {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Post, 0, len(m.posts))
	for _, p := range m.posts {
		if keep(p) {
			out = append(out, *p.Clone())
		}
	}
	return out
}

func (m *Memory) ToggleLike(ctx context.Context, postID, userID string) (*models.Post, error) {
	return m.mutatePost(postID, func(p *models.Post) {
		p.Likes.Toggle(userID)
	})
}

func (m *Memory) AppendComment(ctx context.Context, postID, text string) (*models.Post, error) {
	return m.mutatePost(postID, func(p *models.Post) {
		p.Comments = append(p.Comments, text)
	})
}

// mutatePost serializes writers of one post while leaving other posts untouched.
func (m *Memory) mutatePost(postID string, apply func(*models.Post)) (*models.Post, error) {
	m.mu.RLock()
	lock, ok := m.postLocks[postID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	lock.Lock()
	defer lock.Unlock()

	m.mu.RLock()
	current, ok := m.posts[postID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	next := current.Clone()
	apply(next)
	next.Version++
	next.UpdatedAt = m.now()

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[postID]; !ok {
		return nil, ErrNotFound
	}
	m.posts[postID] = next
	return next.Clone(), nil
}

func (m *Memory) DeletePost(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[id]; !ok {
		return ErrNotFound
	}
	delete(m.posts, id)
	delete(m.postLocks, id)
	return nil
}

func (m *Memory) CreateUser(ctx context.Context, user *models.User) error {
	if err := validateUser(user); err != nil {
		return err
	}
	user.Email = normalizeEmail(user.Email)
	if user.Friends == nil {
		user.Friends = models.StringList{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return ErrDuplicateEmail
		}
	}
	if user.ID == "" {
		user.ID = NewID()
	}
	now := m.now()
	user.CreatedAt = now
	user.UpdatedAt = now
	m.users[user.ID] = user.Clone()
	return nil
}

func (m *Memory) GetUser(ctx context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return u.Clone(), nil
}

func (m *Memory) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	email = normalizeEmail(email)
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			return u.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

// GetUsers returns the users that exist, in the order of ids.
func (m *Memory) GetUsers(ctx context.Context, ids []string) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out = append(out, *u.Clone())
		}
	}
	return out, nil
}

func (m *Memory) ToggleFriend(ctx context.Context, userID, friendID string) (*models.User, error) {
	if err := validateFriendPair(userID, friendID); err != nil {
		return nil, err
	}
	m.userMu.Lock()
	defer m.userMu.Unlock()

	m.mu.RLock()
	user, ok1 := m.users[userID]
	friend, ok2 := m.users[friendID]
	m.mu.RUnlock()
	if !ok1 || !ok2 {
		return nil, ErrNotFound
	}

	nextUser, nextFriend := user.Clone(), friend.Clone()
	now := m.now()
	if nextUser.Friends.Contains(friendID) {
		nextUser.Friends = removeString(nextUser.Friends, friendID)
		nextFriend.Friends = removeString(nextFriend.Friends, userID)
	} else {
		nextUser.Friends = append(nextUser.Friends, friendID)
		if !nextFriend.Friends.Contains(userID) {
			nextFriend.Friends = append(nextFriend.Friends, userID)
		}
	}
	nextUser.UpdatedAt, nextFriend.UpdatedAt = now, now

	m.mu.Lock()
	m.users[userID] = nextUser
	m.users[friendID] = nextFriend
	m.mu.Unlock()
	return nextUser.Clone(), nil
}

func (m *Memory) Close(ctx context.Context) error { return nil }

func removeString(list models.StringList, v string) models.StringList {
	out := make(models.StringList, 0, len(list))
	for _, it := range list {
		if it != v {
			out = append(out, it)
		}
	}
	return out
}
