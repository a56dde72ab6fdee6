package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"

	"go.uber.org/zap"

	"github.com/cppla/linkfeed/models"
	"github.com/cppla/linkfeed/preview"
	"github.com/cppla/linkfeed/store"
)

const maxCommentLen = 2000

// PreviewResolver is satisfied by *preview.Pool.
type PreviewResolver interface {
	Resolve(ctx context.Context, url string) (*preview.Preview, error)
}

// CreatePostInput is what a caller submits. At most one of PicturePath and
// Upload should be set; when neither is, the preview resolver supplies one.
type CreatePostInput struct {
	URL         string
	Description string
	PicturePath string
	Upload      *multipart.FileHeader
}

// PostService owns post creation and the per-post mutations.
type PostService struct {
	posts    store.PostStore
	users    store.UserStore
	resolver PreviewResolver
	assets   *preview.AssetStore
	logger   *zap.Logger
}

// NewPostService wires the service. resolver may be nil, in which case every
// post must bring its own picture.
func NewPostService(posts store.PostStore, users store.UserStore, resolver PreviewResolver, assets *preview.AssetStore, logger *zap.Logger) *PostService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostService{posts: posts, users: users, resolver: resolver, assets: assets, logger: logger}
}

// Create validates the input, resolves a picture when none was supplied and
// persists the post. Nothing is stored when any step fails, and a picture
// written by this call is removed again.
func (s *PostService) Create(ctx context.Context, authorID string, in CreatePostInput) (*models.Post, error) {
	rawURL := strings.TrimSpace(in.URL)
	if _, err := preview.ValidateURL(rawURL); err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrValidation, err)
	}
	picture := strings.TrimSpace(in.PicturePath)
	if picture != "" {
		if err := preview.ValidateName(picture); err != nil {
			return nil, fmt.Errorf("%w: picturePath: %w", store.ErrValidation, err)
		}
	}

	author, err := s.users.GetUser(ctx, authorID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrAuthorNotFound, authorID)
		}
		return nil, err
	}

	post := &models.Post{
		UserID:          author.ID,
		FirstName:       author.FirstName,
		LastName:        author.LastName,
		UserPicturePath: author.PicturePath,
		URL:             rawURL,
		Description:     in.Description,
		PicturePath:     picture,
	}

	var written string
	switch {
	case in.Upload != nil:
		name, err := s.assets.SaveUpload(in.Upload)
		if err != nil {
			return nil, fmt.Errorf("%w: picture: %w", store.ErrValidation, err)
		}
		post.PicturePath, written = name, name
	case picture == "":
		if s.resolver == nil {
			return nil, fmt.Errorf("%w: %w", ErrPreviewResolutionFailed, preview.ErrResolverDisabled)
		}
		p, err := s.resolver.Resolve(ctx, post.URL)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrPreviewResolutionFailed, err)
		}
		post.PicturePath, post.Summary, written = p.PicturePath, p.Summary, p.PicturePath
	}

	if err := s.posts.CreatePost(ctx, post); err != nil {
		if written != "" {
			if rmErr := s.assets.Remove(written); rmErr != nil {
				s.logger.Warn("remove orphaned picture", zap.String("file", written), zap.Error(rmErr))
			}
		}
		return nil, err
	}
	s.logger.Info("post created",
		zap.String("post_id", post.ID),
		zap.String("user_id", post.UserID),
		zap.String("picture", post.PicturePath))
	return post, nil
}

// ToggleLike flips userID's like on postID and returns the post afterwards.
func (s *PostService) ToggleLike(ctx context.Context, postID, userID string) (*models.Post, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: userId is required", store.ErrValidation)
	}
	return s.posts.ToggleLike(ctx, postID, userID)
}

// AddComment appends text to postID exactly as submitted.
func (s *PostService) AddComment(ctx context.Context, postID, text string) (*models.Post, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: comment is empty", store.ErrValidation)
	}
	if len([]rune(text)) > maxCommentLen {
		return nil, fmt.Errorf("%w: comment longer than %d characters", store.ErrValidation, maxCommentLen)
	}
	return s.posts.AppendComment(ctx, postID, text)
}
