package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/linkfeed/middleware"
	"github.com/cppla/linkfeed/services"
	"github.com/cppla/linkfeed/utils"
)

// PostController serves the post and feed endpoints.
type PostController struct {
	posts *services.PostService
	feed  *services.FeedService
}

// NewPostController creates a new PostController instance.
func NewPostController(posts *services.PostService, feed *services.FeedService) *PostController {
	return &PostController{posts: posts, feed: feed}
}

// CreatePost accepts JSON or a multipart form with an optional "picture" file.
// On success it answers 201 with the whole feed; every failure is a 409.
func (p *PostController) CreatePost(ctx *gin.Context) {
	var req struct {
		UserID      string `json:"userId" form:"userId"`
		URL         string `json:"url" form:"url"`
		Description string `json:"description" form:"description"`
		PicturePath string `json:"picturePath" form:"picturePath"`
	}
	if err := ctx.ShouldBind(&req); err != nil {
		utils.Error(ctx, http.StatusConflict, "ValidationError", "invalid request payload")
		return
	}

	userID := middleware.CurrentUserID(ctx)
	if req.UserID != "" && req.UserID != userID {
		forbidden(ctx, "userId does not match the authenticated user")
		return
	}

	in := services.CreatePostInput{
		URL:         strings.TrimSpace(req.URL),
		Description: req.Description,
		PicturePath: req.PicturePath,
	}
	if strings.HasPrefix(ctx.ContentType(), "multipart/") {
		fh, err := ctx.FormFile("picture")
		switch {
		case err == nil:
			in.Upload = fh
			in.PicturePath = ""
		case !errors.Is(err, http.ErrMissingFile):
			utils.Error(ctx, http.StatusConflict, "ValidationError", "invalid picture upload")
			return
		}
	}

	if _, err := p.posts.Create(ctx.Request.Context(), userID, in); err != nil {
		status, kind := classify(err)
		message := err.Error()
		if status == http.StatusInternalServerError {
			utils.Logger.Error("create post", zap.String("user_id", userID), zap.Error(err))
			message = internalErrorMessage
		}
		utils.Error(ctx, http.StatusConflict, kind, message)
		return
	}

	all, err := p.feed.Feed(ctx.Request.Context())
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.Respond(ctx, http.StatusCreated, all)
}

// ListPosts returns the whole feed, newest first.
func (p *PostController) ListPosts(ctx *gin.Context) {
	all, err := p.feed.Feed(ctx.Request.Context())
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.Success(ctx, all)
}

// ListUserPosts returns one author's posts, newest first.
func (p *PostController) ListUserPosts(ctx *gin.Context) {
	posts, err := p.feed.UserFeed(ctx.Request.Context(), ctx.Param("userId"))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.Success(ctx, posts)
}

// LikePost toggles the caller's like.
func (p *PostController) LikePost(ctx *gin.Context) {
	var req struct {
		UserID string `json:"userId"`
	}
	if ctx.Request.ContentLength != 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			badRequest(ctx, "invalid request payload")
			return
		}
	}
	userID := middleware.CurrentUserID(ctx)
	if req.UserID != "" && req.UserID != userID {
		forbidden(ctx, "userId does not match the authenticated user")
		return
	}

	post, err := p.posts.ToggleLike(ctx.Request.Context(), ctx.Param("id"), userID)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.Success(ctx, post)
}

// CommentPost appends a comment.
func (p *PostController) CommentPost(ctx *gin.Context) {
	var req struct {
		Comment string `json:"comment" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, "comment is required")
		return
	}
	post, err := p.posts.AddComment(ctx.Request.Context(), ctx.Param("id"), req.Comment)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.Success(ctx, post)
}
