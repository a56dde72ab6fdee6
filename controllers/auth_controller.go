package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/linkfeed/middleware"
	"github.com/cppla/linkfeed/services"
	"github.com/cppla/linkfeed/utils"
)

// AuthController handles registration, login and logout.
type AuthController struct {
	users *services.UserService
}

func NewAuthController(users *services.UserService) *AuthController {
	return &AuthController{users: users}
}

// Register accepts JSON or a multipart form with an optional "picture" file.
func (a *AuthController) Register(ctx *gin.Context) {
	var req struct {
		FirstName   string `json:"firstName" form:"firstName"`
		LastName    string `json:"lastName" form:"lastName"`
		Email       string `json:"email" form:"email"`
		Password    string `json:"password" form:"password"`
		PicturePath string `json:"picturePath" form:"picturePath"`
		Location    string `json:"location" form:"location"`
		Occupation  string `json:"occupation" form:"occupation"`
	}
	if err := ctx.ShouldBind(&req); err != nil {
		badRequest(ctx, "invalid request payload")
		return
	}

	in := services.RegisterInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Password:    req.Password,
		PicturePath: req.PicturePath,
		Location:    req.Location,
		Occupation:  req.Occupation,
	}
	if strings.HasPrefix(ctx.ContentType(), "multipart/") {
		fh, err := ctx.FormFile("picture")
		switch {
		case err == nil:
			in.Upload = fh
			in.PicturePath = ""
		case !errors.Is(err, http.ErrMissingFile):
			badRequest(ctx, "invalid picture upload")
			return
		}
	}

	user, err := a.users.Register(ctx.Request.Context(), in)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.Respond(ctx, http.StatusCreated, user)
}

// Login verifies credentials and returns {token, user}.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, "email and password are required")
		return
	}

	token, user, err := a.users.Login(ctx.Request.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"token": token, "user": user})
}

// Logout revokes the bearer token used for this request.
func (a *AuthController) Logout(ctx *gin.Context) {
	a.users.Logout(ctx.Request.Context(), middleware.CurrentClaims(ctx))
	utils.Success(ctx, gin.H{"message": "logged out"})
}
