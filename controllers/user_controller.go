package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/linkfeed/middleware"
	"github.com/cppla/linkfeed/services"
	"github.com/cppla/linkfeed/utils"
)

// UserController serves profiles and friend lists.
type UserController struct {
	users *services.UserService
}

func NewUserController(users *services.UserService) *UserController {
	return &UserController{users: users}
}

func (u *UserController) GetUser(ctx *gin.Context) {
	user, err := u.users.GetUser(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.Success(ctx, user)
}

func (u *UserController) GetUserFriends(ctx *gin.Context) {
	friends, err := u.users.Friends(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.Success(ctx, friends)
}

// AddRemoveFriend toggles friendId on the caller's own list.
func (u *UserController) AddRemoveFriend(ctx *gin.Context) {
	id := ctx.Param("id")
	if id != middleware.CurrentUserID(ctx) {
		forbidden(ctx, "you can only change your own friend list")
		return
	}
	friends, err := u.users.ToggleFriend(ctx.Request.Context(), id, ctx.Param("friendId"))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	utils.Success(ctx, friends)
}
