package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/linkfeed/models"
	"github.com/cppla/linkfeed/preview"
	"github.com/cppla/linkfeed/store"
	"github.com/cppla/linkfeed/utils"
)

const minPasswordLen = 5

// RegisterInput carries the sign-up form.
type RegisterInput struct {
	FirstName   string
	LastName    string
	Email       string
	Password    string
	PicturePath string
	Upload      *multipart.FileHeader
	Location    string
	Occupation  string
}

// UserService handles accounts, login and friend lists.
type UserService struct {
	users     store.UserStore
	assets    *preview.AssetStore
	blacklist *utils.TokenBlacklist
	tokenTTL  time.Duration
	logger    *zap.Logger
}

func NewUserService(users store.UserStore, assets *preview.AssetStore, blacklist *utils.TokenBlacklist, tokenTTL time.Duration, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{users: users, assets: assets, blacklist: blacklist, tokenTTL: tokenTTL, logger: logger}
}

// Register creates an account with a bcrypt password hash.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.FirstName = utils.Sanitize(strings.TrimSpace(in.FirstName))
	in.LastName = utils.Sanitize(strings.TrimSpace(in.LastName))
	if in.FirstName == "" || in.LastName == "" {
		return nil, fmt.Errorf("%w: firstName and lastName are required", store.ErrValidation)
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(in.Email))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid email", store.ErrValidation)
	}
	if len(in.Password) < minPasswordLen {
		return nil, fmt.Errorf("%w: password must be at least %d characters", store.ErrValidation, minPasswordLen)
	}
	picture := strings.TrimSpace(in.PicturePath)
	if picture != "" {
		if err := preview.ValidateName(picture); err != nil {
			return nil, fmt.Errorf("%w: picturePath: %w", store.ErrValidation, err)
		}
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	var written string
	if in.Upload != nil {
		name, err := s.assets.SaveUpload(in.Upload)
		if err != nil {
			return nil, fmt.Errorf("%w: picture: %w", store.ErrValidation, err)
		}
		picture, written = name, name
	}

	user := &models.User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        addr.Address,
		PasswordHash: hash,
		PicturePath:  picture,
		Friends:      models.StringList{},
		Location:     utils.Sanitize(strings.TrimSpace(in.Location)),
		Occupation:   utils.Sanitize(strings.TrimSpace(in.Occupation)),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if written != "" {
			_ = s.assets.Remove(written)
		}
		return nil, err
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return user, nil
}

// Login checks the password and issues a token.
func (s *UserService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if !utils.CheckPassword(user.PasswordHash, password) {
		return "", nil, ErrInvalidCredentials
	}
	token, err := utils.GenerateToken(user.ID, s.tokenTTL)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// Logout revokes the token described by claims until it expires.
func (s *UserService) Logout(ctx context.Context, claims *utils.Claims) {
	if claims == nil || claims.ExpiresAt == nil || s.blacklist == nil {
		return
	}
	s.blacklist.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}

func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.users.GetUser(ctx, id)
}

// Friends returns the friend-list projection of id's friends.
func (s *UserService) Friends(ctx context.Context, id string) ([]models.Friend, error) {
	user, err := s.users.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.friendsOf(ctx, user)
}

// ToggleFriend adds or removes friendID for id, on both sides, and returns
// id's friends afterwards.
func (s *UserService) ToggleFriend(ctx context.Context, id, friendID string) ([]models.Friend, error) {
	user, err := s.users.ToggleFriend(ctx, id, friendID)
	if err != nil {
		return nil, err
	}
	return s.friendsOf(ctx, user)
}

func (s *UserService) friendsOf(ctx context.Context, user *models.User) ([]models.Friend, error) {
	users, err := s.users.GetUsers(ctx, utils.UniqueStrings(user.Friends))
	if err != nil {
		return nil, err
	}
	out := make([]models.Friend, 0, len(users))
	for i := range users {
		out = append(out, users[i].AsFriend())
	}
	return out, nil
}
