package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/cppla/linkfeed/models"
)

// Mongo stores one document per post and per user. Likes and friend toggles are
// single pipeline updates evaluated server side, so there is no separate read
// step that could race.
type Mongo struct {
	client *mongo.Client
	posts  *mongo.Collection
	users  *mongo.Collection
}

// NewMongo connects, pings and ensures indexes.
func NewMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetServerSelectionTimeout(5*time.Second))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	db := client.Database(database)
	m := &Mongo{client: client, posts: db.Collection("posts"), users: db.Collection("users")}
	if err := m.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return m, nil
}

func (m *Mongo) ensureIndexes(ctx context.Context) error {
	if _, err := m.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("create users.email index: %w", err)
	}
	if _, err := m.posts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
	}); err != nil {
		return fmt.Errorf("create posts.userId index: %w", err)
	}
	return nil
}

func (m *Mongo) CreatePost(ctx context.Context, post *models.Post) error {
	if err := validatePost(post); err != nil {
		return err
	}
	post.Normalize()
	if post.ID == "" {
		post.ID = NewID()
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	if post.CreatedAt.IsZero() {
		post.CreatedAt = now
	}
	post.UpdatedAt = now
	post.Version = 1
	_, err := m.posts.InsertOne(ctx, post)
	return err
}

func (m *Mongo) GetPost(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := m.posts.FindOne(ctx, bson.M{"_id": id}).Decode(&post); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	post.Normalize()
	return &post, nil
}

func (m *Mongo) ListPosts(ctx context.Context) ([]models.Post, error) {
	return m.findPosts(ctx, bson.M{})
}

func (m *Mongo) ListPostsByAuthor(ctx context.Context, userID string) ([]models.Post, error) {
	return m.findPosts(ctx, bson.M{"userId": userID})
}

func (m *Mongo) findPosts(ctx context.Context, filter bson.M) ([]models.Post, error) {
	cur, err := m.posts.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	posts := []models.Post{}
	if err := cur.All(ctx, &posts); err != nil {
		return nil, err
	}
	return normalizePosts(posts), nil
}

// ToggleLike evaluates "liked ? unset : set true" on the server in one update.
func (m *Mongo) ToggleLike(ctx context.Context, postID, userID string) (*models.Post, error) {
	likes := bson.D{{Key: "$ifNull", Value: bson.A{"$likes", bson.D{}}}}
	field := bson.D{{Key: "$literal", Value: userID}}
	toggled := bson.D{{Key: "$cond", Value: bson.D{
		{Key: "if", Value: bson.D{{Key: "$eq", Value: bson.A{
			bson.D{{Key: "$getField", Value: bson.D{{Key: "field", Value: field}, {Key: "input", Value: likes}}}},
			true,
		}}}},
		{Key: "then", Value: bson.D{{Key: "$unsetField", Value: bson.D{{Key: "field", Value: field}, {Key: "input", Value: likes}}}}},
		{Key: "else", Value: bson.D{{Key: "$setField", Value: bson.D{{Key: "field", Value: field}, {Key: "input", Value: likes}, {Key: "value", Value: true}}}}},
	}}}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "likes", Value: toggled},
			{Key: "version", Value: bson.D{{Key: "$add", Value: bson.A{"$version", 1}}}},
			{Key: "updatedAt", Value: "$$NOW"},
		}}},
	}
	return m.updatePost(ctx, postID, update)
}

func (m *Mongo) AppendComment(ctx context.Context, postID, text string) (*models.Post, error) {
	update := bson.M{
		"$push":        bson.M{"comments": text},
		"$inc":         bson.M{"version": 1},
		"$currentDate": bson.M{"updatedAt": true},
	}
	return m.updatePost(ctx, postID, update)
}

func (m *Mongo) updatePost(ctx context.Context, postID string, update any) (*models.Post, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var post models.Post
	if err := m.posts.FindOneAndUpdate(ctx, bson.M{"_id": postID}, update, opts).Decode(&post); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	post.Normalize()
	return &post, nil
}

func (m *Mongo) DeletePost(ctx context.Context, id string) error {
	res, err := m.posts.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) CreateUser(ctx context.Context, user *models.User) error {
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
	now := time.Now().UTC().Truncate(time.Millisecond)
	user.CreatedAt, user.UpdatedAt = now, now
	if _, err := m.users.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (m *Mongo) GetUser(ctx context.Context, id string) (*models.User, error) {
	return m.findUser(ctx, bson.M{"_id": id})
}

func (m *Mongo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.findUser(ctx, bson.M{"email": normalizeEmail(email)})
}

func (m *Mongo) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	if err := m.users.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
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
func (m *Mongo) GetUsers(ctx context.Context, ids []string) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	cur, err := m.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	var users []models.User
	if err := cur.All(ctx, &users); err != nil {
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

// ToggleFriend flips friendID on the user document atomically, then mirrors
// the resulting membership onto the friend document.
func (m *Mongo) ToggleFriend(ctx context.Context, userID, friendID string) (*models.User, error) {
	if err := validateFriendPair(userID, friendID); err != nil {
		return nil, err
	}
	if _, err := m.findUser(ctx, bson.M{"_id": friendID}); err != nil {
		return nil, err
	}

	friends := bson.D{{Key: "$ifNull", Value: bson.A{"$friends", bson.A{}}}}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "friends", Value: bson.D{{Key: "$cond", Value: bson.D{
				{Key: "if", Value: bson.D{{Key: "$in", Value: bson.A{friendID, friends}}}},
				{Key: "then", Value: bson.D{{Key: "$filter", Value: bson.D{
					{Key: "input", Value: friends},
					{Key: "cond", Value: bson.D{{Key: "$ne", Value: bson.A{"$$this", friendID}}}},
				}}}},
				{Key: "else", Value: bson.D{{Key: "$concatArrays", Value: bson.A{friends, bson.A{friendID}}}}},
			}}}},
			{Key: "updatedAt", Value: "$$NOW"},
		}}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var user models.User
	if err := m.users.FindOneAndUpdate(ctx, bson.M{"_id": userID}, update, opts).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	mirror := bson.M{"$pull": bson.M{"friends": userID}, "$currentDate": bson.M{"updatedAt": true}}
	if user.Friends.Contains(friendID) {
		mirror = bson.M{"$addToSet": bson.M{"friends": userID}, "$currentDate": bson.M{"updatedAt": true}}
	}
	if _, err := m.users.UpdateOne(ctx, bson.M{"_id": friendID}, mirror); err != nil {
		return nil, fmt.Errorf("mirror friendship on %s: %w", friendID, err)
	}
	if user.Friends == nil {
		user.Friends = models.StringList{}
	}
	return &user, nil
}

// Close disconnects the client.
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
