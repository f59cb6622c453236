package mongodb

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/coderepojon/authcore/domain"
	"github.com/coderepojon/authcore/errors"
)

// UserRepository implements domain.UserRepository on MongoDB.
type UserRepository struct {
	coll *mongo.Collection
}

// NewUserRepository creates the repository and ensures the unique username
// index.
func NewUserRepository(ctx context.Context, db *mongo.Database) (*UserRepository, error) {
	repo := &UserRepository{coll: db.Collection(UsersCollection)}

	_, err := repo.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		log.Warn().Err(err).Msg("issue creating indexes for auth_users collection")
	}
	return repo, nil
}

// CreateUser inserts a new user record. Used by provisioning and tests, not
// by the lifecycle core.
func (r *UserRepository) CreateUser(ctx context.Context, user *domain.User) error {
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	_, err := r.coll.InsertOne(ctx, user)
	return err
}

func (r *UserRepository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

// SetCurrentSession moves or clears the user's current-session pointer.
func (r *UserRepository) SetCurrentSession(ctx context.Context, userID string, sessionID *string) error {
	update := bson.M{
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}
	if sessionID == nil {
		update["$unset"] = bson.M{"current_session_id": ""}
	} else {
		update["$set"].(bson.M)["current_session_id"] = *sessionID
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errors.ErrNotFound
	}
	return nil
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var user domain.User
	err := r.coll.FindOne(ctx, filter).Decode(&user)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

var _ domain.UserRepository = (*UserRepository)(nil)
