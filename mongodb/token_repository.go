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

// TokenRepository implements domain.TokenRepository on MongoDB. Records are
// never deleted; there is deliberately no TTL index on expires_at because
// expired and revoked tokens stay behind as the audit trail.
type TokenRepository struct {
	coll *mongo.Collection
}

// NewTokenRepository creates the repository and ensures its indexes:
// token_value unique (the DuplicateToken guard), plus lookup indexes on
// user_id and session_id.
func NewTokenRepository(ctx context.Context, db *mongo.Database) (*TokenRepository, error) {
	repo := &TokenRepository{coll: db.Collection(TokensCollection)}

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "token_value", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "session_id", Value: 1}, {Key: "status", Value: 1}}},
	}
	if _, err := repo.coll.Indexes().CreateMany(ctx, indexes); err != nil {
		log.Warn().Err(err).Msg("issue creating indexes for auth_tokens collection")
	}
	return repo, nil
}

func (r *TokenRepository) Store(ctx context.Context, token *domain.StoredToken) error {
	_, err := r.coll.InsertOne(ctx, token)
	if mongo.IsDuplicateKeyError(err) {
		return errors.ErrDuplicateToken
	}
	return err
}

func (r *TokenRepository) FindByValue(ctx context.Context, tokenValue string) (*domain.StoredToken, error) {
	var token domain.StoredToken
	err := r.coll.FindOne(ctx, bson.M{"token_value": tokenValue}).Decode(&token)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *TokenRepository) FindActiveBySession(ctx context.Context, sessionID string) ([]*domain.StoredToken, error) {
	return r.findAll(ctx, bson.M{
		"session_id": sessionID,
		"status":     domain.TokenStatusActive,
	})
}

func (r *TokenRepository) FindActiveByUser(ctx context.Context, userID string) ([]*domain.StoredToken, error) {
	return r.findAll(ctx, bson.M{
		"user_id":    userID,
		"status":     domain.TokenStatusActive,
		"expires_at": bson.M{"$gt": time.Now().UTC()},
	})
}

func (r *TokenRepository) RevokeMany(ctx context.Context, tokens []*domain.StoredToken) error {
	if len(tokens) == 0 {
		return nil
	}
	values := make([]string, 0, len(tokens))
	for _, t := range tokens {
		values = append(values, t.TokenValue)
	}
	now := time.Now().UTC()
	_, err := r.coll.UpdateMany(ctx,
		bson.M{"token_value": bson.M{"$in": values}, "status": domain.TokenStatusActive},
		bson.M{"$set": bson.M{"status": domain.TokenStatusRevoked, "revoked_at": now}},
	)
	return err
}

// RevokeActiveByValue is the atomic compare-and-flip used by the rotation
// critical section: the filter on status ACTIVE makes the update succeed
// for exactly one of any number of concurrent callers.
func (r *TokenRepository) RevokeActiveByValue(ctx context.Context, tokenValue string) (bool, error) {
	now := time.Now().UTC()
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"token_value": tokenValue, "status": domain.TokenStatusActive},
		bson.M{"$set": bson.M{"status": domain.TokenStatusRevoked, "revoked_at": now}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (r *TokenRepository) ExistsActiveFor(ctx context.Context, tokenValue, userID string) (bool, error) {
	count, err := r.coll.CountDocuments(ctx, bson.M{
		"token_value": tokenValue,
		"user_id":     userID,
		"status":      domain.TokenStatusActive,
		"expires_at":  bson.M{"$gt": time.Now().UTC()},
	})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *TokenRepository) findAll(ctx context.Context, filter bson.M) ([]*domain.StoredToken, error) {
	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var tokens []*domain.StoredToken
	if err := cursor.All(ctx, &tokens); err != nil {
		return nil, err
	}
	return tokens, nil
}

var _ domain.TokenRepository = (*TokenRepository)(nil)
