// Copyright (c) 2026 BreachLab. All rights reserved.
// Author: platform@breachlab.io

package auth

import (
	stdctx "context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/breachlab/breachlab/internal/platform/constants"
)

// # MongoDB Session Repository

// MongoSessionRepository implements [SessionRepository] against the sessions collection.
type MongoSessionRepository struct {
	collection *mongo.Collection
}

// NewMongoSessionRepository binds the repository to the sessions collection.
func NewMongoSessionRepository(database *mongo.Database) *MongoSessionRepository {
	return &MongoSessionRepository{
		collection: database.Collection(constants.CollectionSessions),
	}
}

// Insert records a new session.
func (repository *MongoSessionRepository) Insert(context stdctx.Context, session *Session) error {
	_, err := repository.collection.InsertOne(context, session)
	if err != nil {
		return fmt.Errorf("auth: insert session: %w", err)
	}
	return nil
}

// FindByTokenHash looks up a session by its token hash.
func (repository *MongoSessionRepository) FindByTokenHash(context stdctx.Context, tokenHash string) (*Session, error) {
	var session Session
	err := repository.collection.FindOne(context, bson.M{"token_hash": tokenHash}).Decode(&session)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("auth: find session: %w", err)
	}
	return &session, nil
}

// Delete removes one session, conditional on both owner and token hash.
// Returns whether a record was actually removed; under concurrent rotation
// exactly one caller observes true.
func (repository *MongoSessionRepository) Delete(context stdctx.Context, userID, tokenHash string) (bool, error) {
	result, err := repository.collection.DeleteOne(context, bson.M{
		"user_id":    userID,
		"token_hash": tokenHash,
	})
	if err != nil {
		return false, fmt.Errorf("auth: delete session: %w", err)
	}
	return result.DeletedCount > 0, nil
}

// DeleteByUser removes every session belonging to the user.
func (repository *MongoSessionRepository) DeleteByUser(context stdctx.Context, userID string) error {
	_, err := repository.collection.DeleteMany(context, bson.M{"user_id": userID})
	if err != nil {
		return fmt.Errorf("auth: delete user sessions: %w", err)
	}
	return nil
}

// CountByUser reports how many sessions the user currently holds.
func (repository *MongoSessionRepository) CountByUser(context stdctx.Context, userID string) (int64, error) {
	count, err := repository.collection.CountDocuments(context, bson.M{"user_id": userID})
	if err != nil {
		return 0, fmt.Errorf("auth: count sessions: %w", err)
	}
	return count, nil
}

// DeleteOldestByUser removes the user's N oldest sessions by creation time.
func (repository *MongoSessionRepository) DeleteOldestByUser(context stdctx.Context, userID string, count int) error {
	if count <= 0 {
		return nil
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(int64(count)).
		SetProjection(bson.M{"_id": 1})

	cursor, err := repository.collection.Find(context, bson.M{"user_id": userID}, findOptions)
	if err != nil {
		return fmt.Errorf("auth: find oldest sessions: %w", err)
	}
	defer cursor.Close(context)

	var docs []struct {
		ID string `bson:"_id"`
	}
	if err := cursor.All(context, &docs); err != nil {
		return fmt.Errorf("auth: decode oldest sessions: %w", err)
	}
	if len(docs) == 0 {
		return nil
	}

	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.ID)
	}

	_, err = repository.collection.DeleteMany(context, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return fmt.Errorf("auth: evict oldest sessions: %w", err)
	}
	return nil
}

// DeleteExpired purges sessions whose expiry is in the past.
func (repository *MongoSessionRepository) DeleteExpired(context stdctx.Context, olderThan time.Time) (int64, error) {
	result, err := repository.collection.DeleteMany(context, bson.M{
		"expires_at": bson.M{"$lt": olderThan},
	})
	if err != nil {
		return 0, fmt.Errorf("auth: delete expired sessions: %w", err)
	}
	return result.DeletedCount, nil
}
