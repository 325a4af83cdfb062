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

	"github.com/breachlab/breachlab/internal/platform/apperr"
	"github.com/breachlab/breachlab/internal/platform/constants"
	"github.com/breachlab/breachlab/internal/platform/sec"
)

// # MongoDB User Repository

// MongoUserRepository implements [UserRepository] against the users collection.
type MongoUserRepository struct {
	collection *mongo.Collection
}

// NewMongoUserRepository binds the repository to the users collection.
func NewMongoUserRepository(database *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{
		collection: database.Collection(constants.CollectionUsers),
	}
}

// Create inserts a new identity record.
// Unique-index violations (username, email) surface as ValidationError so
// the registration race loses cleanly instead of leaking a 500.
func (repository *MongoUserRepository) Create(context stdctx.Context, user *User) error {
	_, err := repository.collection.InsertOne(context, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperr.ValidationError("Username or email is already registered")
		}
		return fmt.Errorf("auth: insert user: %w", err)
	}
	return nil
}

// FindByID fetches a user by primary key.
func (repository *MongoUserRepository) FindByID(context stdctx.Context, userID string) (*User, error) {
	return repository.findOne(context, bson.M{"_id": userID})
}

// FindByEmail fetches a user by their (normalized) email address.
func (repository *MongoUserRepository) FindByEmail(context stdctx.Context, email string) (*User, error) {
	return repository.findOne(context, bson.M{"email": email})
}

// FindByUsername fetches a user by their (normalized) username.
func (repository *MongoUserRepository) FindByUsername(context stdctx.Context, username string) (*User, error) {
	return repository.findOne(context, bson.M{"username": username})
}

// FindByResetHash fetches the user holding the given reset-secret hash.
func (repository *MongoUserRepository) FindByResetHash(context stdctx.Context, resetHash string) (*User, error) {
	return repository.findOne(context, bson.M{"reset_secret_hash": resetHash})
}

// UpdateProfile overwrites the mutable profile fields and returns the fresh document.
func (repository *MongoUserRepository) UpdateProfile(context stdctx.Context, userID, displayName, bio string) (*User, error) {
	update := bson.M{"$set": bson.M{
		"display_name": displayName,
		"bio":          bio,
		"updated_at":   time.Now().UTC(),
	}}
	return repository.findOneAndUpdate(context, userID, update)
}

// UpdatePassword stores a new password hash and stamps the change time.
// The reset secret, if any, is retired in the same write: a credential that
// just rotated must not leave a second rotation path open.
func (repository *MongoUserRepository) UpdatePassword(context stdctx.Context, userID, passwordHash string, changedAt time.Time) error {
	update := bson.M{
		"$set": bson.M{
			"password_hash":       passwordHash,
			"password_changed_at": changedAt,
			"updated_at":          time.Now().UTC(),
		},
		"$unset": bson.M{
			"reset_secret_hash":       "",
			"reset_secret_expires_at": "",
		},
	}
	return repository.updateOne(context, userID, update)
}

// SetLastLogin stamps the most recent successful login.
func (repository *MongoUserRepository) SetLastLogin(context stdctx.Context, userID string, loginAt time.Time) error {
	return repository.updateOne(context, userID, bson.M{
		"$set": bson.M{"last_login_at": loginAt},
	})
}

// SetResetSecret stores the hash of a freshly issued reset secret.
// Overwrites any previous secret so only the newest one can redeem.
func (repository *MongoUserRepository) SetResetSecret(context stdctx.Context, userID, resetHash string, expiresAt time.Time) error {
	return repository.updateOne(context, userID, bson.M{
		"$set": bson.M{
			"reset_secret_hash":       resetHash,
			"reset_secret_expires_at": expiresAt,
		},
	})
}

// ClearResetSecret removes the stored reset secret, if present.
func (repository *MongoUserRepository) ClearResetSecret(context stdctx.Context, userID string) error {
	return repository.updateOne(context, userID, bson.M{
		"$unset": bson.M{
			"reset_secret_hash":       "",
			"reset_secret_expires_at": "",
		},
	})
}

// SetRole changes the user's role and returns the fresh document.
func (repository *MongoUserRepository) SetRole(context stdctx.Context, userID string, role sec.UserRole) (*User, error) {
	update := bson.M{"$set": bson.M{
		"role":       role,
		"updated_at": time.Now().UTC(),
	}}
	return repository.findOneAndUpdate(context, userID, update)
}

// SetActive toggles the account's active flag and returns the fresh document.
func (repository *MongoUserRepository) SetActive(context stdctx.Context, userID string, active bool) (*User, error) {
	update := bson.M{"$set": bson.M{
		"is_active":  active,
		"updated_at": time.Now().UTC(),
	}}
	return repository.findOneAndUpdate(context, userID, update)
}

// Delete removes the identity record permanently.
func (repository *MongoUserRepository) Delete(context stdctx.Context, userID string) error {
	result, err := repository.collection.DeleteOne(context, bson.M{"_id": userID})
	if err != nil {
		return fmt.Errorf("auth: delete user: %w", err)
	}
	if result.DeletedCount == 0 {
		return apperr.NotFound("User")
	}
	return nil
}

// List returns a page of users ordered by creation time, newest first,
// along with the total count for pagination metadata.
func (repository *MongoUserRepository) List(context stdctx.Context, offset, limit int) ([]*User, int64, error) {
	total, err := repository.collection.CountDocuments(context, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("auth: count users: %w", err)
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := repository.collection.Find(context, bson.M{}, findOptions)
	if err != nil {
		return nil, 0, fmt.Errorf("auth: list users: %w", err)
	}
	defer cursor.Close(context)

	users := make([]*User, 0, limit)
	if err := cursor.All(context, &users); err != nil {
		return nil, 0, fmt.Errorf("auth: decode users: %w", err)
	}

	return users, total, nil
}

// # Internal Helpers

func (repository *MongoUserRepository) findOne(context stdctx.Context, filter bson.M) (*User, error) {
	var user User
	err := repository.collection.FindOne(context, filter).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("auth: find user: %w", err)
	}
	return &user, nil
}

func (repository *MongoUserRepository) findOneAndUpdate(context stdctx.Context, userID string, update bson.M) (*User, error) {
	updateOptions := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var user User
	err := repository.collection.
		FindOneAndUpdate(context, bson.M{"_id": userID}, update, updateOptions).
		Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("auth: update user: %w", err)
	}
	return &user, nil
}

func (repository *MongoUserRepository) updateOne(context stdctx.Context, userID string, update bson.M) error {
	result, err := repository.collection.UpdateOne(context, bson.M{"_id": userID}, update)
	if err != nil {
		return fmt.Errorf("auth: update user: %w", err)
	}
	if result.MatchedCount == 0 {
		return apperr.NotFound("User")
	}
	return nil
}
