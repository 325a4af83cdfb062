// Copyright (c) 2026 BreachLab. All rights reserved.
// Author: platform@breachlab.io

/*
Package mongo provides the managed client for the platform's document database.

All durable state — identities and refresh-token sessions — lives here.

Core Responsibilities:

  - Connectivity: Connection pool setup with sane timeouts.
  - Indexes: Declares the unique and TTL-relevant indexes the auth core relies on.
  - Health: Ping helper for the readiness probe.
*/
package mongo

import (
	stdctx "context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/breachlab/breachlab/internal/platform/constants"
)

const (
	connectTimeout         = 10 * time.Second
	serverSelectionTimeout = 10 * time.Second
	pingTimeout            = 5 * time.Second
)

// NewDatabase connects to MongoDB and returns a handle to the named database.
//
// # Parameters
//   - context: Context bounding the initial connection and ping.
//   - mongoURI: Connection string (Atlas or self-hosted).
//   - databaseName: Target database name.
//   - logger: Structured logger for connection events.
func NewDatabase(context stdctx.Context, mongoURI, databaseName string, logger *slog.Logger) (*mongo.Database, error) {
	clientOptions := options.Client().
		ApplyURI(mongoURI).
		SetConnectTimeout(connectTimeout).
		SetServerSelectionTimeout(serverSelectionTimeout)

	client, err := mongo.Connect(context, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("mongo: failed to connect: %w", err)
	}

	// Validate connectivity immediately at startup.
	if err := pingClient(context, client); err != nil {
		_ = client.Disconnect(context)
		return nil, err
	}

	database := client.Database(databaseName)

	logger.Info("mongo client connected",
		slog.String("database", databaseName),
	)

	return database, nil
}

// EnsureIndexes declares the indexes the auth core depends on.
//
// Uniqueness of usernames and emails is enforced HERE, not in application
// code: the check-then-insert in the registration flow is advisory, the
// index is the invariant.
func EnsureIndexes(context stdctx.Context, database *mongo.Database) error {
	users := database.Collection(constants.CollectionUsers)
	_, err := users.Indexes().CreateMany(context, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "reset_secret_hash", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	})
	if err != nil {
		return fmt.Errorf("mongo: failed to create user indexes: %w", err)
	}

	sessions := database.Collection(constants.CollectionSessions)
	_, err = sessions.Indexes().CreateMany(context, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "token_hash", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "expires_at", Value: 1}},
		},
	})
	if err != nil {
		return fmt.Errorf("mongo: failed to create session indexes: %w", err)
	}

	return nil
}

// Ping verifies that the MongoDB connection is healthy.
func Ping(context stdctx.Context, database *mongo.Database) error {
	return pingClient(context, database.Client())
}

func pingClient(context stdctx.Context, client *mongo.Client) error {
	pingCtx, cancel := stdctx.WithTimeout(context, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx, nil); err != nil {
		return fmt.Errorf("mongo: ping failed: %w", err)
	}

	return nil
}
