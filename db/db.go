package db

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	UsersCollection   = "users"
	RecipesCollection = "recipes"

	IdempotencyCollection = "idempotency"
)

// Store holds the client and the collections recipehub uses.
type Store struct {
	Client  *mongo.Client
	Users   *mongo.Collection
	Recipes *mongo.Collection

	// checkout replay records
	Idempotency *mongo.Collection
}

// Connect dials MongoDB and verifies the connection with a ping.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	clientOptions := options.Client().ApplyURI(uri).SetConnectTimeout(10 * time.Second)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	log.Info().Str("database", database).Msg("connected to mongodb")
	return NewStore(client.Database(database)), nil
}

// NewStore wraps an existing database handle.
func NewStore(database *mongo.Database) *Store {
	return &Store{
		Client:  database.Client(),
		Users:   database.Collection(UsersCollection),
		Recipes: database.Collection(RecipesCollection),

		Idempotency: database.Collection(IdempotencyCollection),
	}
}

// EnsureIndexes creates the indexes queries rely on. Existing indexes are left alone.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	userIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	}
	if _, err := s.Users.Indexes().CreateMany(ctx, userIndexes); err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}

	recipeIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "upvotes", Value: -1}, {Key: "createdAt", Value: -1}}},
	}
	if _, err := s.Recipes.Indexes().CreateMany(ctx, recipeIndexes); err != nil {
		return fmt.Errorf("create recipe indexes: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Client.Ping(ctx, readpref.Primary())
}

func (s *Store) Disconnect(ctx context.Context) error {
	return s.Client.Disconnect(ctx)
}
