package config

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"posterminal/store"
)

// collectionName is the MongoDB collection holding the terminal's documents.
const collectionName = "pos_state"

// OpenStore returns the persistence backend selected by STORE_DRIVER.
func OpenStore(ctx context.Context, cfg Config, log zerolog.Logger) (store.Store, error) {
	if cfg.StoreDriver != "mongo" {
		log.Info().Msg("using in-memory store")
		return store.NewMemory(), nil
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.MongoTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	log.Info().Str("database", cfg.MongoDatabase).Msg("Connected to MongoDB")
	return store.NewMongo(client, cfg.MongoDatabase, collectionName, cfg.MongoTimeout), nil
}
