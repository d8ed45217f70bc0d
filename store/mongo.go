package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo stores every named collection as one document in a single MongoDB
// collection, keyed by name.
type Mongo struct {
	client     *mongo.Client
	collection *mongo.Collection
	timeout    time.Duration
}

var _ Store = (*Mongo)(nil)

type document struct {
	Name      string    `bson:"_id"`
	Data      bson.Raw  `bson:"data"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// NewMongo wraps an already connected client.
func NewMongo(client *mongo.Client, database, collection string, timeout time.Duration) *Mongo {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Mongo{
		client:     client,
		collection: client.Database(database).Collection(collection),
		timeout:    timeout,
	}
}

func (m *Mongo) Get(ctx context.Context, name Name) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	var doc document
	err := m.collection.FindOne(ctx, bson.M{"_id": string(name)}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, Unavailable("get", name, err)
	}
	return []byte(doc.Data), nil
}

func (m *Mongo) Set(ctx context.Context, name Name, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	doc := document{
		Name:      string(name),
		Data:      bson.Raw(data),
		UpdatedAt: time.Now().UTC(),
	}
	_, err := m.collection.ReplaceOne(ctx, bson.M{"_id": string(name)}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return Unavailable("set", name, err)
	}
	return nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
