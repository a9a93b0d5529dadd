package cache

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/maplibre/maplibre-native-go/pkg/errors"
)

// Default mongo namespace for tile documents.
const (
	defaultMongoDatabase   = "maplibre"
	defaultMongoCollection = "tiles"
)

// MongoCache stores tiles as documents keyed by _id. Expiry uses a TTL
// index on expires_at; mongo's expiry sweep runs about once a minute, so
// Get re-checks the timestamp to avoid serving a tile in that window.
type MongoCache struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// mongoEntry is the stored document. Entries without an expiry omit
// expires_at entirely; the TTL index skips documents missing the field.
type mongoEntry struct {
	Key       string    `bson:"_id"`
	Data      []byte    `bson:"data"`
	ExpiresAt time.Time `bson:"expires_at,omitempty"`
}

// NewMongoCache connects to mongo and prepares the tile collection,
// including its TTL index. Database and collection fall back to
// "maplibre" and "tiles" when empty.
func NewMongoCache(ctx context.Context, uri, database, collection string) (*MongoCache, error) {
	if uri == "" {
		return nil, errors.New(errors.ErrCodeConfig, "mongo cache requires a connection URI")
	}
	if database == "" {
		database = defaultMongoDatabase
	}
	if collection == "" {
		collection = defaultMongoCollection
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfig, err, "parse mongo URI")
	}

	err = RetryWithBackoff(ctx, func() error {
		pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		if err := client.Ping(pingCtx, nil); err != nil {
			return Retryable(err)
		}
		return nil
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(errors.ErrCodeCache, err, "connect mongo")
	}

	coll := client.Database(database).Collection(collection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(errors.ErrCodeCache, err, "create ttl index")
	}

	return &MongoCache{client: client, coll: coll}, nil
}

// Get retrieves a value from mongo.
func (c *MongoCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var entry mongoEntry
	err := c.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&entry)
	if err == mongo.ErrNoDocuments {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeCache, err, "mongo find")
	}

	// Not yet swept but already expired.
	if !entry.ExpiresAt.IsZero() && time.Now().After(entry.ExpiresAt) {
		return nil, false, nil
	}
	return entry.Data, true, nil
}

// Set stores a value in mongo, replacing any previous entry for the key.
func (c *MongoCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	entry := mongoEntry{Key: key, Data: data}
	if ttl > 0 {
		entry.ExpiresAt = time.Now().Add(ttl)
	}

	_, err := c.coll.ReplaceOne(ctx, bson.M{"_id": key}, entry, options.Replace().SetUpsert(true))
	if err != nil {
		return errors.Wrap(errors.ErrCodeCache, err, "mongo upsert")
	}
	return nil
}

// Delete removes a value from mongo.
func (c *MongoCache) Delete(ctx context.Context, key string) error {
	if _, err := c.coll.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return errors.Wrap(errors.ErrCodeCache, err, "mongo delete")
	}
	return nil
}

// Close disconnects from mongo.
func (c *MongoCache) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	return c.client.Disconnect(ctx)
}

// Ensure MongoCache implements Cache.
var _ Cache = (*MongoCache)(nil)
