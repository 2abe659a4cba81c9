package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Default MongoDB names.
const (
	DefaultMongoDatabase   = "boardsync"
	DefaultMongoCollection = "tokens"
)

// MongoTokenStore keeps tokens in a MongoDB collection, one document per
// key with the key as _id.
type MongoTokenStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	owned  bool
}

// NewMongoTokenStore connects to uri and verifies the connection. Empty
// database and collection names use the defaults.
func NewMongoTokenStore(ctx context.Context, uri, database, collection string) (*MongoTokenStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	s := NewMongoTokenStoreFromClient(client, database, collection)
	s.owned = true
	return s, nil
}

// NewMongoTokenStoreFromClient uses an existing client, which Close leaves
// connected.
func NewMongoTokenStoreFromClient(client *mongo.Client, database, collection string) *MongoTokenStore {
	if database == "" {
		database = DefaultMongoDatabase
	}
	if collection == "" {
		collection = DefaultMongoCollection
	}
	return &MongoTokenStore{client: client, coll: client.Database(database).Collection(collection)}
}

func (s *MongoTokenStore) Get(ctx context.Context, key string) (*Token, error) {
	var tok Token
	err := s.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&tok)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find token: %w", err)
	}
	return &tok, nil
}

func (s *MongoTokenStore) Set(ctx context.Context, tok *Token) error {
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": tok.Key}, tok, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	return nil
}

func (s *MongoTokenStore) Delete(ctx context.Context, key string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

// Close disconnects the client if the store created it.
func (s *MongoTokenStore) Close(ctx context.Context) error {
	if !s.owned {
		return nil
	}
	return s.client.Disconnect(ctx)
}

var _ TokenStore = (*MongoTokenStore)(nil)
