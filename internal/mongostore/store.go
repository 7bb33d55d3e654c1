// Package mongostore implements the user and sword stores on MongoDB.
//
// Documents are (de)serialized through the bson tags on the model types;
// collection names and indexes are managed in ensureIndexes.
package mongostore

import (
	"context"
	"fmt"
	"time"

	"github.com/chandama/touken-west-sub001/internal/logger"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	ColUsers  = "users"
	ColSwords = "swords"
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewStore connects, pings and ensures indexes.
//
// uri: e.g. "mongodb://localhost:27017"
// dbName: e.g. "touken"
func NewStore(ctx context.Context, uri, dbName string) (*Store, error) {
	// Sword records are free-form; nested documents decode as maps so
	// they serialize to JSON objects.
	clientOpts := options.Client().
		ApplyURI(uri).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})

	client, err := mongo.Connect(clientOpts)
	if err != nil {
		return nil, fmt.Errorf("mongostore: connect failed: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, fmt.Errorf("mongostore: ping failed: %w", err)
	}

	s := &Store{client: client, db: client.Database(dbName)}

	if err := s.ensureIndexes(pingCtx); err != nil {
		logger.Warn("mongostore: ensure indexes failed", map[string]any{
			"error": err.Error(),
		})
	}

	return s, nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) col(name string) *mongo.Collection {
	return s.db.Collection(name)
}

// Users returns the user.Store view of this database.
func (s *Store) Users() *UserStore {
	return &UserStore{col: s.col(ColUsers)}
}

// Swords returns the sword.Store view of this database.
func (s *Store) Swords() *SwordStore {
	return &SwordStore{col: s.col(ColSwords)}
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	type idx struct {
		col    string
		keys   bson.D
		unique bool
		sparse bool
	}

	indexes := []idx{
		{ColUsers, bson.D{{Key: "email", Value: 1}}, true, false},
		{ColUsers, bson.D{{Key: "username", Value: 1}}, true, false},
		{ColUsers, bson.D{{Key: "googleId", Value: 1}}, true, true},
		{ColUsers, bson.D{{Key: "facebookId", Value: 1}}, true, true},
		{ColUsers, bson.D{{Key: "createdAt", Value: -1}}, false, false},

		{ColSwords, bson.D{{Key: "Index", Value: 1}}, true, false},
	}

	for _, i := range indexes {
		model := mongo.IndexModel{Keys: i.keys}
		if i.unique || i.sparse {
			model.Options = options.Index().SetUnique(i.unique).SetSparse(i.sparse)
		}
		if _, err := s.col(i.col).Indexes().CreateOne(ctx, model); err != nil {
			return fmt.Errorf("create index on %s: %w", i.col, err)
		}
	}

	return nil
}
