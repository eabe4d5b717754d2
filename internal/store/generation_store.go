package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/moyuteach/lessongen/internal/models"
)

// GenerationStore defines the interface for generation persistence.
type GenerationStore interface {
	Insert(ctx context.Context, gen *models.Generation) error
	GetByID(ctx context.Context, userID, id string) (*models.Generation, error)
	ListByUser(ctx context.Context, userID string, page, limit int) ([]*models.Generation, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
}

// MongoGenerationStore is an implementation of GenerationStore using MongoDB.
type MongoGenerationStore struct {
	collection *mongo.Collection
}

// NewMongoGenerationStore creates a new MongoGenerationStore.
func NewMongoGenerationStore(db *mongo.Database, collectionName string) *MongoGenerationStore {
	return &MongoGenerationStore{
		collection: db.Collection(collectionName),
	}
}

// Insert stores a generation record.
func (s *MongoGenerationStore) Insert(ctx context.Context, gen *models.Generation) error {
	_, err := s.collection.InsertOne(ctx, gen)
	return err
}

// GetByID retrieves a generation by ID, scoped to its owner.
func (s *MongoGenerationStore) GetByID(ctx context.Context, userID, id string) (*models.Generation, error) {
	var gen models.Generation
	err := s.collection.FindOne(ctx, bson.M{"_id": id, "user_id": userID}).Decode(&gen)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &gen, nil
}

// ListByUser retrieves a paginated list of a user's generations, newest
// first.
func (s *MongoGenerationStore) ListByUser(ctx context.Context, userID string, page, limit int) ([]*models.Generation, error) {
	var gens []*models.Generation
	opts := options.Find()
	opts.SetSort(bson.D{{"created_at", -1}})
	opts.SetSkip(int64((page - 1) * limit))
	opts.SetLimit(int64(limit))

	cursor, err := s.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &gens); err != nil {
		return nil, err
	}
	return gens, nil
}

// CountByUser returns how many generations a user owns.
func (s *MongoGenerationStore) CountByUser(ctx context.Context, userID string) (int64, error) {
	return s.collection.CountDocuments(ctx, bson.M{"user_id": userID})
}
