package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/moyuteach/lessongen/internal/models"
)

// DocumentStore defines the interface for document persistence.
type DocumentStore interface {
	Insert(ctx context.Context, doc *models.Document) error
	GetByID(ctx context.Context, userID, id string) (*models.Document, error)
	ListByUser(ctx context.Context, userID string, page, limit int) ([]*models.Document, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
	MarkProcessing(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id string, chunkCount int, textContent string) error
	MarkFailed(ctx context.Context, id string, reason string) error
	Delete(ctx context.Context, userID, id string) error
	FindStale(ctx context.Context, olderThan time.Time) ([]*models.Document, error)
}

// MongoDocumentStore is an implementation of DocumentStore using MongoDB.
type MongoDocumentStore struct {
	collection *mongo.Collection
}

// NewMongoDocumentStore creates a new MongoDocumentStore.
func NewMongoDocumentStore(db *mongo.Database, collectionName string) *MongoDocumentStore {
	return &MongoDocumentStore{
		collection: db.Collection(collectionName),
	}
}

// Insert stores a new document record.
func (s *MongoDocumentStore) Insert(ctx context.Context, doc *models.Document) error {
	_, err := s.collection.InsertOne(ctx, doc)
	return err
}

// GetByID retrieves a document by ID, scoped to its owner.
func (s *MongoDocumentStore) GetByID(ctx context.Context, userID, id string) (*models.Document, error) {
	var doc models.Document
	err := s.collection.FindOne(ctx, bson.M{"_id": id, "user_id": userID}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// ListByUser retrieves a paginated list of a user's documents, newest
// first.
func (s *MongoDocumentStore) ListByUser(ctx context.Context, userID string, page, limit int) ([]*models.Document, error) {
	var docs []*models.Document
	opts := options.Find()
	opts.SetSort(bson.D{{"created_at", -1}})
	opts.SetSkip(int64((page - 1) * limit))
	opts.SetLimit(int64(limit))

	cursor, err := s.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// CountByUser returns how many documents a user owns.
func (s *MongoDocumentStore) CountByUser(ctx context.Context, userID string) (int64, error) {
	return s.collection.CountDocuments(ctx, bson.M{"user_id": userID})
}

// MarkProcessing flips a document to the processing state.
func (s *MongoDocumentStore) MarkProcessing(ctx context.Context, id string) error {
	return s.setFields(ctx, id, bson.M{
		"status": models.StatusProcessing,
	})
}

// MarkCompleted records a successful ingestion.
func (s *MongoDocumentStore) MarkCompleted(ctx context.Context, id string, chunkCount int, textContent string) error {
	return s.setFields(ctx, id, bson.M{
		"status":        models.StatusCompleted,
		"chunk_count":   chunkCount,
		"text_content":  textContent,
		"process_error": "",
	})
}

// MarkFailed records a terminal ingestion failure.
func (s *MongoDocumentStore) MarkFailed(ctx context.Context, id string, reason string) error {
	return s.setFields(ctx, id, bson.M{
		"status":        models.StatusFailed,
		"process_error": reason,
	})
}

func (s *MongoDocumentStore) setFields(ctx context.Context, id string, fields bson.M) error {
	fields["updated_at"] = time.Now()
	result, err := s.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a document record, scoped to its owner.
func (s *MongoDocumentStore) Delete(ctx context.Context, userID, id string) error {
	result, err := s.collection.DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// FindStale returns documents still pending or processing whose last
// update is older than the given time. The recovery sweep re-enqueues
// them after a worker crash or queue loss.
func (s *MongoDocumentStore) FindStale(ctx context.Context, olderThan time.Time) ([]*models.Document, error) {
	filter := bson.M{
		"status":     bson.M{"$in": []models.DocumentStatus{models.StatusPending, models.StatusProcessing}},
		"updated_at": bson.M{"$lt": olderThan},
	}

	cursor, err := s.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []*models.Document
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}
