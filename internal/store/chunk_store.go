package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/moyuteach/lessongen/internal/models"
)

// ChunkStore defines the interface for chunk persistence.
type ChunkStore interface {
	InsertMany(ctx context.Context, chunks []*models.Chunk) error
	FindByDocumentIDs(ctx context.Context, userID string, documentIDs []string) ([]models.Chunk, error)
	DeleteByDocumentID(ctx context.Context, documentID string) error
}

// MongoChunkStore is an implementation of ChunkStore using MongoDB.
type MongoChunkStore struct {
	collection *mongo.Collection
}

// NewMongoChunkStore creates a new MongoChunkStore.
func NewMongoChunkStore(db *mongo.Database, collectionName string) *MongoChunkStore {
	return &MongoChunkStore{
		collection: db.Collection(collectionName),
	}
}

// InsertMany stores a batch of chunks. An empty batch is a no-op.
func (s *MongoChunkStore) InsertMany(ctx context.Context, chunks []*models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	docs := make([]interface{}, len(chunks))
	for i, c := range chunks {
		docs[i] = c
	}
	_, err := s.collection.InsertMany(ctx, docs)
	return err
}

// FindByDocumentIDs loads every chunk of the given documents, scoped to
// their owner, ordered by document then chunk index.
func (s *MongoChunkStore) FindByDocumentIDs(ctx context.Context, userID string, documentIDs []string) ([]models.Chunk, error) {
	if len(documentIDs) == 0 {
		return nil, nil
	}

	filter := bson.M{
		"user_id":     userID,
		"document_id": bson.M{"$in": documentIDs},
	}
	opts := options.Find()
	opts.SetSort(bson.D{{"document_id", 1}, {"chunk_index", 1}})

	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var chunks []models.Chunk
	if err = cursor.All(ctx, &chunks); err != nil {
		return nil, err
	}
	return chunks, nil
}

// DeleteByDocumentID removes every chunk of a document. Ingestion calls
// this before inserting so a re-run never duplicates chunks.
func (s *MongoChunkStore) DeleteByDocumentID(ctx context.Context, documentID string) error {
	_, err := s.collection.DeleteMany(ctx, bson.M{"document_id": documentID})
	return err
}
