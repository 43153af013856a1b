// Package mongodb implements storage.PayloadStore on a MongoDB GridFS bucket
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sirosfoundation/go-payload/internal/storage"
)

const (
	defaultBucketName = "payloads"
	defaultChunkSize  = 261120 // 255KB
)

// Store implements storage.PayloadStore using GridFS
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	gridfs *gridfs.Bucket
}

var _ storage.PayloadStore = (*Store)(nil)

// Config holds MongoDB connection settings
type Config struct {
	URI            string
	Database       string
	GridFSBucket   string
	ChunkSizeBytes int32
}

// NewStore connects to MongoDB and opens the GridFS bucket
func NewStore(ctx context.Context, cfg *Config) (*Store, error) {
	if cfg == nil || cfg.URI == "" {
		return nil, fmt.Errorf("mongodb URI is required")
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connecting to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging MongoDB: %w", err)
	}

	db := client.Database(cfg.Database)

	bucketName := cfg.GridFSBucket
	if bucketName == "" {
		bucketName = defaultBucketName
	}
	chunkSize := cfg.ChunkSizeBytes
	if chunkSize == 0 {
		chunkSize = defaultChunkSize
	}
	bucket, err := gridfs.NewBucket(db, options.GridFSBucket().
		SetName(bucketName).
		SetChunkSizeBytes(chunkSize))
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("creating GridFS bucket: %w", err)
	}

	return &Store{
		client: client,
		db:     db,
		gridfs: bucket,
	}, nil
}

// Close closes the MongoDB connection
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Ping verifies database connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// StorePayload streams r into GridFS chunk by chunk
func (s *Store) StorePayload(ctx context.Context, name string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	uploadOpts := options.GridFSUpload().SetMetadata(bson.M{
		"name": name,
	})

	id, err := s.gridfs.UploadFromStream(name, r, uploadOpts)
	if err != nil {
		return "", fmt.Errorf("uploading payload: %w", err)
	}
	return id.Hex(), nil
}

// OpenPayload opens a GridFS download stream
func (s *Store) OpenPayload(ctx context.Context, id string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	objID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	downloadStream, err := s.gridfs.OpenDownloadStream(objID)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
		}
		return nil, fmt.Errorf("opening download stream: %w", err)
	}
	return downloadStream, nil
}

// DeletePayload deletes the file and its chunks
func (s *Store) DeletePayload(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	objID, err := parseID(id)
	if err != nil {
		return err
	}

	if err := s.gridfs.Delete(objID); err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return fmt.Errorf("%w: %s", storage.ErrNotFound, id)
		}
		return fmt.Errorf("deleting payload: %w", err)
	}
	return nil
}

// IDs that are not ObjectIDs cannot name a stored file
func parseID(id string) (primitive.ObjectID, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: invalid payload ID %q", storage.ErrNotFound, id)
	}
	return objID, nil
}
