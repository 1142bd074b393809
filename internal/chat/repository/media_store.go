package repository

import (
	"context"
	"errors"
	"sync"

	"github.com/amaan-q00/beta-chatx/pkg/database"

	"github.com/minio/minio-go/v7"
)

// ErrMediaNotFound no stored binary for the requested message.
var ErrMediaNotFound = errors.New("media not found")

// MediaStore keeps the assembled binary of a media message, keyed by
// the message id. The Message itself carries only an opaque content
// handle; clients materialize the bytes through this store.
type MediaStore interface {
	Put(ctx context.Context, messageID, contentType string, data []byte) error
	Get(ctx context.Context, messageID string) ([]byte, string, error)
	Delete(ctx context.Context, messageID string) error
}

type mediaBlob struct {
	contentType string
	data        []byte
}

type memoryMediaStore struct {
	mu    sync.RWMutex
	blobs map[string]mediaBlob
}

// NewMemoryMediaStore init the ephemeral in-memory MediaStore. Blobs
// disappear with the room that owns them.
func NewMemoryMediaStore() MediaStore {
	return &memoryMediaStore{blobs: make(map[string]mediaBlob)}
}

func (s *memoryMediaStore) Put(_ context.Context, messageID, contentType string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[messageID] = mediaBlob{contentType: contentType, data: data}
	return nil
}

func (s *memoryMediaStore) Get(_ context.Context, messageID string) ([]byte, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[messageID]
	if !ok {
		return nil, "", ErrMediaNotFound
	}
	return b.data, b.contentType, nil
}

func (s *memoryMediaStore) Delete(_ context.Context, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, messageID)
	return nil
}

const mediaObjectPrefix = "media/"

type minioMediaStore struct {
	client database.MinIOClientRepo
}

// NewMinIOMediaStore init the object-store backed MediaStore.
func NewMinIOMediaStore(client database.MinIOClientRepo) MediaStore {
	return &minioMediaStore{client: client}
}

func (s *minioMediaStore) Put(ctx context.Context, messageID, contentType string, data []byte) error {
	return s.client.PutBytes(ctx, mediaObjectPrefix+messageID, contentType, data)
}

func (s *minioMediaStore) Get(ctx context.Context, messageID string) ([]byte, string, error) {
	data, contentType, err := s.client.GetBytes(ctx, mediaObjectPrefix+messageID)
	if err != nil {
		if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" {
			return nil, "", ErrMediaNotFound
		}
		return nil, "", err
	}
	return data, contentType, nil
}

func (s *minioMediaStore) Delete(ctx context.Context, messageID string) error {
	return s.client.Remove(ctx, mediaObjectPrefix+messageID)
}
