package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"

	"relay_server/server/relay/domain"
)

// ErrBlobNotFound is returned when a blob id does not resolve to a stored
// object, either because it never existed or was already cleaned up.
var ErrBlobNotFound = errors.New("blob not found")

const metaFilenameKey = "Filename"

// MinioStore keeps file payloads as objects in a single bucket, keyed by a
// store-assigned opaque id. Reads and writes are stream-oriented; the store
// never holds a whole payload in memory.
type MinioStore struct {
	client *minio.Client
	bucket string
}

func NewMinioStore(client *minio.Client, bucket string) *MinioStore {
	return &MinioStore{client: client, bucket: bucket}
}

// Store streams src into a new object and returns its id. On any write
// failure the partial object is removed so a failed upload can never be
// read back.
func (s *MinioStore) Store(ctx context.Context, src io.Reader, filename, contentType string) (string, error) {
	id := uuid.NewString()
	_, err := s.client.PutObject(ctx, s.bucket, id, src, -1, minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: map[string]string{metaFilenameKey: filename},
	})
	if err != nil {
		if removeErr := s.Remove(context.WithoutCancel(ctx), id); removeErr != nil {
			return "", fmt.Errorf("store blob %s: %w (cleanup failed: %v)", id, err, removeErr)
		}
		return "", fmt.Errorf("store blob %s: %w", id, err)
	}
	return id, nil
}

// OpenRead returns the content stream and metadata of a stored blob. The
// metadata is resolved up front so callers can emit headers before the
// first content byte.
func (s *MinioStore) OpenRead(ctx context.Context, id string) (io.ReadCloser, domain.BlobInfo, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, id, minio.GetObjectOptions{})
	if err != nil {
		return nil, domain.BlobInfo{}, mapMinioErr(id, err)
	}
	stat, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		return nil, domain.BlobInfo{}, mapMinioErr(id, err)
	}
	info := domain.BlobInfo{
		ID:          id,
		Filename:    stat.UserMetadata[metaFilenameKey],
		ContentType: stat.ContentType,
		Size:        stat.Size,
	}
	return obj, info, nil
}

// Remove deletes a blob object. A missing object is not an error.
func (s *MinioStore) Remove(ctx context.Context, id string) error {
	err := s.client.RemoveObject(ctx, s.bucket, id, minio.RemoveObjectOptions{})
	if err != nil && !errors.Is(mapMinioErr(id, err), ErrBlobNotFound) {
		return fmt.Errorf("remove blob %s: %w", id, err)
	}
	return nil
}

func mapMinioErr(id string, err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" {
		return fmt.Errorf("%w: %s", ErrBlobNotFound, id)
	}
	return err
}
