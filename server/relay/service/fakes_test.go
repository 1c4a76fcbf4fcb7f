package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"relay_server/server/relay/domain"
	"relay_server/server/relay/repository"
	"relay_server/server/relay/storage"
)

// fakeRecordStore enforces insert-if-absent semantics in memory, mirroring
// the Postgres primary-key behavior.
type fakeRecordStore struct {
	mu      sync.Mutex
	records map[string]domain.TransferRecord

	forcedCollisions int   // pretend this many inserts hit a duplicate
	insertErr        error // non-collision insert failure
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{records: map[string]domain.TransferRecord{}}
}

func (f *fakeRecordStore) Insert(_ context.Context, rec domain.TransferRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.forcedCollisions > 0 {
		f.forcedCollisions--
		return repository.ErrDuplicateKey
	}
	if f.insertErr != nil {
		return f.insertErr
	}
	if _, ok := f.records[rec.Code]; ok {
		return repository.ErrDuplicateKey
	}
	f.records[rec.Code] = rec
	return nil
}

func (f *fakeRecordStore) FindByCode(_ context.Context, code string) (domain.TransferRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[code]
	if !ok {
		return domain.TransferRecord{}, repository.ErrNotFound
	}
	return rec, nil
}

func (f *fakeRecordStore) DeleteExpired(_ context.Context, cutoff time.Time) (int, []string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	deleted := 0
	blobIDs := make([]string, 0)
	for code, rec := range f.records {
		if rec.CreatedAt.Before(cutoff) {
			delete(f.records, code)
			deleted++
			if rec.BlobID != "" {
				blobIDs = append(blobIDs, rec.BlobID)
			}
		}
	}
	return deleted, blobIDs, nil
}

func (f *fakeRecordStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

type fakeBlob struct {
	data        []byte
	filename    string
	contentType string
}

type fakeBlobStore struct {
	mu    sync.Mutex
	blobs map[string]fakeBlob

	storeErr  error
	openReads int
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{blobs: map[string]fakeBlob{}}
}

func (f *fakeBlobStore) Store(_ context.Context, src io.Reader, filename, contentType string) (string, error) {
	if f.storeErr != nil {
		return "", f.storeErr
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	f.mu.Lock()
	f.blobs[id] = fakeBlob{data: data, filename: filename, contentType: contentType}
	f.mu.Unlock()
	return id, nil
}

func (f *fakeBlobStore) OpenRead(_ context.Context, id string) (io.ReadCloser, domain.BlobInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.openReads++
	b, ok := f.blobs[id]
	if !ok {
		return nil, domain.BlobInfo{}, fmt.Errorf("%w: %s", storage.ErrBlobNotFound, id)
	}
	info := domain.BlobInfo{ID: id, Filename: b.filename, ContentType: b.contentType, Size: int64(len(b.data))}
	return io.NopCloser(bytes.NewReader(b.data)), info, nil
}

func (f *fakeBlobStore) Remove(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.blobs, id)
	return nil
}

func (f *fakeBlobStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.blobs)
}
