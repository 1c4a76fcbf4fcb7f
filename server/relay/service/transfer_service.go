package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	commonlog "relay_server/server/common/log"
	"relay_server/server/relay/domain"
	"relay_server/server/relay/repository"
	"relay_server/server/relay/storage"
)

const defaultMaxCodeAttempts = 5

// RecordStore is the durable store of transfer records keyed by code.
// Insert must be atomic insert-if-absent: it returns
// repository.ErrDuplicateKey when the code is already live.
type RecordStore interface {
	Insert(ctx context.Context, rec domain.TransferRecord) error
	FindByCode(ctx context.Context, code string) (domain.TransferRecord, error)
	DeleteExpired(ctx context.Context, cutoff time.Time) (int, []string, error)
}

// BlobStore is the chunked payload store. Store consumes src fully before
// returning the assigned id; failed writes leave no retrievable blob.
// OpenRead returns storage.ErrBlobNotFound for unknown ids.
type BlobStore interface {
	Store(ctx context.Context, src io.Reader, filename, contentType string) (string, error)
	OpenRead(ctx context.Context, id string) (io.ReadCloser, domain.BlobInfo, error)
	Remove(ctx context.Context, id string) error
}

// TransferService mediates all access to the record and blob stores.
type TransferService struct {
	records         RecordStore
	blobs           BlobStore
	cache           *RecordCache // nil disables caching
	retention       time.Duration
	maxCodeAttempts int
}

func NewTransferService(records RecordStore, blobs BlobStore, cache *RecordCache, retention time.Duration) *TransferService {
	return &TransferService{
		records:         records,
		blobs:           blobs,
		cache:           cache,
		retention:       retention,
		maxCodeAttempts: defaultMaxCodeAttempts,
	}
}

// CreateTransfer stores the optional file, then registers a record under a
// fresh code. The code is only returned once both the blob and the record
// are durably committed. An empty transfer (no text, no file) is allowed.
func (s *TransferService) CreateTransfer(ctx context.Context, text string, upload *domain.Upload) (string, error) {
	var blobID, filename string
	if upload != nil {
		id, err := s.blobs.Store(ctx, upload.Reader, upload.Filename, upload.ContentType)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrStorageWrite, err)
		}
		blobID = id
		filename = upload.Filename
	}

	for attempt := 1; attempt <= s.maxCodeAttempts; attempt++ {
		code, err := GenerateCode()
		if err != nil {
			s.discardBlob(ctx, blobID)
			return "", fmt.Errorf("generate code: %w", err)
		}
		err = s.records.Insert(ctx, domain.TransferRecord{
			Code:      code,
			Text:      text,
			BlobID:    blobID,
			Filename:  filename,
			CreatedAt: time.Now().UTC(),
		})
		if err == nil {
			return code, nil
		}
		if errors.Is(err, repository.ErrDuplicateKey) {
			commonlog.Warnf("code collision on %s (attempt %d/%d), regenerating", code, attempt, s.maxCodeAttempts)
			continue
		}
		s.discardBlob(ctx, blobID)
		return "", fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}

	s.discardBlob(ctx, blobID)
	return "", ErrCodeSpaceExhausted
}

// FetchTransfer resolves a code to its text and blob reference. It does not
// touch blob content; downloads are a separate operation.
func (s *TransferService) FetchTransfer(ctx context.Context, code string) (domain.Transfer, error) {
	code = NormalizeCode(code)
	if !ValidCode(code) {
		return domain.Transfer{}, ErrInvalidCode
	}

	if s.cache != nil {
		if t, ok := s.cache.Get(ctx, code); ok {
			return t, nil
		}
	}

	rec, err := s.records.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Transfer{}, ErrRecordNotFound
		}
		return domain.Transfer{}, err
	}

	t := domain.Transfer{Text: rec.Text, Filename: rec.Filename, BlobID: rec.BlobID}
	if s.cache != nil {
		// Cap the cache entry at the remaining retention so a cached hit
		// never outlives the record itself.
		s.cache.Set(ctx, code, t, time.Until(rec.CreatedAt.Add(s.retention)))
	}
	return t, nil
}

// OpenDownload validates the blob id and opens its content stream. The
// returned metadata is complete before the first content byte; closing the
// reader releases the store connection even on an abandoned download.
func (s *TransferService) OpenDownload(ctx context.Context, blobID string) (io.ReadCloser, domain.BlobInfo, error) {
	if _, err := uuid.Parse(blobID); err != nil {
		return nil, domain.BlobInfo{}, ErrInvalidReference
	}
	rc, info, err := s.blobs.OpenRead(ctx, blobID)
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			return nil, domain.BlobInfo{}, ErrBlobNotFound
		}
		return nil, domain.BlobInfo{}, err
	}
	return rc, info, nil
}

// discardBlob drops a blob whose record never materialized, keeping the
// create path free of orphans.
func (s *TransferService) discardBlob(ctx context.Context, blobID string) {
	if blobID == "" {
		return
	}
	if err := s.blobs.Remove(context.WithoutCancel(ctx), blobID); err != nil {
		commonlog.Warnf("discard blob %s after failed create: %v", blobID, err)
	}
}
