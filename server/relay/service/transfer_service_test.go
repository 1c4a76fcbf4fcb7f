package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"relay_server/server/relay/domain"
)

func newTestService(records *fakeRecordStore, blobs *fakeBlobStore) *TransferService {
	return NewTransferService(records, blobs, nil, 12*time.Hour)
}

func uploadOf(content, filename, contentType string) *domain.Upload {
	return &domain.Upload{
		Reader:      strings.NewReader(content),
		Filename:    filename,
		ContentType: contentType,
		Size:        int64(len(content)),
	}
}

func TestCreateAndFetchTextOnly(t *testing.T) {
	records := newFakeRecordStore()
	svc := newTestService(records, newFakeBlobStore())

	code, err := svc.CreateTransfer(context.Background(), "hello", nil)
	if err != nil {
		t.Fatalf("CreateTransfer: %v", err)
	}
	if !ValidCode(code) {
		t.Fatalf("returned code %q is not canonical", code)
	}

	got, err := svc.FetchTransfer(context.Background(), code)
	if err != nil {
		t.Fatalf("FetchTransfer: %v", err)
	}
	if got.Text != "hello" || got.Filename != "" || got.BlobID != "" {
		t.Fatalf("unexpected transfer: %+v", got)
	}
}

func TestCreateEmptyTransferSucceeds(t *testing.T) {
	svc := newTestService(newFakeRecordStore(), newFakeBlobStore())

	code, err := svc.CreateTransfer(context.Background(), "", nil)
	if err != nil {
		t.Fatalf("CreateTransfer: %v", err)
	}
	got, err := svc.FetchTransfer(context.Background(), code)
	if err != nil {
		t.Fatalf("FetchTransfer: %v", err)
	}
	if got.Text != "" || got.BlobID != "" {
		t.Fatalf("unexpected transfer: %+v", got)
	}
}

func TestCreateWithFileRoundTrip(t *testing.T) {
	records := newFakeRecordStore()
	blobs := newFakeBlobStore()
	svc := newTestService(records, blobs)

	code, err := svc.CreateTransfer(context.Background(), "hello", uploadOf("world", "a.txt", "text/plain"))
	if err != nil {
		t.Fatalf("CreateTransfer: %v", err)
	}

	got, err := svc.FetchTransfer(context.Background(), code)
	if err != nil {
		t.Fatalf("FetchTransfer: %v", err)
	}
	if got.Text != "hello" || got.Filename != "a.txt" || got.BlobID == "" {
		t.Fatalf("unexpected transfer: %+v", got)
	}

	rc, info, err := svc.OpenDownload(context.Background(), got.BlobID)
	if err != nil {
		t.Fatalf("OpenDownload: %v", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read download: %v", err)
	}
	if string(data) != "world" {
		t.Fatalf("downloaded %q, want %q", data, "world")
	}
	if info.Filename != "a.txt" || info.ContentType != "text/plain" || info.Size != 5 {
		t.Fatalf("unexpected blob info: %+v", info)
	}
}

func TestFetchUnknownCode(t *testing.T) {
	svc := newTestService(newFakeRecordStore(), newFakeBlobStore())

	_, err := svc.FetchTransfer(context.Background(), "ABC123")
	if !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("err = %v, want ErrRecordNotFound", err)
	}
}

func TestFetchIsCaseInsensitive(t *testing.T) {
	svc := newTestService(newFakeRecordStore(), newFakeBlobStore())

	code, err := svc.CreateTransfer(context.Background(), "hello", nil)
	if err != nil {
		t.Fatalf("CreateTransfer: %v", err)
	}

	got, err := svc.FetchTransfer(context.Background(), strings.ToLower(code))
	if err != nil {
		t.Fatalf("FetchTransfer lowercase: %v", err)
	}
	if got.Text != "hello" {
		t.Fatalf("unexpected transfer: %+v", got)
	}
}

func TestFetchMalformedCode(t *testing.T) {
	svc := newTestService(newFakeRecordStore(), newFakeBlobStore())

	for _, code := range []string{"", "zz", "ABC12", "ABC1234", "GHIJKL"} {
		_, err := svc.FetchTransfer(context.Background(), code)
		if !errors.Is(err, ErrInvalidCode) {
			t.Fatalf("FetchTransfer(%q) err = %v, want ErrInvalidCode", code, err)
		}
	}
}

func TestCreateRetriesOnCollision(t *testing.T) {
	records := newFakeRecordStore()
	records.forcedCollisions = 3
	svc := newTestService(records, newFakeBlobStore())

	code, err := svc.CreateTransfer(context.Background(), "hello", nil)
	if err != nil {
		t.Fatalf("CreateTransfer: %v", err)
	}
	if records.count() != 1 {
		t.Fatalf("record count = %d, want 1", records.count())
	}
	if _, err := svc.FetchTransfer(context.Background(), code); err != nil {
		t.Fatalf("FetchTransfer after retries: %v", err)
	}
}

func TestCreateCodeSpaceExhausted(t *testing.T) {
	records := newFakeRecordStore()
	records.forcedCollisions = 1000
	blobs := newFakeBlobStore()
	svc := newTestService(records, blobs)

	_, err := svc.CreateTransfer(context.Background(), "hello", uploadOf("world", "a.txt", "text/plain"))
	if !errors.Is(err, ErrCodeSpaceExhausted) {
		t.Fatalf("err = %v, want ErrCodeSpaceExhausted", err)
	}
	if blobs.count() != 0 {
		t.Fatalf("blob count = %d, want 0 (orphan left behind)", blobs.count())
	}
}

func TestCreateInsertFailureRemovesBlob(t *testing.T) {
	records := newFakeRecordStore()
	records.insertErr = errors.New("connection reset")
	blobs := newFakeBlobStore()
	svc := newTestService(records, blobs)

	_, err := svc.CreateTransfer(context.Background(), "hello", uploadOf("world", "a.txt", "text/plain"))
	if !errors.Is(err, ErrStorageWrite) {
		t.Fatalf("err = %v, want ErrStorageWrite", err)
	}
	if blobs.count() != 0 {
		t.Fatalf("blob count = %d, want 0 (orphan left behind)", blobs.count())
	}
}

func TestCreateBlobWriteFailure(t *testing.T) {
	records := newFakeRecordStore()
	blobs := newFakeBlobStore()
	blobs.storeErr = errors.New("disk full")
	svc := newTestService(records, blobs)

	_, err := svc.CreateTransfer(context.Background(), "hello", uploadOf("world", "a.txt", "text/plain"))
	if !errors.Is(err, ErrStorageWrite) {
		t.Fatalf("err = %v, want ErrStorageWrite", err)
	}
	if records.count() != 0 {
		t.Fatalf("record count = %d, want 0 (record inserted despite failed blob)", records.count())
	}
}

func TestOpenDownloadMalformedID(t *testing.T) {
	blobs := newFakeBlobStore()
	svc := newTestService(newFakeRecordStore(), blobs)

	for _, id := range []string{"", "not-a-uuid", "1234", "../../etc/passwd"} {
		_, _, err := svc.OpenDownload(context.Background(), id)
		if !errors.Is(err, ErrInvalidReference) {
			t.Fatalf("OpenDownload(%q) err = %v, want ErrInvalidReference", id, err)
		}
	}
	if blobs.openReads != 0 {
		t.Fatalf("openReads = %d, want 0 (malformed ids must not reach the store)", blobs.openReads)
	}
}

func TestOpenDownloadMissingBlob(t *testing.T) {
	svc := newTestService(newFakeRecordStore(), newFakeBlobStore())

	_, _, err := svc.OpenDownload(context.Background(), uuid.NewString())
	if !errors.Is(err, ErrBlobNotFound) {
		t.Fatalf("err = %v, want ErrBlobNotFound", err)
	}
}

func TestConcurrentCreatesGetDistinctCodes(t *testing.T) {
	svc := newTestService(newFakeRecordStore(), newFakeBlobStore())

	const n = 50
	var wg sync.WaitGroup
	codes := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i], errs[i] = svc.CreateTransfer(context.Background(), "hello", nil)
		}(i)
	}
	wg.Wait()

	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("create %d: %v", i, errs[i])
		}
		if _, dup := seen[codes[i]]; dup {
			t.Fatalf("code %q issued twice", codes[i])
		}
		seen[codes[i]] = struct{}{}
	}
}
