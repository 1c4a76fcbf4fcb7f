package domain

import (
	"io"
	"time"
)

// TransferRecord is the durable unit keyed by its short code. Records are
// immutable after insert and removed wholesale once the retention window
// has passed.
type TransferRecord struct {
	Code      string
	Text      string
	BlobID    string // empty when no file was uploaded
	Filename  string
	CreatedAt time.Time
}

// Transfer is what a fetch by code returns. Filename and BlobID are empty
// for text-only transfers. JSON tags match the cache encoding.
type Transfer struct {
	Text     string `json:"text"`
	Filename string `json:"filename,omitempty"`
	BlobID   string `json:"file_id,omitempty"`
}

// Upload carries an inbound file as a byte stream plus the client-supplied
// metadata. Size is informational; the blob store streams regardless.
type Upload struct {
	Reader      io.Reader
	Filename    string
	ContentType string
	Size        int64
}

// BlobInfo describes a stored blob, resolved before the first content byte
// of a download is delivered.
type BlobInfo struct {
	ID          string
	Filename    string
	ContentType string
	Size        int64
}
