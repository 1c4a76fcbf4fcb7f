// Package service implements the transfer lifecycle: creating a transfer
// under a fresh short code, fetching its metadata, streaming its blob, and
// expiring it after the retention window.
//
// Sentinel errors below are the service-level taxonomy; the HTTP handler
// maps each to a status code. Code collisions never appear here because
// they are recovered by bounded retry inside CreateTransfer.
package service

import "errors"

var (
	// ErrRecordNotFound indicates the code never existed or has expired.
	ErrRecordNotFound = errors.New("transfer not found")

	// ErrBlobNotFound indicates the blob id resolves to nothing, e.g. the
	// blob was already cleaned up.
	ErrBlobNotFound = errors.New("file not found")

	// ErrInvalidCode is returned for input that cannot be a transfer code.
	ErrInvalidCode = errors.New("malformed transfer code")

	// ErrInvalidReference is returned for input that cannot be a blob id;
	// no store lookup is attempted.
	ErrInvalidReference = errors.New("malformed file id")

	// ErrStorageWrite wraps any blob or record persistence failure during
	// a create; no record exists after it.
	ErrStorageWrite = errors.New("storage write failed")

	// ErrCodeSpaceExhausted means every insert attempt collided. With 24
	// bits of entropy per code this is practically unreachable, but it is
	// a defined outcome rather than an unbounded loop.
	ErrCodeSpaceExhausted = errors.New("could not allocate a unique code")
)
