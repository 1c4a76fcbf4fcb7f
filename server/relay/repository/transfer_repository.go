package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"relay_server/server/relay/domain"
)

var (
	// ErrDuplicateKey signals a short-code collision with a live record.
	ErrDuplicateKey = errors.New("code already exists")
	// ErrNotFound signals a code that never existed or has expired.
	ErrNotFound = errors.New("record not found")
)

const pgUniqueViolation = "23505"

// TransferRepository persists transfer records in Postgres. Code uniqueness
// among live records is enforced by the primary key, so concurrent inserts
// need no caller-side locking.
type TransferRepository struct {
	pool *pgxpool.Pool
}

func NewTransferRepository(pool *pgxpool.Pool) *TransferRepository {
	return &TransferRepository{pool: pool}
}

func (r *TransferRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS transfers(
			code CHAR(6) PRIMARY KEY,
			text_body TEXT NOT NULL DEFAULT '',
			blob_id TEXT NOT NULL DEFAULT '',
			filename TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return err
	}
	// The sweep deletes by created_at; keep it indexed.
	_, err = r.pool.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS transfers_created_at_idx ON transfers(created_at)
	`)
	return err
}

func (r *TransferRepository) Insert(ctx context.Context, rec domain.TransferRecord) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO transfers(code, text_body, blob_id, filename, created_at)
		VALUES($1, $2, $3, $4, $5)
	`, rec.Code, rec.Text, rec.BlobID, rec.Filename, rec.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrDuplicateKey
		}
		return err
	}
	return nil
}

func (r *TransferRepository) FindByCode(ctx context.Context, code string) (domain.TransferRecord, error) {
	var rec domain.TransferRecord
	err := r.pool.QueryRow(ctx, `
		SELECT code, text_body, blob_id, filename, created_at
		FROM transfers
		WHERE code=$1
	`, code).Scan(&rec.Code, &rec.Text, &rec.BlobID, &rec.Filename, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.TransferRecord{}, ErrNotFound
		}
		return domain.TransferRecord{}, err
	}
	return rec, nil
}

// DeleteExpired removes every record created before cutoff and reports how
// many were removed plus the blob ids they referenced, so the caller can
// clean up the owned blobs.
func (r *TransferRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int, []string, error) {
	rows, err := r.pool.Query(ctx, `
		DELETE FROM transfers
		WHERE created_at < $1
		RETURNING blob_id
	`, cutoff)
	if err != nil {
		return 0, nil, err
	}
	defer rows.Close()

	deleted := 0
	blobIDs := make([]string, 0)
	for rows.Next() {
		var blobID string
		if err := rows.Scan(&blobID); err != nil {
			return deleted, blobIDs, err
		}
		deleted++
		if blobID != "" {
			blobIDs = append(blobIDs, blobID)
		}
	}
	return deleted, blobIDs, rows.Err()
}
