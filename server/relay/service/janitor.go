package service

import (
	"context"
	"time"

	commonlog "relay_server/server/common/log"
)

// Janitor removes transfer records past the retention window together with
// the blobs they own. Record deletion and blob deletion are not coupled in
// one transaction: a blob removal that fails after its record is gone is
// logged and leaks until operators intervene, which is accepted as the
// cheaper side of the trade (a record pointing at a deleted blob is worse
// than an unreferenced blob).
type Janitor struct {
	records   RecordStore
	blobs     BlobStore
	retention time.Duration
	interval  time.Duration
}

func NewJanitor(records RecordStore, blobs BlobStore, retention, interval time.Duration) *Janitor {
	return &Janitor{records: records, blobs: blobs, retention: retention, interval: interval}
}

// Run sweeps on a fixed interval until ctx is cancelled. Removal timing is
// best-effort: a record becomes unfetchable within one interval of its
// expiry, not at the exact second.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.Sweep(ctx)
		}
	}
}

// Sweep deletes everything older than the retention window once.
func (j *Janitor) Sweep(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-j.retention)
	deleted, blobIDs, err := j.records.DeleteExpired(ctx, cutoff)
	if err != nil {
		commonlog.Errorf("expire transfer records: %v", err)
		return
	}
	if deleted == 0 {
		return
	}

	removed := 0
	for _, id := range blobIDs {
		if err := j.blobs.Remove(ctx, id); err != nil {
			commonlog.Warnf("remove expired blob %s: %v", id, err)
			continue
		}
		removed++
	}
	commonlog.Infof("expired %d transfers, removed %d of %d blobs", deleted, removed, len(blobIDs))
}
