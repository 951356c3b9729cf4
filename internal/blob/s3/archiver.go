package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nippysky/Panthart-Marketplace-sub002/internal/domain"
)

// archiveBatch bounds one archive query so a long-running install cannot pull
// the whole history into memory at once.
const archiveBatch = 10000

// ArchiveReport summarizes one archive run.
type ArchiveReport struct {
	Cutoff            time.Time `json:"cutoff"`
	ActivitiesWritten int64     `json:"activitiesWritten"`
	ActivitiesDeleted int64     `json:"activitiesDeleted"`
	ActionsWritten    int64     `json:"actionsWritten"`
	ActionsDeleted    int64     `json:"actionsDeleted"`
}

// Archiver moves aged rows to cold storage: activity-log entries and terminal
// pending actions older than the retention cutoff are serialized to JSONL,
// uploaded, and only then deleted from the primary store. Deletion is by the
// ids of the uploaded batch, never by time range, so a row is only ever
// removed after its object landed. An upload failure leaves the remaining
// rows in place for the next run.
type Archiver struct {
	writer   domain.BlobWriter
	activity domain.ActivityStore
	pending  domain.PendingActionStore
	logger   *slog.Logger
	now      func() time.Time
}

// NewArchiver creates an Archiver.
func NewArchiver(
	writer domain.BlobWriter,
	activity domain.ActivityStore,
	pending domain.PendingActionStore,
	logger *slog.Logger,
) *Archiver {
	return &Archiver{
		writer:   writer,
		activity: activity,
		pending:  pending,
		logger:   logger.With(slog.String("component", "archiver")),
		now:      time.Now,
	}
}

// Run archives everything older than the cutoff and returns a report. The two
// record kinds are archived independently; a failure in one does not undo the
// other.
func (a *Archiver) Run(ctx context.Context, cutoff time.Time) (ArchiveReport, error) {
	report := ArchiveReport{Cutoff: cutoff.UTC()}
	runStamp := a.now().UTC().Format("20060102T150405Z")

	written, deleted, err := a.archiveActivities(ctx, cutoff, runStamp)
	report.ActivitiesWritten = written
	report.ActivitiesDeleted = deleted
	if err != nil {
		return report, err
	}

	written, deleted, err = a.archiveActions(ctx, cutoff, runStamp)
	report.ActionsWritten = written
	report.ActionsDeleted = deleted
	if err != nil {
		return report, err
	}

	a.logger.InfoContext(ctx, "archive run complete",
		slog.Time("cutoff", report.Cutoff),
		slog.Int64("activities", report.ActivitiesWritten),
		slog.Int64("actions", report.ActionsWritten),
	)
	return report, nil
}

// archiveActivities drains aged activity rows batch by batch: each batch is
// uploaded and then deleted by id before the next one is listed.
func (a *Archiver) archiveActivities(ctx context.Context, cutoff time.Time, runStamp string) (written, deleted int64, err error) {
	for seq := 0; ; seq++ {
		rows, err := a.activity.ListBefore(ctx, cutoff, archiveBatch)
		if err != nil {
			return written, deleted, fmt.Errorf("s3blob: list activities: %w", err)
		}
		if len(rows) == 0 {
			return written, deleted, nil
		}

		buf, err := marshalJSONL(rows)
		if err != nil {
			return written, deleted, fmt.Errorf("s3blob: marshal activities: %w", err)
		}
		path := archivePath("nft_activities", cutoff, runStamp, seq)
		if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
			return written, deleted, fmt.Errorf("s3blob: upload activities: %w", err)
		}
		written += int64(len(rows))

		ids := make([]string, len(rows))
		for i, r := range rows {
			ids[i] = r.ID
		}
		n, err := a.activity.DeleteByIDs(ctx, ids)
		deleted += n
		if err != nil {
			// Uploaded but not pruned: the rows resurface next run under a
			// fresh run-stamped key, a duplicate object rather than a loss.
			return written, deleted, fmt.Errorf("s3blob: prune activities: %w", err)
		}
	}
}

// archiveActions is archiveActivities for terminal pending actions.
func (a *Archiver) archiveActions(ctx context.Context, cutoff time.Time, runStamp string) (written, deleted int64, err error) {
	for seq := 0; ; seq++ {
		rows, err := a.pending.ListTerminalBefore(ctx, cutoff, archiveBatch)
		if err != nil {
			return written, deleted, fmt.Errorf("s3blob: list pending actions: %w", err)
		}
		if len(rows) == 0 {
			return written, deleted, nil
		}

		buf, err := marshalJSONL(rows)
		if err != nil {
			return written, deleted, fmt.Errorf("s3blob: marshal pending actions: %w", err)
		}
		path := archivePath("pending_chain_actions", cutoff, runStamp, seq)
		if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
			return written, deleted, fmt.Errorf("s3blob: upload pending actions: %w", err)
		}
		written += int64(len(rows))

		ids := make([]string, len(rows))
		for i, r := range rows {
			ids[i] = r.ID
		}
		n, err := a.pending.DeleteByIDs(ctx, ids)
		deleted += n
		if err != nil {
			return written, deleted, fmt.Errorf("s3blob: prune pending actions: %w", err)
		}
	}
}

// archivePath partitions objects by the year-month of the cutoff and keys
// them by run timestamp and batch sequence, so no run ever overwrites an
// earlier run's objects.
func archivePath(kind string, cutoff time.Time, runStamp string, seq int) string {
	return fmt.Sprintf("archive/%s/%s/%s-%04d.jsonl", kind, cutoff.Format("2006-01"), runStamp, seq)
}

// marshalJSONL renders records as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
