package s3blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nippysky/Panthart-Marketplace-sub002/internal/domain"
)

type memObject struct {
	path  string
	lines int
}

// memBlobWriter records uploads in order and can fail a specific put.
type memBlobWriter struct {
	objects []memObject
	failOn  int // 1-based put number that fails; 0 = never
}

func (w *memBlobWriter) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	if w.failOn > 0 && len(w.objects)+1 == w.failOn {
		return errors.New("bucket unavailable")
	}
	body, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	w.objects = append(w.objects, memObject{path: path, lines: bytes.Count(body, []byte("\n"))})
	return nil
}

type memActivityStore struct {
	rows    []domain.NFTActivity
	deleted [][]string
}

func (s *memActivityStore) InsertActivity(ctx context.Context, a domain.NFTActivity) (bool, error) {
	s.rows = append(s.rows, a)
	return true, nil
}

func (s *memActivityStore) InsertSale(ctx context.Context, sale domain.MarketplaceSale) error {
	return nil
}

func (s *memActivityStore) ListBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.NFTActivity, error) {
	var out []domain.NFTActivity
	for _, r := range s.rows {
		if r.CreatedAt.Before(cutoff) {
			out = append(out, r)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *memActivityStore) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	s.deleted = append(s.deleted, ids)
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	var kept []domain.NFTActivity
	var n int64
	for _, r := range s.rows {
		if drop[r.ID] {
			n++
			continue
		}
		kept = append(kept, r)
	}
	s.rows = kept
	return n, nil
}

type memPendingStore struct {
	rows []domain.PendingChainAction
}

func (s *memPendingStore) Create(ctx context.Context, a domain.PendingChainAction) error {
	s.rows = append(s.rows, a)
	return nil
}

func (s *memPendingStore) GetByTxHash(ctx context.Context, txHash string) (domain.PendingChainAction, error) {
	return domain.PendingChainAction{}, domain.ErrNotFound
}

func (s *memPendingStore) ListByWallet(ctx context.Context, wallet string, status domain.PendingActionStatus, limit int) ([]domain.PendingChainAction, error) {
	return nil, nil
}

func (s *memPendingStore) ListTerminalBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.PendingChainAction, error) {
	var out []domain.PendingChainAction
	for _, r := range s.rows {
		if r.CreatedAt.Before(cutoff) {
			out = append(out, r)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *memPendingStore) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	var kept []domain.PendingChainAction
	var n int64
	for _, r := range s.rows {
		if drop[r.ID] {
			n++
			continue
		}
		kept = append(kept, r)
	}
	s.rows = kept
	return n, nil
}

func agedActivities(n int, at time.Time) []domain.NFTActivity {
	rows := make([]domain.NFTActivity, n)
	for i := range rows {
		rows[i] = domain.NFTActivity{
			ID:        fmt.Sprintf("act-%05d", i),
			Kind:      domain.ActivityBid,
			NFTID:     "nft-1",
			AuctionID: "auction-etn-0001",
			TxHash:    fmt.Sprintf("0x%064d", i),
			Amount:    "1",
			CreatedAt: at,
		}
	}
	return rows
}

func newTestArchiver(writer domain.BlobWriter, activity *memActivityStore, pending *memPendingStore, at time.Time) *Archiver {
	a := NewArchiver(writer, activity, pending,
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	a.now = func() time.Time { return at }
	return a
}

func TestArchiverRun(t *testing.T) {
	ctx := context.Background()
	cutoff := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	old := cutoff.Add(-time.Hour)
	runAt := time.Date(2026, 8, 28, 3, 0, 0, 0, time.UTC)

	t.Run("drains everything past one batch", func(t *testing.T) {
		writer := &memBlobWriter{}
		activity := &memActivityStore{rows: agedActivities(archiveBatch+500, old)}
		activity.rows = append(activity.rows, domain.NFTActivity{
			ID: "act-fresh", Kind: domain.ActivityBid, CreatedAt: cutoff.Add(time.Hour),
		})
		arch := newTestArchiver(writer, activity, &memPendingStore{}, runAt)

		report, err := arch.Run(ctx, cutoff)
		require.NoError(t, err)

		assert.Equal(t, int64(archiveBatch+500), report.ActivitiesWritten)
		assert.Equal(t, report.ActivitiesWritten, report.ActivitiesDeleted)

		// Fresh rows survive the run untouched.
		require.Len(t, activity.rows, 1)
		assert.Equal(t, "act-fresh", activity.rows[0].ID)

		// Two batches, two distinct objects, all rows accounted for.
		require.Len(t, writer.objects, 2)
		assert.Equal(t, "archive/nft_activities/2026-08/20260828T030000Z-0000.jsonl", writer.objects[0].path)
		assert.Equal(t, "archive/nft_activities/2026-08/20260828T030000Z-0001.jsonl", writer.objects[1].path)
		assert.Equal(t, archiveBatch, writer.objects[0].lines)
		assert.Equal(t, 500, writer.objects[1].lines)
	})

	t.Run("deletes only uploaded ids", func(t *testing.T) {
		writer := &memBlobWriter{}
		activity := &memActivityStore{rows: agedActivities(3, old)}
		arch := newTestArchiver(writer, activity, &memPendingStore{}, runAt)

		_, err := arch.Run(ctx, cutoff)
		require.NoError(t, err)

		require.Len(t, activity.deleted, 1)
		assert.Equal(t, []string{"act-00000", "act-00001", "act-00002"}, activity.deleted[0])
	})

	t.Run("upload failure keeps the remaining rows", func(t *testing.T) {
		writer := &memBlobWriter{failOn: 2}
		activity := &memActivityStore{rows: agedActivities(archiveBatch+500, old)}
		arch := newTestArchiver(writer, activity, &memPendingStore{}, runAt)

		report, err := arch.Run(ctx, cutoff)
		require.Error(t, err)

		assert.Equal(t, int64(archiveBatch), report.ActivitiesWritten)
		assert.Equal(t, int64(archiveBatch), report.ActivitiesDeleted)
		assert.Len(t, activity.rows, 500)
	})

	t.Run("separate runs never share object keys", func(t *testing.T) {
		writer := &memBlobWriter{}
		activity := &memActivityStore{rows: agedActivities(10, old)}
		arch := newTestArchiver(writer, activity, &memPendingStore{}, runAt)

		_, err := arch.Run(ctx, cutoff)
		require.NoError(t, err)

		// A later run in the same cutoff month archives newly aged rows.
		activity.rows = agedActivities(10, old)
		arch.now = func() time.Time { return runAt.Add(time.Hour) }
		_, err = arch.Run(ctx, cutoff)
		require.NoError(t, err)

		require.Len(t, writer.objects, 2)
		assert.NotEqual(t, writer.objects[0].path, writer.objects[1].path)
	})

	t.Run("archives terminal pending actions", func(t *testing.T) {
		writer := &memBlobWriter{}
		pending := &memPendingStore{rows: []domain.PendingChainAction{
			{ID: "11111111-1111-1111-1111-111111111111", TxHash: fmt.Sprintf("0x%064d", 1), CreatedAt: old},
			{ID: "22222222-2222-2222-2222-222222222222", TxHash: fmt.Sprintf("0x%064d", 2), CreatedAt: cutoff.Add(time.Hour)},
		}}
		arch := newTestArchiver(writer, &memActivityStore{}, pending, runAt)

		report, err := arch.Run(ctx, cutoff)
		require.NoError(t, err)

		assert.Equal(t, int64(1), report.ActionsWritten)
		assert.Equal(t, int64(1), report.ActionsDeleted)
		require.Len(t, pending.rows, 1)
		assert.Equal(t, "22222222-2222-2222-2222-222222222222", pending.rows[0].ID)
		require.Len(t, writer.objects, 1)
		assert.Equal(t, "archive/pending_chain_actions/2026-08/20260828T030000Z-0000.jsonl", writer.objects[0].path)
	})
}
