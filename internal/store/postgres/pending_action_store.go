package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nippysky/Panthart-Marketplace-sub002/internal/domain"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique constraint breaches.
const uniqueViolation = "23505"

// PendingActionStore implements domain.PendingActionStore using PostgreSQL.
// The tx_hash UNIQUE constraint is the idempotency mechanism: of two
// concurrent creates exactly one insert wins and the loser observes
// ErrAlreadyExists, with no application-level locking.
type PendingActionStore struct {
	pool *pgxpool.Pool
}

// NewPendingActionStore creates a PendingActionStore backed by the given pool.
func NewPendingActionStore(pool *pgxpool.Pool) *PendingActionStore {
	return &PendingActionStore{pool: pool}
}

const pendingCols = `id, action_type, tx_hash, from_address, chain_id, payload, related_id, status, created_at`

func scanPendingAction(row pgx.Row) (domain.PendingChainAction, error) {
	var a domain.PendingChainAction
	var actionType, status string
	var payload []byte
	var relatedID *string

	err := row.Scan(&a.ID, &actionType, &a.TxHash, &a.From, &a.ChainID,
		&payload, &relatedID, &status, &a.CreatedAt)
	if err != nil {
		return domain.PendingChainAction{}, err
	}

	a.Type = domain.PendingActionType(actionType)
	a.Status = domain.PendingActionStatus(status)
	if relatedID != nil {
		a.RelatedID = *relatedID
	}
	if err := json.Unmarshal(payload, &a.Payload); err != nil {
		return domain.PendingChainAction{}, fmt.Errorf("decode payload: %w", err)
	}
	return a, nil
}

// Create inserts a pending action. A tx-hash collision returns
// domain.ErrAlreadyExists; the caller re-reads the surviving row.
func (s *PendingActionStore) Create(ctx context.Context, a domain.PendingChainAction) error {
	payload, err := json.Marshal(a.Payload)
	if err != nil {
		return fmt.Errorf("postgres: encode payload: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO pending_chain_actions
			(id, action_type, tx_hash, from_address, chain_id, payload, related_id, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, string(a.Type), a.TxHash, a.From, a.ChainID,
		payload, a.RelatedID, string(a.Status), a.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: create pending action %s: %w", a.TxHash, err)
	}
	return nil
}

// GetByTxHash retrieves a pending action by transaction hash. Stored hashes
// are canonical lowercase; only the caller's input needs folding.
func (s *PendingActionStore) GetByTxHash(ctx context.Context, txHash string) (domain.PendingChainAction, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pendingCols+` FROM pending_chain_actions WHERE tx_hash = LOWER($1)`,
		txHash)
	a, err := scanPendingAction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PendingChainAction{}, domain.ErrNotFound
		}
		return domain.PendingChainAction{}, fmt.Errorf("postgres: get pending action %s: %w", txHash, err)
	}
	return a, nil
}

// ListByWallet returns a wallet's actions of the given status, newest first.
func (s *PendingActionStore) ListByWallet(ctx context.Context, wallet string, status domain.PendingActionStatus, limit int) ([]domain.PendingChainAction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+pendingCols+` FROM pending_chain_actions
		 WHERE LOWER(from_address) = LOWER($1) AND status = $2
		 ORDER BY created_at DESC LIMIT $3`,
		wallet, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list pending actions: %w", err)
	}
	defer rows.Close()
	return collectPendingActions(rows)
}

// ListTerminalBefore returns CONFIRMED/FAILED actions created before the
// cutoff, oldest first.
func (s *PendingActionStore) ListTerminalBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.PendingChainAction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+pendingCols+` FROM pending_chain_actions
		 WHERE status IN ('CONFIRMED', 'FAILED') AND created_at < $1
		 ORDER BY created_at ASC LIMIT $2`,
		cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list terminal pending actions: %w", err)
	}
	defer rows.Close()
	return collectPendingActions(rows)
}

// DeleteByIDs removes exactly the given archived rows.
func (s *PendingActionStore) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM pending_chain_actions WHERE id = ANY($1::uuid[])`, ids)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete pending actions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func collectPendingActions(rows pgx.Rows) ([]domain.PendingChainAction, error) {
	var actions []domain.PendingChainAction
	for rows.Next() {
		a, err := scanPendingAction(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan pending action: %w", err)
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

var _ domain.PendingActionStore = (*PendingActionStore)(nil)
