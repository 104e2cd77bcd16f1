package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"shadowTrader/internal/model"
	"shadowTrader/internal/storage"
)

// Store provides Postgres persistence for credentials and the trade journal.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// FindCredential loads the wallet credential bound to an owner. The second
// return is false when no credential exists.
func (s *Store) FindCredential(ctx context.Context, ownerID string) (model.Credential, bool, error) {
	if ownerID == "" {
		return model.Credential{}, false, fmt.Errorf("owner id required")
	}

	var address, privateKey string
	row := s.pool.QueryRow(ctx, `SELECT wallet_address, private_key FROM users WHERE id = $1`, ownerID)
	if err := row.Scan(&address, &privateKey); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Credential{}, false, nil
		}
		return model.Credential{}, false, err
	}

	if !common.IsHexAddress(address) {
		return model.Credential{}, false, fmt.Errorf("owner %s: stored wallet address is invalid", ownerID)
	}

	return model.Credential{
		Address:    common.HexToAddress(address),
		PrivateKey: privateKey,
	}, true, nil
}

// RecordSubmission inserts one journal row per broadcast transaction.
func (s *Store) RecordSubmission(ctx context.Context, sub storage.Submission) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO trade_submissions (owner_id, operation, tx_hash, submitted_at, created_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (tx_hash) DO NOTHING
	`,
		sub.OwnerID,
		sub.Operation,
		sub.TxHash,
		sub.SubmittedAt,
	)
	return err
}
