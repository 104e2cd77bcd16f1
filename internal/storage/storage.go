package storage

import (
	"context"
	"time"

	"shadowTrader/internal/model"
)

// CredentialStore resolves the signing credential bound to an owner.
// Implementations must treat credentials as borrowed capabilities: the
// engine uses one for a single submission and drops it.
type CredentialStore interface {
	FindCredential(ctx context.Context, ownerID string) (model.Credential, bool, error)
}

// Submission records one broadcast transaction for later tracking.
type Submission struct {
	OwnerID     string
	Operation   string
	TxHash      string
	SubmittedAt time.Time
}

// TradeJournal persists submissions. Journal writes are advisory: a failed
// write never fails the trade that produced it.
type TradeJournal interface {
	RecordSubmission(ctx context.Context, sub Submission) error
}
