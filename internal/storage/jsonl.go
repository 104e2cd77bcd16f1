package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// JsonlJournal appends submissions to a JSONL file. It backs the trade
// journal when no database is configured.
type JsonlJournal struct {
	path string
	mu   sync.Mutex
}

func NewJsonlJournal(path string) *JsonlJournal {
	return &JsonlJournal{path: path}
}

type jsonlSubmission struct {
	OwnerID     string `json:"owner_id"`
	Operation   string `json:"operation"`
	TxHash      string `json:"tx_hash"`
	SubmittedAt string `json:"submitted_at"`
}

// RecordSubmission appends one submission as a JSON line.
func (j *JsonlJournal) RecordSubmission(_ context.Context, sub Submission) error {
	dir := filepath.Dir(j.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create journal dir: %w", err)
		}
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	file, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open journal file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	line, err := json.Marshal(jsonlSubmission{
		OwnerID:     sub.OwnerID,
		Operation:   sub.Operation,
		TxHash:      sub.TxHash,
		SubmittedAt: sub.SubmittedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal submission: %w", err)
	}
	if _, err := writer.Write(line); err != nil {
		return fmt.Errorf("write submission: %w", err)
	}
	if err := writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush journal: %w", err)
	}

	return nil
}
