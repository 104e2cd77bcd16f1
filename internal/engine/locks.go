package engine

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// keyedLocks serializes operations per (owner, token). The approve-then-act
// ordering has no on-chain guard, so conflicting requests must queue.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[string]*sync.Mutex)}
}

// lock acquires the mutex for key and returns its unlock func.
func (k *keyedLocks) lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// lockKey builds the critical-section key for an owner and token. The zero
// address stands for the native currency.
func lockKey(ownerID string, token common.Address) string {
	return strings.ToLower(strings.TrimSpace(ownerID)) + "|" + strings.ToLower(token.Hex())
}
