package storage

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
)

// NewRowID returns a new primary key for catalog, ledger, plan and report rows.
func NewRowID() string {
	return uuid.New().String()
}

// NewSwapID returns a time-ordered id for swap_history rows, so that
// lexicographic order equals insertion order.
func NewSwapID(now time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(now), entropy).String()
}
