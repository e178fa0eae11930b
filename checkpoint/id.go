package checkpoint

import (
	"crypto/rand"
	"sync"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewCheckpointID mints a monotonic, lexically sortable checkpoint id shared
// by every Checkpointer variant, so "newest first" in List is also
// "lexically greatest first" without an extra sequence column.
func NewCheckpointID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Now(), entropy).String()
}
