package ingest

import (
	"sync/atomic"

	"github.com/banshee-data/tfgraph/internal/tf"
)

// Latest holds the most recently published snapshot for readers on other
// goroutines. The zero value is ready to use and returns nil until the
// first Store.
type Latest struct {
	p atomic.Pointer[tf.Snapshot]
}

// Store publishes s.
func (l *Latest) Store(s *tf.Snapshot) { l.p.Store(s) }

// Snapshot returns the latest published snapshot, or nil.
func (l *Latest) Snapshot() *tf.Snapshot { return l.p.Load() }
