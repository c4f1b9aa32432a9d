package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/oklog/ulid/v2"
)

// Store persists translation batches between the translate and reconcile
// phases, plus a record of every translate run.
type Store interface {
	Close() error

	// Batches
	GetBatch(ctx context.Context, key string) (Batch, bool, error)
	PutBatch(ctx context.Context, b Batch) error
	BatchesForRun(ctx context.Context, runID ulid.ULID) ([]Batch, error)

	// Runs
	RecordRun(ctx context.Context, r Run) error
	GetRun(ctx context.Context, id ulid.ULID) (Run, bool, error)
	Runs(ctx context.Context) ([]Run, error)
}

// Batch is one translator call: the submitted strings and what came back.
type Batch struct {
	Key       string
	RunID     ulid.ULID
	Seq       int
	Source    string
	Target    string
	Inputs    []string
	Outputs   []string
	CreatedAt time.Time
}

// Run describes one translate invocation.
type Run struct {
	ID        ulid.ULID
	Strategy  string
	Source    string
	Target    string
	Input     string
	// BatchSize is the chunk size the run translated with. Batch keys depend
	// on it, so a replay must chunk the same way.
	BatchSize int
	StartedAt time.Time
}

// Key derives the stable batch key from the language pair and the chunk.
// Identical chunks always map to the same key, so reruns reuse stored results.
func Key(source, target string, chunk []string) string {
	h := sha256.New()
	h.Write([]byte(source))
	h.Write([]byte{0})
	h.Write([]byte(target))
	for _, s := range chunk {
		h.Write([]byte{0})
		h.Write([]byte(s))
	}
	return hex.EncodeToString(h.Sum(nil))
}
