// Package batch submits surrogate strings to a translator in fixed-size
// chunks and persists every chunk so later runs can replay it.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/mulda/pkg/mulda/corpus"
	"github.com/cognicore/mulda/pkg/mulda/internalerr"
	"github.com/cognicore/mulda/pkg/mulda/store"
	"github.com/cognicore/mulda/pkg/mulda/translate"
)

// DefaultSize is the chunk size used when Dispatcher.Size is unset.
const DefaultSize = 100

// MaxSize is the largest chunk the translation service accepts.
const MaxSize = 128

// Retry bounds how often a failed translator call is repeated.
type Retry struct {
	// Attempts is the total number of calls per batch, including the first.
	Attempts int
	// Backoff is the wait before the second attempt; it doubles after each failure.
	Backoff time.Duration
}

// Dispatcher runs chunks through a translator, one at a time, in order.
type Dispatcher struct {
	Translator translate.Translator
	Store      store.Store
	Size       int
	Source     corpus.Domain
	Target     corpus.Domain
	// Timeout bounds a single translator call. Zero means no per-batch limit.
	Timeout time.Duration
	Retry   Retry
	RunID   ulid.ULID
	Logger  *slog.Logger
	// OnBatch is called after each chunk with the number done and the total.
	OnBatch func(done, total int)

	sleep func(context.Context, time.Duration) error
}

// Stats summarizes a dispatch.
type Stats struct {
	Batches    int
	Translated int
	Reused     int
	Retries    int
}

// Chunk splits items into contiguous chunks of at most size elements.
func Chunk(items []string, size int) [][]string {
	if size <= 0 {
		size = DefaultSize
	}
	var out [][]string
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[start:end])
	}
	return out
}

// Dispatch translates items and returns one response per item, in order.
// Chunks already in the store are reused without calling the translator.
func (d *Dispatcher) Dispatch(ctx context.Context, items []string) ([]translate.Response, Stats, error) {
	var stats Stats
	if d.Translator == nil || d.Store == nil {
		return nil, stats, fmt.Errorf("dispatcher needs a translator and a store: %w", internalerr.ErrInvalidConfig)
	}
	chunks := Chunk(items, d.size())
	out := make([]translate.Response, 0, len(items))

	for seq, chunk := range chunks {
		key := store.Key(d.Source.String(), d.Target.String(), chunk)
		b, found, err := d.Store.GetBatch(ctx, key)
		if err != nil {
			return nil, stats, fmt.Errorf("batch %d: %w", seq, err)
		}
		if found {
			stats.Reused++
			d.logger().Debug("reusing stored batch", "seq", seq, "key", key[:12], "size", len(chunk))
		} else {
			responses, retries, err := d.call(ctx, chunk)
			stats.Retries += retries
			if err != nil {
				return nil, stats, fmt.Errorf("batch %d of %d: %w", seq+1, len(chunks), err)
			}
			b = store.Batch{
				Key:       key,
				RunID:     d.RunID,
				Seq:       seq,
				Source:    d.Source.String(),
				Target:    d.Target.String(),
				Inputs:    chunk,
				Outputs:   translate.Texts(responses),
				CreatedAt: time.Now(),
			}
			if err := d.Store.PutBatch(ctx, b); err != nil {
				return nil, stats, fmt.Errorf("persist batch %d: %w", seq, err)
			}
			stats.Translated++
			d.logger().Debug("translated batch", "seq", seq, "key", key[:12], "size", len(chunk))
		}
		stats.Batches++
		out = appendResponses(out, b)
		if d.OnBatch != nil {
			d.OnBatch(seq+1, len(chunks))
		}
	}
	return out, stats, nil
}

// Replay rebuilds the responses for items from the store alone. A chunk that
// was never translated yields internalerr.ErrNotFound.
func (d *Dispatcher) Replay(ctx context.Context, items []string) ([]translate.Response, error) {
	if d.Store == nil {
		return nil, fmt.Errorf("replay needs a store: %w", internalerr.ErrInvalidConfig)
	}
	chunks := Chunk(items, d.size())
	out := make([]translate.Response, 0, len(items))
	for seq, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		key := store.Key(d.Source.String(), d.Target.String(), chunk)
		b, found, err := d.Store.GetBatch(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("batch %d: %w", seq, err)
		}
		if !found {
			return nil, fmt.Errorf("batch %d (%s) has not been translated: %w", seq, key[:12], internalerr.ErrNotFound)
		}
		if len(b.Outputs) != len(chunk) {
			return nil, fmt.Errorf("stored batch %d has %d outputs for %d inputs: %w", seq, len(b.Outputs), len(chunk), internalerr.ErrTranslation)
		}
		out = appendResponses(out, b)
		d.logger().Debug("replayed batch", "seq", seq, "key", key[:12])
		if d.OnBatch != nil {
			d.OnBatch(seq+1, len(chunks))
		}
	}
	return out, nil
}

// Seed stores already translated responses under the keys Dispatch would use,
// so a results file produced elsewhere can be replayed. responses must line
// up with items; a response whose Input is set must echo its item.
func (d *Dispatcher) Seed(ctx context.Context, items []string, responses []translate.Response) (int, error) {
	if d.Store == nil {
		return 0, fmt.Errorf("seed needs a store: %w", internalerr.ErrInvalidConfig)
	}
	if len(items) != len(responses) {
		return 0, fmt.Errorf("%d responses for %d items: %w", len(responses), len(items), internalerr.ErrInvalidInput)
	}
	for i, r := range responses {
		if r.Input != "" && r.Input != items[i] {
			return 0, fmt.Errorf("response %d answers %q, expected %q: %w", i, r.Input, items[i], internalerr.ErrInvalidInput)
		}
	}

	size := d.size()
	stored := 0
	for seq, chunk := range Chunk(items, size) {
		start := seq * size
		b := store.Batch{
			Key:       store.Key(d.Source.String(), d.Target.String(), chunk),
			RunID:     d.RunID,
			Seq:       seq,
			Source:    d.Source.String(),
			Target:    d.Target.String(),
			Inputs:    chunk,
			Outputs:   translate.Texts(responses[start : start+len(chunk)]),
			CreatedAt: time.Now(),
		}
		if err := d.Store.PutBatch(ctx, b); err != nil {
			return stored, fmt.Errorf("seed batch %d: %w", seq, err)
		}
		stored++
	}
	return stored, nil
}

var errCount = errors.New("response count mismatch")

func (d *Dispatcher) call(ctx context.Context, chunk []string) ([]translate.Response, int, error) {
	attempts := d.Retry.Attempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := d.Retry.Backoff

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			d.logger().Warn("retrying batch", "attempt", attempt+1, "of", attempts, "wait", backoff, "err", lastErr)
			if err := d.wait(ctx, backoff); err != nil {
				return nil, attempt, err
			}
			backoff *= 2
		}

		responses, err := d.once(ctx, chunk)
		if err == nil {
			return responses, attempt, nil
		}
		if errors.Is(err, errCount) || ctx.Err() != nil {
			return nil, attempt, err
		}
		lastErr = err
	}
	return nil, attempts - 1, fmt.Errorf("giving up after %d attempts: %v: %w", attempts, lastErr, internalerr.ErrTranslation)
}

func (d *Dispatcher) once(ctx context.Context, chunk []string) ([]translate.Response, error) {
	callCtx := ctx
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}
	responses, err := d.Translator.Translate(callCtx, chunk, d.Target, d.Source)
	if err != nil {
		return nil, err
	}
	if len(responses) != len(chunk) {
		return nil, fmt.Errorf("%w: sent %d, got %d: %w", errCount, len(chunk), len(responses), internalerr.ErrTranslation)
	}
	return responses, nil
}

func (d *Dispatcher) wait(ctx context.Context, dur time.Duration) error {
	if d.sleep != nil {
		return d.sleep(ctx, dur)
	}
	if dur <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(dur)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (d *Dispatcher) size() int {
	if d.Size <= 0 {
		return DefaultSize
	}
	return d.Size
}

func (d *Dispatcher) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

func appendResponses(out []translate.Response, b store.Batch) []translate.Response {
	for i, text := range b.Outputs {
		out = append(out, translate.Response{TranslatedText: text, Input: b.Inputs[i]})
	}
	return out
}
