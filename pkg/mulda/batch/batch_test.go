package batch

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cognicore/mulda/pkg/mulda/corpus"
	"github.com/cognicore/mulda/pkg/mulda/internalerr"
	"github.com/cognicore/mulda/pkg/mulda/store/memstore"
	"github.com/cognicore/mulda/pkg/mulda/translate"
)

// recorder prefixes every input with "T:" and remembers each call.
type recorder struct {
	calls [][]string
	fail  int // fail this many calls before succeeding
	short bool
}

func (r *recorder) Translate(ctx context.Context, texts []string, _, _ corpus.Domain) ([]translate.Response, error) {
	r.calls = append(r.calls, append([]string(nil), texts...))
	if r.fail > 0 {
		r.fail--
		return nil, errors.New("connection reset")
	}
	n := len(texts)
	if r.short {
		n--
	}
	out := make([]translate.Response, n)
	for i := 0; i < n; i++ {
		out[i] = translate.Response{TranslatedText: "T:" + texts[i], Input: texts[i]}
	}
	return out, nil
}

func items(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("s%d", i)
	}
	return out
}

func noSleep(context.Context, time.Duration) error { return nil }

func TestChunk(t *testing.T) {
	chunks := Chunk(items(250), 100)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, want := range []int{100, 100, 50} {
		if len(chunks[i]) != want {
			t.Errorf("chunk %d has %d items, want %d", i, len(chunks[i]), want)
		}
	}
	if chunks[2][0] != "s200" {
		t.Errorf("order not preserved: %q", chunks[2][0])
	}
	if Chunk(nil, 10) != nil {
		t.Error("empty input should give no chunks")
	}
	if len(Chunk(items(5), 0)) != 1 {
		t.Error("zero size should fall back to the default")
	}
}

func TestDispatchBatchesInOrder(t *testing.T) {
	rec := &recorder{}
	var progress []int
	d := &Dispatcher{
		Translator: rec,
		Store:      memstore.New(),
		Size:       100,
		Source:     corpus.English,
		Target:     corpus.French,
		OnBatch:    func(done, total int) { progress = append(progress, done*10+total) },
	}
	in := items(250)
	out, stats, err := d.Dispatch(context.Background(), in)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(rec.calls) != 3 {
		t.Fatalf("expected 3 translator calls, got %d", len(rec.calls))
	}
	for i, want := range []int{100, 100, 50} {
		if len(rec.calls[i]) != want {
			t.Errorf("call %d sent %d strings, want %d", i, len(rec.calls[i]), want)
		}
	}
	if len(out) != 250 {
		t.Fatalf("got %d responses", len(out))
	}
	for i, r := range out {
		if r.Input != in[i] || r.TranslatedText != "T:"+in[i] {
			t.Fatalf("response %d out of order: %+v", i, r)
		}
	}
	if stats.Batches != 3 || stats.Translated != 3 || stats.Reused != 0 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if len(progress) != 3 || progress[2] != 33 {
		t.Errorf("progress = %v", progress)
	}
}

func TestDispatchReusesStoredBatches(t *testing.T) {
	st := memstore.New()
	first := &recorder{}
	d := &Dispatcher{Translator: first, Store: st, Size: 10, Source: corpus.English, Target: corpus.German}
	if _, _, err := d.Dispatch(context.Background(), items(25)); err != nil {
		t.Fatal(err)
	}

	second := &recorder{}
	d.Translator = second
	out, stats, err := d.Dispatch(context.Background(), items(30))
	if err != nil {
		t.Fatal(err)
	}
	if len(second.calls) != 1 {
		t.Errorf("expected only the changed chunk to be translated, got %d calls", len(second.calls))
	}
	if stats.Reused != 2 || stats.Translated != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if len(out) != 30 || out[29].TranslatedText != "T:s29" {
		t.Errorf("unexpected output tail %+v", out[len(out)-1])
	}
}

func TestDispatchRetries(t *testing.T) {
	rec := &recorder{fail: 2}
	var waits []time.Duration
	d := &Dispatcher{
		Translator: rec,
		Store:      memstore.New(),
		Source:     corpus.English,
		Target:     corpus.French,
		Retry:      Retry{Attempts: 3, Backoff: time.Second},
		sleep: func(_ context.Context, dur time.Duration) error {
			waits = append(waits, dur)
			return nil
		},
	}
	_, stats, err := d.Dispatch(context.Background(), items(3))
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if stats.Retries != 2 || len(rec.calls) != 3 {
		t.Errorf("retries=%d calls=%d", stats.Retries, len(rec.calls))
	}
	if len(waits) != 2 || waits[0] != time.Second || waits[1] != 2*time.Second {
		t.Errorf("backoff should double: %v", waits)
	}
}

func TestDispatchGivesUp(t *testing.T) {
	st := memstore.New()
	d := &Dispatcher{
		Translator: &recorder{fail: 5},
		Store:      st,
		Retry:      Retry{Attempts: 2},
		sleep:      noSleep,
	}
	_, _, err := d.Dispatch(context.Background(), items(3))
	if !errors.Is(err, internalerr.ErrTranslation) {
		t.Fatalf("expected ErrTranslation, got %v", err)
	}
	if st.Puts() != 0 {
		t.Error("failed batch must not be persisted")
	}
}

func TestDispatchCountMismatchIsFatal(t *testing.T) {
	rec := &recorder{short: true}
	d := &Dispatcher{Translator: rec, Store: memstore.New(), Retry: Retry{Attempts: 3}, sleep: noSleep}
	_, _, err := d.Dispatch(context.Background(), items(4))
	if !errors.Is(err, internalerr.ErrTranslation) {
		t.Fatalf("expected ErrTranslation, got %v", err)
	}
	if len(rec.calls) != 1 {
		t.Errorf("count mismatch should not be retried, got %d calls", len(rec.calls))
	}
}

func TestDispatchTimeout(t *testing.T) {
	slow := translate.Func(func(ctx context.Context, texts []string, _, _ corpus.Domain) ([]translate.Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	d := &Dispatcher{
		Translator: slow,
		Store:      memstore.New(),
		Timeout:    10 * time.Millisecond,
		Retry:      Retry{Attempts: 2},
		sleep:      noSleep,
	}
	_, _, err := d.Dispatch(context.Background(), items(1))
	if !errors.Is(err, internalerr.ErrTranslation) {
		t.Fatalf("expected timeout to exhaust retries, got %v", err)
	}
}

func TestReplay(t *testing.T) {
	st := memstore.New()
	d := &Dispatcher{Translator: &recorder{}, Store: st, Size: 2, Source: corpus.English, Target: corpus.Spanish}
	in := items(5)
	want, _, err := d.Dispatch(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}

	replayer := &Dispatcher{Store: st, Size: 2, Source: corpus.English, Target: corpus.Spanish}
	got, err := replayer.Replay(context.Background(), in)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d responses", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("response %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	_, err = replayer.Replay(context.Background(), append(in, "never sent"))
	if !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	replayer.Size = 3
	if _, err := replayer.Replay(context.Background(), in); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("different chunking should not find batches, got %v", err)
	}
}

func TestSeedThenReplay(t *testing.T) {
	st := memstore.New()
	d := &Dispatcher{Store: st, Size: 2, Source: corpus.English, Target: corpus.French}
	in := items(3)
	responses := []translate.Response{
		{TranslatedText: "un", Input: "s0"},
		{TranslatedText: "deux"},
		{TranslatedText: "trois", Input: "s2"},
	}
	n, err := d.Seed(context.Background(), in, responses)
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if n != 2 {
		t.Errorf("stored %d batches, want 2", n)
	}
	got, err := d.Replay(context.Background(), in)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if got[1].TranslatedText != "deux" || got[1].Input != "s1" {
		t.Errorf("unexpected replay %+v", got)
	}

	if _, err := d.Seed(context.Background(), in, responses[:2]); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("short responses: %v", err)
	}
	bad := []translate.Response{{Input: "other"}, {}, {}}
	if _, err := d.Seed(context.Background(), in, bad); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("mismatched input: %v", err)
	}
}

func TestDispatchNeedsCollaborators(t *testing.T) {
	d := &Dispatcher{}
	if _, _, err := d.Dispatch(context.Background(), items(1)); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}
