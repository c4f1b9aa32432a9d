package mulda

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/mulda/pkg/mulda/batch"
	"github.com/cognicore/mulda/pkg/mulda/config"
	"github.com/cognicore/mulda/pkg/mulda/corpus"
	"github.com/cognicore/mulda/pkg/mulda/encode"
	"github.com/cognicore/mulda/pkg/mulda/internalerr"
	"github.com/cognicore/mulda/pkg/mulda/realign"
	"github.com/cognicore/mulda/pkg/mulda/skip"
	"github.com/cognicore/mulda/pkg/mulda/store"
	"github.com/cognicore/mulda/pkg/mulda/translate"
)

// Stage names passed to progress callbacks.
const (
	StageTranslate = "translate"
	StageCompanion = "companion"
	StageReconcile = "reconcile"
)

// Pipeline is the main facade: phase one translates a corpus into the store,
// phase two realigns it from the store into tagged output.
type Pipeline struct {
	store      store.Store
	translator translate.Translator
	source     corpus.Domain
	target     corpus.Domain
	strategy   encode.Strategy
	companion  config.Companion
	delims     encode.Delimiters
	realigner  *realign.Realigner
	batchSize  int
	timeout    time.Duration
	retry      batch.Retry
	logger     *slog.Logger
	progress   func(stage string, done, total int)

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// Options configures a Pipeline
type Options struct {
	Store      store.Store
	Translator translate.Translator
	Source     corpus.Domain
	Target     corpus.Domain
	Strategy   encode.Strategy
	Companion  config.Companion
	Delims     encode.Delimiters
	// Matcher locates placeholders in translations. Nil means realign.PlainMatcher.
	Matcher   realign.Matcher
	BatchSize int
	Timeout   time.Duration
	Retry     batch.Retry
	Logger    *slog.Logger
	// OnProgress is called as batches and sentences complete.
	OnProgress func(stage string, done, total int)
}

// New creates a Pipeline with the given dependencies
func New(opts Options) *Pipeline {
	delims := opts.Delims
	if delims == (encode.Delimiters{}) {
		delims = encode.DefaultDelimiters
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		store:      opts.Store,
		translator: opts.Translator,
		source:     opts.Source,
		target:     opts.Target,
		strategy:   opts.Strategy,
		companion:  opts.Companion,
		delims:     delims,
		realigner:  realign.New(opts.Target, delims, opts.Matcher),
		batchSize:  opts.BatchSize,
		timeout:    opts.Timeout,
		retry:      opts.Retry,
		logger:     logger,
		progress:   opts.OnProgress,
		entropy:    ulid.Monotonic(rand.Reader, 0),
	}
}

// FromSettings builds pipeline options from a validated configuration.
func FromSettings(s *config.Settings) Options {
	var m realign.Matcher = realign.PlainMatcher{}
	if s.FixIssues {
		m = realign.MatcherFor(s.Source, s.Target)
	}
	return Options{
		Source:    s.Source,
		Target:    s.Target,
		Strategy:  s.Strategy,
		Companion: s.Companion,
		Delims:    s.Delims,
		Matcher:   m,
		BatchSize: s.BatchSize,
		Timeout:   s.Timeout,
		Retry:     s.Retry,
	}
}

// Close cleanly shuts down the pipeline
func (p *Pipeline) Close() error {
	if p.store == nil {
		return nil
	}
	return p.store.Close()
}

// TranslateResult summarizes phase one.
type TranslateResult struct {
	RunID     ulid.ULID
	Sentences int
	Encoded   int
	// Unencodable counts sentences left out of the main set.
	Unencodable int
	Main        batch.Stats
	Companion   batch.Stats
	// Responses are the main-set translations in corpus order.
	Responses          []translate.Response
	CompanionResponses []translate.Response
}

// Translate encodes every sentence, sends the surrogates through the
// translator in batches and persists each batch as it completes.
func (p *Pipeline) Translate(ctx context.Context, sentences []*corpus.Sentence, input string) (*TranslateResult, error) {
	if p.translator == nil || p.store == nil {
		return nil, fmt.Errorf("translate needs a translator and a store: %w", internalerr.ErrInvalidConfig)
	}
	runID := p.newRunID()
	run := store.Run{
		ID:        runID,
		Strategy:  p.strategy.String(),
		Source:    p.source.String(),
		Target:    p.target.String(),
		Input:     input,
		BatchSize: p.size(),
		StartedAt: time.Now(),
	}
	if err := p.store.RecordRun(ctx, run); err != nil {
		return nil, fmt.Errorf("record run: %w", err)
	}

	pl := p.plan(sentences)
	res := &TranslateResult{RunID: runID, Sentences: len(sentences)}
	for _, u := range pl.units {
		if u.encodeErr != nil {
			res.Unencodable++
			continue
		}
		res.Encoded++
	}
	p.logger.Info("translating corpus",
		"run", runID.String(),
		"sentences", len(sentences),
		"strategy", p.strategy.String(),
		"strings", len(pl.main),
		"companion_strings", len(pl.companion))

	var err error
	res.Responses, res.Main, err = p.dispatcher(runID, StageTranslate, p.size()).Dispatch(ctx, pl.main)
	if err != nil {
		return res, fmt.Errorf("translate main set: %w", err)
	}
	if len(pl.companion) > 0 {
		res.CompanionResponses, res.Companion, err = p.dispatcher(runID, StageCompanion, p.size()).Dispatch(ctx, pl.companion)
		if err != nil {
			return res, fmt.Errorf("translate companion set: %w", err)
		}
	}
	p.logger.Info("translation stored",
		"run", runID.String(),
		"batches", res.Main.Batches+res.Companion.Batches,
		"reused", res.Main.Reused+res.Companion.Reused,
		"retries", res.Main.Retries+res.Companion.Retries)
	return res, nil
}

// Import stores translations produced elsewhere, such as a results file, so
// Reconcile can replay them. Each response list must match the set Translate
// would send for the same corpus; companion may be nil when not needed.
func (p *Pipeline) Import(ctx context.Context, sentences []*corpus.Sentence, main, companion []translate.Response) error {
	if p.store == nil {
		return fmt.Errorf("import needs a store: %w", internalerr.ErrInvalidConfig)
	}
	pl := p.plan(sentences)
	runID := p.newRunID()
	if err := p.store.RecordRun(ctx, store.Run{
		ID:        runID,
		Strategy:  p.strategy.String(),
		Source:    p.source.String(),
		Target:    p.target.String(),
		Input:     "import",
		BatchSize: p.size(),
		StartedAt: time.Now(),
	}); err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	if _, err := p.dispatcher(runID, StageTranslate, p.size()).Seed(ctx, pl.main, main); err != nil {
		return fmt.Errorf("import main set: %w", err)
	}
	if len(pl.companion) > 0 && companion != nil {
		if _, err := p.dispatcher(runID, StageCompanion, p.size()).Seed(ctx, pl.companion, companion); err != nil {
			return fmt.Errorf("import companion set: %w", err)
		}
	}
	return nil
}

// Sink receives realigned sentence pairs.
type Sink interface {
	WritePair(realign.Pair) error
}

// ReconcileResult summarizes phase two.
type ReconcileResult struct {
	Total   int
	Written int
	Report  *skip.Report
}

// Reconcile replays the stored translations of sentences, realigns each one
// and writes the successes to sink. Sentences that cannot be realigned are
// recorded in the report and skipped; they never reach the sink.
func (p *Pipeline) Reconcile(ctx context.Context, sentences []*corpus.Sentence, sink Sink) (*ReconcileResult, error) {
	pl := p.plan(sentences)

	mainOut, compOut, err := p.replay(ctx, pl)
	if err != nil {
		return nil, err
	}

	res := &ReconcileResult{Total: len(sentences), Report: &skip.Report{}}
	for i, u := range pl.units {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		pair, err := p.realignUnit(u, mainOut, compOut)
		if err != nil {
			reason, ok := skip.ReasonOf(err)
			if !ok {
				return res, fmt.Errorf("sentence %s: %w", u.sentence.ID(), err)
			}
			res.Report.Add(u.sentence.ID(), reason)
			p.logger.Warn("skipping sentence", "id", u.sentence.ID(), "reason", reason.Code(), "err", err)
		} else {
			if err := sink.WritePair(pair); err != nil {
				return res, fmt.Errorf("write sentence %s: %w", u.sentence.ID(), err)
			}
			res.Written++
		}
		if p.progress != nil {
			p.progress(StageReconcile, i+1, len(pl.units))
		}
	}

	for _, line := range res.Report.Summary(res.Total) {
		p.logger.Info(line)
	}
	return res, nil
}

func (p *Pipeline) realignUnit(u unit, mainOut, compOut []translate.Response) (realign.Pair, error) {
	if u.encodeErr != nil {
		return realign.Pair{}, u.encodeErr
	}
	translated := translate.Texts(mainOut[u.main.start : u.main.start+u.main.n])

	if p.strategy == encode.Bracket {
		return p.realigner.Bracket(u.sentence, translated)
	}

	var entityTexts []string
	if len(u.form.Entities) > 0 {
		if !u.hasCompanion {
			return realign.Pair{}, skip.Errorf(skip.NotInCompanion, "no entity translations for %s", u.sentence.ID())
		}
		comp := translate.Texts(compOut[u.companion.start : u.companion.start+u.companion.n])
		switch p.companion {
		case config.CompanionIsolated:
			entityTexts = make([]string, len(comp))
			for i, c := range comp {
				entityTexts[i] = strings.TrimSpace(c)
			}
		default:
			spans, err := p.realigner.Spans(u.sentence, comp)
			if err != nil {
				return realign.Pair{}, skip.Errorf(skip.NotInCompanion, "entity translations unusable: %v", err)
			}
			entityTexts = spans
		}
	}
	return p.realigner.Placeholder(u.sentence, translated[0], entityTexts)
}

// replay fetches both translation sets from the store. The configured batch
// size is tried first, then the sizes recorded by earlier runs for the same
// strategy and language pair, newest first.
func (p *Pipeline) replay(ctx context.Context, pl *plan) (mainOut, compOut []translate.Response, err error) {
	sizes, err := p.replaySizes(ctx)
	if err != nil {
		return nil, nil, err
	}
	var firstErr error
	for _, size := range sizes {
		mainOut, compOut, err = p.replayWith(ctx, pl, size)
		if err == nil {
			if size != p.size() {
				p.logger.Info("replaying with recorded batch size", "batch_size", size, "configured", p.size())
			}
			return mainOut, compOut, nil
		}
		if !IsMissingTranslation(err) {
			return nil, nil, err
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, nil, firstErr
}

func (p *Pipeline) replayWith(ctx context.Context, pl *plan, size int) (mainOut, compOut []translate.Response, err error) {
	mainOut, err = p.dispatcher(ulid.ULID{}, StageTranslate, size).Replay(ctx, pl.main)
	if err != nil {
		return nil, nil, fmt.Errorf("replay main set: %w", err)
	}
	if len(pl.companion) > 0 {
		compOut, err = p.dispatcher(ulid.ULID{}, StageCompanion, size).Replay(ctx, pl.companion)
		if err != nil {
			return nil, nil, fmt.Errorf("replay companion set: %w", err)
		}
	}
	return mainOut, compOut, nil
}

func (p *Pipeline) replaySizes(ctx context.Context) ([]int, error) {
	sizes := []int{p.size()}
	if p.store == nil {
		return sizes, nil
	}
	runs, err := p.store.Runs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	seen := map[int]bool{p.size(): true}
	for i := len(runs) - 1; i >= 0; i-- {
		r := runs[i]
		if r.BatchSize <= 0 || seen[r.BatchSize] {
			continue
		}
		if r.Strategy != p.strategy.String() || r.Source != p.source.String() || r.Target != p.target.String() {
			continue
		}
		seen[r.BatchSize] = true
		sizes = append(sizes, r.BatchSize)
	}
	return sizes, nil
}

func (p *Pipeline) size() int {
	if p.batchSize <= 0 {
		return batch.DefaultSize
	}
	return p.batchSize
}

func (p *Pipeline) dispatcher(runID ulid.ULID, stage string, size int) *batch.Dispatcher {
	d := &batch.Dispatcher{
		Translator: p.translator,
		Store:      p.store,
		Size:       size,
		Source:     p.source,
		Target:     p.target,
		Timeout:    p.timeout,
		Retry:      p.retry,
		RunID:      runID,
		Logger:     p.logger.With("stage", stage),
	}
	if p.progress != nil {
		d.OnBatch = func(done, total int) { p.progress(stage, done, total) }
	}
	return d
}

func (p *Pipeline) newRunID() ulid.ULID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return ulid.MustNew(ulid.Now(), p.entropy)
}

// IsMissingTranslation reports whether err means the reconcile phase ran
// before the translate phase stored the needed batches.
func IsMissingTranslation(err error) bool {
	return errors.Is(err, internalerr.ErrNotFound)
}
