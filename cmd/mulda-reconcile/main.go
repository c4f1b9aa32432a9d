package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"github.com/cognicore/mulda/internal/lockfile"
	"github.com/cognicore/mulda/internal/progress"
	"github.com/cognicore/mulda/pkg/mulda"
	"github.com/cognicore/mulda/pkg/mulda/config"
	"github.com/cognicore/mulda/pkg/mulda/corpus"
	"github.com/cognicore/mulda/pkg/mulda/store/sqlite"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML config file (optional)")
		inputPath  = flag.String("input", "", "CoNLL corpus that was translated (overrides config)")
		dbPath     = flag.String("db", "", "Translation store path (overrides config)")
		outDir     = flag.String("out", "", "Output directory (overrides config)")
		strategy   = flag.String("strategy", "", "placeholder or bracket (overrides config)")
		debug      = flag.Bool("debug", false, "Enable debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}
	if *inputPath != "" {
		cfg.Input = *inputPath
	}
	if *dbPath != "" {
		cfg.Store = *dbPath
	}
	if *outDir != "" {
		cfg.Output = *outDir
	}
	if *strategy != "" {
		cfg.Strategy = *strategy
	}
	settings, err := cfg.Settings()
	if err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	sentences, err := corpus.ReadFile(settings.Input)
	if err != nil {
		log.Fatal("Failed to read corpus: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// The store must not change under a reconcile, so take the same lock
	// the translate command holds.
	err = lockfile.With(ctx, lockfile.Path(settings.Store), func() error {
		return reconcile(ctx, settings, sentences)
	})
	if mulda.IsMissingTranslation(err) {
		log.Fatalf("%v\nRun mulda-translate with the same corpus and settings first.", err)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func reconcile(ctx context.Context, settings *config.Settings, sentences []*corpus.Sentence) error {
	if _, err := os.Stat(settings.Store); err != nil {
		return fmt.Errorf("translation store %s: %w", settings.Store, err)
	}
	st, err := sqlite.OpenSQLite(ctx, settings.Store)
	if err != nil {
		return err
	}

	bars := progress.New(os.Stdout)
	opts := mulda.FromSettings(settings)
	opts.Store = st
	opts.OnProgress = bars.Update
	p := mulda.New(opts)
	defer p.Close()

	paths := settings.Paths()
	out, err := mulda.CreateOutputs(paths)
	if err != nil {
		return err
	}
	res, err := p.Reconcile(ctx, sentences, out)
	bars.Stop()
	if err != nil {
		out.Close()
		return err
	}
	if err := out.WriteReport(res.Report); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	fmt.Printf("Wrote %d/%d sentences\n", res.Written, res.Total)
	fmt.Printf("  %s\n  %s\n  %s\n", paths.Orig, paths.Trans, paths.Skipped)
	return nil
}
