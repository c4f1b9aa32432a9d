package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/cognicore/mulda/internal/gtranslate"
	"github.com/cognicore/mulda/internal/lockfile"
	"github.com/cognicore/mulda/internal/progress"
	"github.com/cognicore/mulda/pkg/mulda"
	"github.com/cognicore/mulda/pkg/mulda/config"
	"github.com/cognicore/mulda/pkg/mulda/corpus"
	"github.com/cognicore/mulda/pkg/mulda/store"
	"github.com/cognicore/mulda/pkg/mulda/store/sqlite"
	"github.com/cognicore/mulda/pkg/mulda/translate"
)

func main() {
	var (
		configPath      = flag.String("config", "", "YAML config file (optional)")
		inputPath       = flag.String("input", "", "CoNLL corpus to translate (overrides config)")
		dbPath          = flag.String("db", "", "Translation store path (overrides config)")
		source          = flag.String("source", "", "Source language code (overrides config)")
		target          = flag.String("target", "", "Target language code (overrides config)")
		strategy        = flag.String("strategy", "", "placeholder or bracket (overrides config)")
		batchSize       = flag.Int("batch", 0, "Strings per translation request (overrides config)")
		export          = flag.Bool("export", false, "Also write the translations as a results JSON file")
		importPath      = flag.String("import", "", "Store translations from a results JSON file instead of calling the service")
		importCompanion = flag.String("import-companion", "", "Companion results JSON file to store with -import")
		dryRun          = flag.Bool("dry-run", false, "Use an identity translator instead of the service")
		listRuns        = flag.Bool("runs", false, "List the runs recorded in the store and exit")
		debug           = flag.Bool("debug", false, "Enable debug logging")
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
	override(&cfg.Input, *inputPath)
	override(&cfg.Store, *dbPath)
	override(&cfg.Source, *source)
	override(&cfg.Target, *target)
	override(&cfg.Strategy, *strategy)
	if *batchSize > 0 {
		cfg.BatchSize = *batchSize
	}
	settings, err := cfg.Settings()
	if err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *listRuns {
		if err := printRuns(ctx, settings.Store); err != nil {
			log.Fatal(err)
		}
		return
	}

	if !*dryRun && *importPath == "" && settings.APIKey == "" {
		log.Fatal("No API key: set the variable named by translator.api_key_env, or use --dry-run")
	}

	sentences, err := corpus.ReadFile(settings.Input)
	if err != nil {
		log.Fatal("Failed to read corpus: ", err)
	}
	slog.Info("loaded corpus", "path", settings.Input, "sentences", len(sentences))

	if err := os.MkdirAll(filepath.Dir(settings.Store), 0o755); err != nil {
		log.Fatal(err)
	}
	err = lockfile.With(ctx, lockfile.Path(settings.Store), func() error {
		if *importPath != "" {
			return importResults(ctx, settings, sentences, *importPath, *importCompanion)
		}
		return translateCorpus(ctx, settings, sentences, *dryRun, *export)
	})
	if err != nil {
		log.Fatal(err)
	}
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func openPipeline(ctx context.Context, settings *config.Settings, tr translate.Translator, bars *progress.Bars) (*mulda.Pipeline, error) {
	st, err := sqlite.OpenSQLite(ctx, settings.Store)
	if err != nil {
		return nil, err
	}
	opts := mulda.FromSettings(settings)
	opts.Store = st
	opts.Translator = tr
	if bars != nil {
		opts.OnProgress = bars.Update
	}
	return mulda.New(opts), nil
}

func translateCorpus(ctx context.Context, settings *config.Settings, sentences []*corpus.Sentence, dryRun, export bool) error {
	var tr translate.Translator = translate.Identity{}
	if !dryRun {
		tr = &gtranslate.Client{Endpoint: settings.Endpoint, APIKey: settings.APIKey}
	}

	bars := progress.New(os.Stdout)
	p, err := openPipeline(ctx, settings, tr, bars)
	if err != nil {
		return err
	}
	defer p.Close()

	res, err := p.Translate(ctx, sentences, settings.Input)
	bars.Stop()
	if err != nil {
		return err
	}
	fmt.Printf("Run %s: %d sentences, %d encoded, %d not encodable\n", res.RunID, res.Sentences, res.Encoded, res.Unencodable)
	fmt.Printf("Main set: %d batches (%d reused, %d retries)\n", res.Main.Batches, res.Main.Reused, res.Main.Retries)
	if res.Companion.Batches > 0 {
		fmt.Printf("Companion set: %d batches (%d reused, %d retries)\n", res.Companion.Batches, res.Companion.Reused, res.Companion.Retries)
	}

	if !export {
		return nil
	}
	paths := settings.Paths()
	if err := os.MkdirAll(paths.Dir, 0o755); err != nil {
		return err
	}
	if err := translate.SaveJSON(paths.Results, res.Responses); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", paths.Results)
	if len(res.CompanionResponses) > 0 {
		path := companionPath(paths.Results)
		if err := translate.SaveJSON(path, res.CompanionResponses); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
	}
	return nil
}

func importResults(ctx context.Context, settings *config.Settings, sentences []*corpus.Sentence, mainPath, companionFile string) error {
	responses, err := translate.LoadJSON(mainPath)
	if err != nil {
		return err
	}
	var companion []translate.Response
	if companionFile != "" {
		if companion, err = translate.LoadJSON(companionFile); err != nil {
			return err
		}
	}

	p, err := openPipeline(ctx, settings, nil, nil)
	if err != nil {
		return err
	}
	defer p.Close()

	if err := p.Import(ctx, sentences, responses, companion); err != nil {
		return err
	}
	fmt.Printf("Imported %d translations from %s\n", len(responses), mainPath)
	return nil
}

func companionPath(results string) string {
	return strings.TrimSuffix(results, ".json") + "_companion.json"
}

func printRuns(ctx context.Context, dbPath string) error {
	st, err := sqlite.OpenSQLite(ctx, dbPath)
	if err != nil {
		return err
	}
	defer st.Close()
	runs, err := st.Runs(ctx)
	if err != nil {
		return err
	}
	for _, r := range runs {
		batches, err := st.BatchesForRun(ctx, r.ID)
		if err != nil {
			return err
		}
		fmt.Printf("%s  %s  %s->%s  %-11s  batch %3d  %3d new batches  %s\n",
			r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Source, r.Target, r.Strategy, r.BatchSize, len(batches), describeInput(r))
	}
	return nil
}

func describeInput(r store.Run) string {
	if r.Input == "" {
		return "-"
	}
	return r.Input
}
