package mulda

import (
	"bufio"
	"errors"
	"fmt"
	"os"

	"github.com/cognicore/mulda/pkg/mulda/config"
	"github.com/cognicore/mulda/pkg/mulda/corpus"
	"github.com/cognicore/mulda/pkg/mulda/realign"
	"github.com/cognicore/mulda/pkg/mulda/skip"
)

// Outputs owns the two corpus files of a reconcile run and the skip report.
type Outputs struct {
	paths     config.Paths
	origFile  *os.File
	transFile *os.File
	orig      *corpus.Writer
	trans     *corpus.Writer
}

// CreateOutputs creates the output directory and both corpus files.
func CreateOutputs(paths config.Paths) (*Outputs, error) {
	if err := os.MkdirAll(paths.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", paths.Dir, err)
	}
	origFile, err := os.Create(paths.Orig)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", paths.Orig, err)
	}
	transFile, err := os.Create(paths.Trans)
	if err != nil {
		origFile.Close()
		return nil, fmt.Errorf("create %s: %w", paths.Trans, err)
	}
	return &Outputs{
		paths:     paths,
		origFile:  origFile,
		transFile: transFile,
		orig:      corpus.NewWriter(origFile),
		trans:     corpus.NewWriter(transFile),
	}, nil
}

// WritePair appends one realigned sentence to both corpora.
func (o *Outputs) WritePair(p realign.Pair) error {
	if err := o.orig.WriteSentence(p.Orig); err != nil {
		return err
	}
	return o.trans.WriteSentence(p.Trans)
}

// Count returns the number of sentences written to each corpus.
func (o *Outputs) Count() int { return o.trans.Count() }

// WriteReport writes the skip report next to the corpora.
func (o *Outputs) WriteReport(r *skip.Report) error {
	f, err := os.Create(o.paths.Skipped)
	if err != nil {
		return fmt.Errorf("create %s: %w", o.paths.Skipped, err)
	}
	w := bufio.NewWriter(f)
	if _, err := r.WriteTo(w); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Close flushes and closes both corpus files.
func (o *Outputs) Close() error {
	return errors.Join(
		o.orig.Flush(),
		o.trans.Flush(),
		o.origFile.Close(),
		o.transFile.Close(),
	)
}
