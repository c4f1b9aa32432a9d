package corpus

import (
	"bufio"
	"io"
	"strings"
)

// ToMulDA rewrites a CoNLL corpus into the tab-separated layout used by the
// MulDA tooling: a -DOCSTART- header, id lines followed by a blank line and
// "<token>\t<tag>" word lines. The placeholder columns are dropped.
func ToMulDA(r io.Reader, w io.Writer) error {
	bw := bufio.NewWriter(w)
	if _, err := io.WriteString(bw, docStart+"\tO\n\n"); err != nil {
		return err
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		var err error
		switch {
		case strings.HasPrefix(strings.TrimSpace(line), HeaderPrefix):
			_, err = io.WriteString(bw, line+"\n\n")
		case strings.TrimSpace(line) == "":
			err = bw.WriteByte('\n')
		default:
			fields := strings.Fields(line)
			kept := fields[:0]
			for _, f := range fields {
				if f != "_" {
					kept = append(kept, f)
				}
			}
			_, err = io.WriteString(bw, strings.Join(kept, "\t")+"\n")
		}
		if err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return bw.Flush()
}

// FromMulDA converts the tab-separated layout back to "<token> _ _ <tag>" lines.
func FromMulDA(r io.Reader, w io.Writer) error {
	bw := bufio.NewWriter(w)
	scanner := bufio.NewScanner(r)
	afterHeader := false
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, docStart) {
			afterHeader = true
			continue
		}
		// ToMulDA follows the document and id lines with a blank line,
		// which Read would take as a sentence boundary.
		if afterHeader && strings.TrimSpace(line) == "" {
			afterHeader = false
			continue
		}
		afterHeader = strings.HasPrefix(strings.TrimSpace(line), HeaderPrefix)
		if !afterHeader {
			line = strings.ReplaceAll(line, "\t", " _ _ ")
		}
		if _, err := io.WriteString(bw, line+"\n"); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return bw.Flush()
}
