package archive

import (
	"fmt"
	"io"
	"path"
	"slices"
	"strings"
	"sync"
	"time"

	"fhrs-archive/internal/fhrs"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type Outcome string

const (
	OutcomeWritten Outcome = "written"
	// OutcomeRaw means the document could not be canonicalized and was stored as fetched.
	OutcomeRaw     Outcome = "raw"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// Entry is the outcome of archiving one file.
type Entry struct {
	// Authority is the LocalAuthorityIdCode the document belongs to, empty for
	// reference datasets.
	Authority string
	Dir       string
	Name      string
	Url       string
	Format    fhrs.Format
	Language  fhrs.Language
	Outcome   Outcome
	Err       error
	Duration  time.Duration
}

func (e Entry) Path() string {
	return path.Join(e.Dir, e.Name)
}

type Report struct {
	Entries []Entry
}

func (r Report) Count(outcome Outcome) int {
	n := 0
	for _, e := range r.Entries {
		if e.Outcome == outcome {
			n++
		}
	}
	return n
}

// Failed lists the entries that did not end up on disk.
func (r Report) Failed() []Entry {
	var out []Entry
	for _, e := range r.Entries {
		if e.Outcome == OutcomeFailed || e.Outcome == OutcomeSkipped {
			out = append(out, e)
		}
	}
	return out
}

// Render writes the report as a table sorted by path, followed by a totals footer.
func (r Report) Render(w io.Writer) {
	entries := slices.Clone(r.Entries)
	slices.SortStableFunc(entries, func(a, b Entry) int {
		return strings.Compare(a.Path(), b.Path())
	})

	t := table.NewWriter()
	t.SetOutputMirror(w)
	style := table.StyleLight
	style.Format.Footer = text.FormatDefault
	t.SetStyle(style)
	t.AppendHeader(table.Row{"Path", "Authority", "Outcome", "Took", "Error"})
	for _, e := range entries {
		errText := ""
		if e.Err != nil {
			errText = text.Trim(e.Err.Error(), 80)
		}
		t.AppendRow(table.Row{e.Path(), e.Authority, e.Outcome, e.Duration.Round(time.Millisecond), errText})
	}
	t.AppendFooter(table.Row{
		"",
		"",
		fmt.Sprintf(
			"%d written, %d raw, %d failed, %d skipped",
			r.Count(OutcomeWritten),
			r.Count(OutcomeRaw),
			r.Count(OutcomeFailed),
			r.Count(OutcomeSkipped),
		),
		"",
		"",
	})
	t.Render()
}

type reportBuilder struct {
	mu      sync.Mutex
	entries []Entry
}

func (b *reportBuilder) add(e Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, e)
}

func (b *reportBuilder) report() Report {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Report{Entries: slices.Clone(b.entries)}
}
