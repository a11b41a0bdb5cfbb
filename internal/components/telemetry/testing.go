package telemetry

import (
	"fmt"
	"strings"
	"sync"
)

// Report is a single call recorded by TestingAPI.
type Report struct {
	Kind   string
	ID     string
	Params []any
}

// TestingAPI records every report so tests can assert on what a component logged.
// It is safe for concurrent use.
type TestingAPI struct {
	mu      sync.Mutex
	reports []Report
}

func NewTestingAPI() *TestingAPI {
	return &TestingAPI{}
}

func (t *TestingAPI) record(kind, id string, params []any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reports = append(t.reports, Report{Kind: kind, ID: id, Params: params})
}

func (t *TestingAPI) ReportBroken(id string, params ...any) {
	t.record("broken", id, params)
}

func (t *TestingAPI) ReportWarning(id string, params ...any) {
	t.record("warning", id, params)
}

func (t *TestingAPI) ReportDebug(msg string, params ...any) {
	t.record("debug", msg, params)
}

func (t *TestingAPI) ReportCount(id string, count int64) {
	t.record("count", id, []any{count})
}

// Reports returns a copy of the reports of the given kind ("broken", "warning", "debug",
// "count"), or all reports when kind is empty.
func (t *TestingAPI) Reports(kind string) []Report {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []Report
	for _, r := range t.reports {
		if kind == "" || r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

// HasReport reports whether a report of the given kind exists whose id ends with idSuffix.
func (t *TestingAPI) HasReport(kind, idSuffix string) bool {
	for _, r := range t.Reports(kind) {
		if strings.HasSuffix(r.ID, idSuffix) {
			return true
		}
	}
	return false
}

func (r Report) String() string {
	return fmt.Sprintf("%s %s %v", r.Kind, r.ID, r.Params)
}
