package telemetry

import (
	"fmt"
	"strings"
	"sync"
)

// Report is a single call made on a Recorder.
type Report struct {
	Kind   string
	Id     string
	Params []any
}

// Recorder is an API that keeps every report in memory, it is meant to
// be used by tests that need to assert that something was (or wasn't) reported.
type Recorder struct {
	mutex   sync.Mutex
	reports []Report
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) push(kind, id string, params []any) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.reports = append(r.reports, Report{Kind: kind, Id: id, Params: params})
}

func (r *Recorder) ReportBroken(id string, params ...any) {
	r.push("broken", id, params)
}

func (r *Recorder) ReportWarning(id string, params ...any) {
	r.push("warning", id, params)
}

func (r *Recorder) ReportDebug(msg string, params ...any) {
	r.push("debug", msg, params)
}

func (r *Recorder) ReportCount(id string, count int64) {
	r.push("count", id, []any{count})
}

// Reports returns all reports of a given kind ("broken", "warning", "debug", "count"),
// an empty kind returns everything.
func (r *Recorder) Reports(kind string) []Report {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var out []Report
	for _, rep := range r.reports {
		if kind == "" || rep.Kind == kind {
			out = append(out, rep)
		}
	}
	return out
}

// Broken returns true if a broken report has an id containing the given substring.
func (r *Recorder) Broken(idSubstr string) bool {
	for _, rep := range r.Reports("broken") {
		if strings.Contains(rep.Id, idSubstr) {
			return true
		}
	}
	return false
}

// Warned returns true if a warning report has an id containing the given substring.
func (r *Recorder) Warned(idSubstr string) bool {
	for _, rep := range r.Reports("warning") {
		if strings.Contains(rep.Id, idSubstr) {
			return true
		}
	}
	return false
}

func (r Report) String() string {
	return fmt.Sprintf("%s %s %v", r.Kind, r.Id, r.Params)
}
