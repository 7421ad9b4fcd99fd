package console

import (
	"fmt"
	"strings"
	"sync"
)

// Event is one recorded report.
type Event struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

// Recorder is a Reporter that keeps events in memory instead of printing.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) add(kind, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Kind: kind, Text: text})
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Kinds returns the recorded event kinds in order.
func (r *Recorder) Kinds() []string {
	events := r.Events()
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Kind
	}
	return out
}

// Has reports whether an event of kind was recorded.
func (r *Recorder) Has(kind string) bool {
	for _, e := range r.Events() {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

// Text returns the text of the first event of kind.
func (r *Recorder) Text(kind string) string {
	for _, e := range r.Events() {
		if e.Kind == kind {
			return e.Text
		}
	}
	return ""
}

// String renders the events one per line.
func (r *Recorder) String() string {
	var sb strings.Builder
	for _, e := range r.Events() {
		fmt.Fprintf(&sb, "%s: %s\n", e.Kind, e.Text)
	}
	return sb.String()
}

func (r *Recorder) Init(version string) { r.add("init", version) }
func (r *Recorder) Loaded(notes, blocks int) { r.add("loaded", fmt.Sprintf("%d notes, %d blocks", notes, blocks)) }
func (r *Recorder) Processing(path string) { r.add("processing", path) }
func (r *Recorder) FindingConnections(path string) { r.add("finding", path) }
func (r *Recorder) ConnectionsFound() { r.add("connections", "") }
func (r *Recorder) Connection(name string, score float64) {
	r.add("connection", fmt.Sprintf("%s (%.2f)", name, score))
}
func (r *Recorder) ConnectionSkipped(name string) { r.add("skipped", name) }
func (r *Recorder) Generating(provider string) { r.add("generating", provider) }
func (r *Recorder) ServiceError(text string) { r.add("service_error", text) }
func (r *Recorder) InvalidData(text string) { r.add("invalid_data", text) }
func (r *Recorder) Success(path string) { r.add("success", path) }
func (r *Recorder) SaveError(path string, err error) {
	r.add("save_error", path+": "+err.Error())
}
func (r *Recorder) MissingLinks(links []string) { r.add("missing_links", strings.Join(links, ", ")) }
func (r *Recorder) Error(msg string) { r.add("error", msg) }
func (r *Recorder) Warning(msg string) { r.add("warning", msg) }

var _ Reporter = (*Recorder)(nil)
