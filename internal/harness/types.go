package harness

import "github.com/roach88/feedsync/internal/engine"

// Trace event types.
const (
	EventInput  = "input"
	EventFetch  = "fetch"
	EventStatus = "status"
)

// TraceEvent is one entry of a scenario trace.
type TraceEvent struct {
	Type string         `json:"type"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
	Seq  int64          `json:"seq"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true if every expect step and assertion held.
	Pass bool `json:"pass"`

	// Trace holds inputs, fetch calls and status snapshots in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Final is the controller view after the last step.
	Final engine.View `json:"final"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddEvent appends an event to the trace.
func (r *Result) AddEvent(typ, name string, args map[string]any, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{
		Type: typ,
		Name: name,
		Args: args,
		Seq:  seq,
	})
}
