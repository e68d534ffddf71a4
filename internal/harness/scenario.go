package harness

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/feedsync/internal/config"
	"github.com/roach88/feedsync/internal/ir"
)

// Scenario defines a feed scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config overrides the default configuration. It is validated by the
	// same schema as feedsync config files.
	Config yaml.Node `yaml:"config,omitempty"`

	// Steps run in order against one controller.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and journal.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one input, server answer, clock advance or check.
// Exactly one field is set.
type Step struct {
	Reset    *ResetStep    `yaml:"reset,omitempty"`
	LoadMore *struct{}     `yaml:"load_more,omitempty"`
	Respond  *RespondStep  `yaml:"respond,omitempty"`
	Fail     *FailStep     `yaml:"fail,omitempty"`
	Advance  string        `yaml:"advance,omitempty"`
	Retry    *struct{}     `yaml:"retry,omitempty"`
	Expect   *ExpectClause `yaml:"expect,omitempty"`
}

// Step kinds.
const (
	StepReset    = "reset"
	StepLoadMore = "load_more"
	StepRespond  = "respond"
	StepFail     = "fail"
	StepAdvance  = "advance"
	StepRetry    = "retry"
	StepExpect   = "expect"
)

// Kind returns the kind of the step, or "" unless exactly one field is set.
func (s Step) Kind() string {
	var kinds []string
	if s.Reset != nil {
		kinds = append(kinds, StepReset)
	}
	if s.LoadMore != nil {
		kinds = append(kinds, StepLoadMore)
	}
	if s.Respond != nil {
		kinds = append(kinds, StepRespond)
	}
	if s.Fail != nil {
		kinds = append(kinds, StepFail)
	}
	if s.Advance != "" {
		kinds = append(kinds, StepAdvance)
	}
	if s.Retry != nil {
		kinds = append(kinds, StepRetry)
	}
	if s.Expect != nil {
		kinds = append(kinds, StepExpect)
	}
	if len(kinds) != 1 {
		return ""
	}
	return kinds[0]
}

// ResetStep is a filter change.
type ResetStep struct {
	// Filter lists key=value pairs.
	Filter []string `yaml:"filter"`

	// Seed items become the visible set. Seeded marks an empty seed.
	Seed   []ir.Item `yaml:"seed,omitempty"`
	Seeded bool      `yaml:"seeded,omitempty"`
}

// HasSeed reports whether the reset carries seed items.
func (r ResetStep) HasSeed() bool {
	return r.Seeded || len(r.Seed) > 0
}

// RespondStep is a successful page response.
type RespondStep struct {
	Page     int       `yaml:"page"`
	Items    []ir.Item `yaml:"items,omitempty"`
	Generate *Generate `yaml:"generate,omitempty"`
	HasMore  bool      `yaml:"has_more"`
}

// PageItems returns the literal items followed by the generated ones.
func (r RespondStep) PageItems() []ir.Item {
	items := append([]ir.Item(nil), r.Items...)
	if r.Generate != nil {
		items = append(items, r.Generate.Items()...)
	}
	return items
}

// Generate produces Count items with ids Prefix1..PrefixN.
type Generate struct {
	Count  int    `yaml:"count"`
	Prefix string `yaml:"prefix"`
	Date   string `yaml:"date,omitempty"`
	Time   string `yaml:"time,omitempty"`
	Venue  string `yaml:"venue,omitempty"`
}

// Items materializes the generated items.
func (g Generate) Items() []ir.Item {
	date := g.Date
	if date == "" {
		date = "2025-06-01"
	}
	out := make([]ir.Item, g.Count)
	for i := range out {
		out[i] = ir.Item{
			ID:      ir.ItemID(g.Prefix + strconv.Itoa(i+1)),
			Date:    date,
			Time:    g.Time,
			VenueID: g.Venue,
		}
	}
	return out
}

// FailStep is a failed fetch: an HTTP status, or a transport failure when
// Status is zero.
type FailStep struct {
	Page      int    `yaml:"page"`
	Status    int    `yaml:"status,omitempty"`
	Transport string `yaml:"transport,omitempty"`
}

// ExpectClause checks the controller between steps. Unset fields are not
// checked.
type ExpectClause struct {
	Generation *int64 `yaml:"generation,omitempty"`
	Page       *int   `yaml:"page,omitempty"`
	Loading    *bool  `yaml:"loading,omitempty"`
	HasMore    *bool  `yaml:"has_more,omitempty"`
	RetryCount *int   `yaml:"retry_count,omitempty"`
	Items      *int   `yaml:"items,omitempty"`
	CapReached *bool  `yaml:"cap_reached,omitempty"`

	// Error is the surfaced error kind; "" expects no error.
	Error *string `yaml:"error,omitempty"`

	// IDs are the visible item ids in first-seen order.
	IDs []string `yaml:"ids,omitempty"`

	// Nodes are the display node keys in display order.
	Nodes []string `yaml:"nodes,omitempty"`

	Timers  *int `yaml:"timers,omitempty"`
	Fetches *int `yaml:"fetches,omitempty"`
}

// Assertion validates the trace or the journal.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": an event with Event name and Args appears
	// - "trace_order": Events first appear in order
	// - "trace_count": Event (with Args) appears exactly Count times
	// - "final_state": query Table and verify Expect
	Type string `yaml:"type"`

	// Event is the event name (used by trace_contains, trace_count).
	Event string `yaml:"event,omitempty"`

	// Args are the expected event args. Subset match.
	Args map[string]interface{} `yaml:"args,omitempty"`

	// Table is the journal table name (used by final_state).
	Table string `yaml:"table,omitempty"`

	// Where specifies query filters (used by final_state).
	// All fields must match exactly.
	Where map[string]interface{} `yaml:"where,omitempty"`

	// Expect contains expected column values (used by final_state).
	// Subset match.
	Expect map[string]interface{} `yaml:"expect,omitempty"`

	// Count is the expected number of occurrences (used by trace_count).
	Count int `yaml:"count,omitempty"`

	// Events is the expected event order (used by trace_order).
	Events []string `yaml:"events,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Reject unknown fields (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// EngineConfig returns the scenario's configuration with defaults applied.
func (s *Scenario) EngineConfig() (config.Config, error) {
	if s.Config.Kind == 0 {
		return config.Default(), nil
	}
	data, err := yaml.Marshal(&s.Config)
	if err != nil {
		return config.Config{}, fmt.Errorf("encode config: %w", err)
	}
	return config.ParseYAML(s.Name+".config", data)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if _, err := s.EngineConfig(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(i int, step Step) error {
	switch step.Kind() {
	case "":
		return fmt.Errorf("steps[%d]: exactly one of reset, load_more, respond, fail, advance, retry, expect is required", i)
	case StepReset:
		if _, err := ir.ParseFilter(step.Reset.Filter); err != nil {
			return fmt.Errorf("steps[%d].reset: %w", i, err)
		}
	case StepRespond:
		if step.Respond.Page < 1 {
			return fmt.Errorf("steps[%d].respond: page must be >= 1", i)
		}
		if g := step.Respond.Generate; g != nil && g.Count < 0 {
			return fmt.Errorf("steps[%d].respond.generate: count must be non-negative", i)
		}
	case StepFail:
		if step.Fail.Page < 1 {
			return fmt.Errorf("steps[%d].fail: page must be >= 1", i)
		}
		if step.Fail.Status != 0 && (step.Fail.Status < 100 || step.Fail.Status > 599) {
			return fmt.Errorf("steps[%d].fail: invalid status %d", i, step.Fail.Status)
		}
	case StepAdvance:
		d, err := time.ParseDuration(step.Advance)
		if err != nil {
			return fmt.Errorf("steps[%d].advance: %w", i, err)
		}
		if d < 0 {
			return fmt.Errorf("steps[%d].advance: duration must be non-negative", i)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
