package harness

import (
	"bytes"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/feedsync/internal/group"
	"github.com/roach88/feedsync/internal/ir"
)

// RenderTrace serializes a result for golden comparison: a header line,
// one canonical JSON object per trace event, then the final display tree.
func RenderTrace(scenarioName string, result *Result) ([]byte, error) {
	var buf bytes.Buffer

	header, err := ir.MarshalCanonical(map[string]any{"scenario": scenarioName})
	if err != nil {
		return nil, err
	}
	buf.Write(header)
	buf.WriteByte('\n')

	for _, event := range result.Trace {
		line, err := ir.MarshalCanonical(eventMap(event))
		if err != nil {
			return nil, err
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	if tree := group.Render(result.Final.Buckets); tree != "" {
		buf.WriteString("--- view\n")
		buf.WriteString(tree)
	}
	return buf.Bytes(), nil
}

// eventMap converts a TraceEvent for canonical JSON serialization.
func eventMap(event TraceEvent) map[string]any {
	m := map[string]any{
		"type": event.Type,
		"name": event.Name,
		"seq":  event.Seq,
	}
	if len(event.Args) > 0 {
		m["args"] = map[string]any(event.Args)
	}
	return m
}

// RunWithGolden executes a scenario and compares the trace against a golden
// file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	out, err := RenderTrace(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, out)
	return nil
}
