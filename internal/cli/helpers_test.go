package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// feedServer serves lastPage pages of two items each. Every request to
// page failPage answers failStatus instead.
type feedServer struct {
	*httptest.Server
	calls atomic.Int32
}

func newFeedServer(t *testing.T, lastPage, failPage, failStatus int) *feedServer {
	t.Helper()
	fs := &feedServer{}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.calls.Add(1)
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page == failPage {
			http.Error(w, `{"error":"unavailable"}`, failStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"data":[
			{"id": %d, "title": "Show %d", "date": "2025-06-0%d", "time": "19:00", "venue_id": 7},
			{"id": %d, "title": "Talk %d", "date": "2025-06-0%d", "time": "09:30"}
		],"meta":{"has_more": %t}}`,
			page*10+1, page, page, page*10+2, page, page, page < lastPage)
	}))
	t.Cleanup(fs.Close)
	return fs
}

// writeFile writes content under a fresh temp dir and returns its path.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// fastConfig keeps wall-clock waits short in command tests.
func fastConfig(t *testing.T, extra string) string {
	t.Helper()
	return writeFile(t, "feedsync.yaml", `
retry:
  base_delay: 1ms
  max_retries: 0
sensor:
  debounce: 1ms
`+extra)
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// compactJSON undoes the formatter's indentation on an embedded raw message.
func compactJSON(t *testing.T, raw []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.Compact(&buf, raw))
	return buf.Bytes()
}
