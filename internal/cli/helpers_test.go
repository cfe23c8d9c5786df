package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const lockCUE = `property: Lock: {
	parameters: ["l"]
	events: {
		acquire: ["l"]
		release: ["l"]
	}
	initial: "start"
	states: {
		start: on: {acquire: "held"}
		held: on: {release: "start", acquire: "twice"}
		twice: {
			accepting: true
			on: {release: "held"}
		}
	}
}
`

const iteratorCUE = `property: UnsafeIterator: {
	parameters: ["c", "i"]
	events: {
		createColl: ["c"]
		createIter: ["c", "i"]
		useIter: ["i"]
		updateColl: ["c"]
	}
	initial: "start"
	states: {
		start: on: {createColl: "s1"}
		s1: on: {updateColl: "s1", createIter: "s2"}
		s2: on: {useIter: "s2", updateColl: "s3"}
		s3: on: {updateColl: "s3", useIter: "error"}
		error: accepting: true
	}
}
`

// lockTrace double-acquires l1 once, then releases it.
const lockTrace = `property: Lock
steps:
  - event: acquire
    objects: { l: l1 }
  - event: acquire
    objects: { l: l1 }
    aux: worker-1
  - release: [l1]
    cleanup: true
  - event: acquire
    objects: { l: l2 }
`

// writeFile writes content to dir/name, creating parent directories.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// execute runs cmd with args and returns what it wrote to stdout.
func execute(cmd *cobra.Command, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// jsonResponse is CLIResponse with the payload left undecoded.
type jsonResponse struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *CLIError       `json:"error"`
	RunID  string          `json:"run_id"`
}

func decodeResponse(t *testing.T, out string, data any) jsonResponse {
	t.Helper()
	var resp jsonResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	if data != nil && len(resp.Data) > 0 {
		require.NoError(t, json.Unmarshal(resp.Data, data))
	}
	return resp
}
