package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Success(map[string]int{"matches": 2}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, map[string]any{"matches": float64(2)}, resp.Data)
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Error(ErrCodeNotFound, "properties path not found", map[string]string{"path": "x.cue"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
	assert.Equal(t, "properties path not found", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_Text(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Success("1 match"))
	require.NoError(t, formatter.Error(ErrCodeGeneric, "boom", "more"))
	assert.Equal(t, "1 match\nError [E001]: boom\n", buf.String())

	buf.Reset()
	formatter.Verbose = true
	require.NoError(t, formatter.Error(ErrCodeGeneric, "boom", "more"))
	assert.Equal(t, "Error [E001]: boom\nDetails: more\n", buf.String())
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		errW    bool
	}{
		{"quiet", false, true},
		{"verbose_to_stderr", true, true},
		{"verbose_without_stderr", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "json", Writer: out, Verbose: tt.verbose}
			if tt.errW {
				formatter.ErrWriter = errOut
			}

			formatter.VerboseLog("Compiling property: %s", "Lock")

			switch {
			case !tt.verbose:
				assert.Empty(t, out.String())
				assert.Empty(t, errOut.String())
			case tt.errW:
				assert.Empty(t, out.String())
				assert.Equal(t, "Compiling property: Lock\n", errOut.String())
			default:
				assert.Equal(t, "Compiling property: Lock\n", out.String())
			}
		})
	}
}

func TestNewFormatter(t *testing.T) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	formatter := newFormatter(&RootOptions{Format: "json", Verbose: true}, cmd)
	assert.Equal(t, "json", formatter.Format)
	assert.True(t, formatter.Verbose)
	assert.Same(t, out, formatter.Writer)
	assert.Same(t, errOut, formatter.GetErrWriter())
}

func TestExitError(t *testing.T) {
	cause := errors.New("disk full")
	err := WrapExitError(ExitFailure, "failed to write match log", cause)

	assert.Equal(t, "failed to write match log: disk full", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	assert.Equal(t, "run not found", NewExitError(ExitCommandError, "run not found").Error())
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "x")))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
}

func TestCLIResponse_RunID(t *testing.T) {
	data, err := json.Marshal(CLIResponse{Status: "ok", RunID: "run-1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok","run_id":"run-1"}`, string(data))

	data, err = json.Marshal(CLIResponse{Status: "ok"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok"}`, string(data))
}

func TestOutputFormatter_Failure(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Failure("E_TEST_FAILED", "1 scenario(s) failed", TestResult{Failed: 1, Total: 1}))

	var result TestResult
	resp := decodeResponse(t, buf.String(), &result)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
	assert.Equal(t, 1, result.Failed)
}
