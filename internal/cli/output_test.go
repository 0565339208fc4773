package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rowkit/internal/record"
	"github.com/roach88/rowkit/internal/store"
)

func TestOutputFormatter_JSONSuccessCarriesTraceID(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "json",
		Writer:  buf,
		TraceID: "trace-1",
	}

	err := formatter.Success(map[string]string{"result": "success"})
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "trace-1", resp.TraceID)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "json",
		Writer:  buf,
		TraceID: "trace-2",
	}

	err := formatter.Error(ErrCodeExecution, "statement failed", "no such table: Nope")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E302", resp.Error.Code)
	assert.Equal(t, "statement failed", resp.Error.Message)
	assert.Equal(t, "no such table: Nope", resp.Error.Details)
	assert.Equal(t, "trace-2", resp.TraceID)
}

func TestOutputFormatter_TextSuccessUsesStringer(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	rec := record.New(record.F("ID", record.Int(1)), record.F("Name", record.Text("Widget")))
	require.NoError(t, formatter.Success(singleResult{rec}))
	assert.Equal(t, "ID=1 Name=Widget\n", buf.String())
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	err := formatter.Error("E001", "operation failed", "boom")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [E001]: operation failed")
	assert.NotContains(t, buf.String(), "Details:")
}

func TestOutputFormatter_TextErrorVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf, Verbose: true}

	err := formatter.Error("E001", "operation failed", "boom")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Details: boom")
}

func TestOutputFormatter_Fail(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}
	cause := errors.New("disk full")

	err := formatter.Fail(ExitFailure, ErrCodeCompaction, "compaction failed", cause)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.ErrorIs(t, err, cause)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "E305", resp.Error.Code)
	assert.Equal(t, "disk full", resp.Error.Details)
}

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestOutputFormatter_FailReportsWriteError(t *testing.T) {
	formatter := &OutputFormatter{Format: "json", Writer: brokenWriter{}}
	cause := errors.New("disk full")

	err := formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed", cause)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "broken pipe")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &bytes.Buffer{}
			errOut := &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:    "json",
				Writer:    out,
				ErrWriter: errOut,
				Verbose:   tt.verbose,
			}

			formatter.VerboseLog("Loaded %d item(s)", 3)

			assert.Empty(t, out.String())
			if tt.wantLog {
				assert.Contains(t, errOut.String(), "Loaded 3 item(s)")
			} else {
				assert.Empty(t, errOut.String())
			}
		})
	}
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad flag")))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
}

func TestResultText(t *testing.T) {
	id := int64(9)
	rec := record.New(record.F("A", record.Int(1)), record.F("B", record.Null{}))

	assert.Equal(t, "(no rows)", singleResult{}.String())
	assert.Equal(t, "(no rows)", manyResult(nil).String())
	assert.Equal(t, "A=1 B=NULL\nA=1 B=NULL", manyResult{rec, rec}.String())
	assert.Equal(t, "NULL", scalarResult{}.String())
	assert.Equal(t, "42", scalarResult{record.Int(42)}.String())
	assert.Equal(t, "rows affected: 1", outcomeResult{RowsAffected: 1}.String())
	assert.Equal(t, "rows affected: 1\nidentity: 9", outcomeResult{RowsAffected: 1, Identity: &id}.String())

	batch := batchResult{
		2: {Kind: store.QueryScalar, Value: record.Int(3)},
		1: {Kind: store.QueryNonQuery, Outcome: store.NonQueryOutcome{RowsAffected: 2}},
	}
	assert.Equal(t, "[1] nonquery\nrows affected: 2\n[2] scalar\n3", batch.String())
}
