package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/toplist/internal/rank"
)

func decodeResponse(t *testing.T, buf *bytes.Buffer) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp), buf.String())
	return resp
}

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Success(map[string]int{"ranked": 3}))

	resp := decodeResponse(t, buf)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, map[string]any{"ranked": float64(3)}, resp.Data)
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	err := formatter.Error(ResponseError{Code: "NO_ACTIVE_SESSION", Message: "no session", User: "alice"})
	require.NoError(t, err)

	resp := decodeResponse(t, buf)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ResponseError{Code: "NO_ACTIVE_SESSION", Message: "no session", User: "alice"}, *resp.Error)
	assert.NotContains(t, buf.String(), `"data"`)
}

func TestOutputFormatter_JSONErrorOmitsUnknownUser(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Error(ResponseError{Code: ErrCodeCommand, Message: "load catalog"}))
	assert.NotContains(t, buf.String(), `"user"`)
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Success("Imported 3 game(s)"))
	assert.Equal(t, "Imported 3 game(s)\n", buf.String())
}

func TestOutputFormatter_TextError(t *testing.T) {
	tests := []struct {
		name     string
		verbose  bool
		wantUser bool
	}{
		{"quiet", false, false},
		{"verbose shows user", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "text", Writer: buf, Verbose: tt.verbose}

			err := formatter.Error(ResponseError{Code: "INVALID_INPUT", Message: "unknown choice", User: "alice"})
			require.NoError(t, err)
			assert.Contains(t, buf.String(), "Error [INVALID_INPUT]: unknown choice")
			if tt.wantUser {
				assert.Contains(t, buf.String(), "User: alice")
			} else {
				assert.NotContains(t, buf.String(), "alice")
			}
		})
	}
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
			diag := &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:    "json",
				Writer:    out,
				ErrWriter: diag,
				Verbose:   tt.verbose,
			}

			formatter.VerboseLog("Loaded %s", "catalog.yaml")

			assert.Empty(t, out.String(), "diagnostics never reach the JSON writer")
			if tt.wantLog {
				assert.Equal(t, "Loaded catalog.yaml\n", diag.String())
			} else {
				assert.Empty(t, diag.String())
			}
		})
	}
}

func TestOutputFormatter_VerboseLogFallsBackToWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf, Verbose: true}

	formatter.VerboseLog("Parsed %d game(s)", 3)
	assert.Equal(t, "Parsed 3 game(s)\n", buf.String())
}

func TestOutputFormatter_FailRankError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	err := formatter.Fail("answer", rank.WrapError(rank.KindNoActiveSession, "alice", "no session", nil))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, rank.IsKind(err, rank.KindNoActiveSession), "cause stays reachable")

	resp := decodeResponse(t, buf)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NO_ACTIVE_SESSION", resp.Error.Code)
	assert.Equal(t, "alice", resp.Error.User)
	assert.Contains(t, resp.Error.Message, "answer")
}

func TestOutputFormatter_FailCommandError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	err := formatter.Fail("open database", errors.New("disk on fire"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "Error [COMMAND]: open database: disk on fire")
}

func TestOutputFormatter_FailKeepsExitCode(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	inner := WrapExitError(ExitSuccess, "interrupted", nil)
	err := formatter.Fail("serve", inner)
	assert.Equal(t, ExitSuccess, GetExitCode(err))
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(WrapExitError(ExitCommandError, "bad", nil)))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitFailure, GetExitCode(WrapExitError(ExitFailure, "wrapped", errors.New("x"))))
}
