package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/toplist/internal/rank"
)

// Process exit codes. A ranking error (any rank.ErrorKind) is a failure of
// the operation; anything that stops the command before it reaches the
// ranking engine is a command error.
const (
	ExitSuccess      = 0
	ExitFailure      = 1
	ExitCommandError = 2
)

// ErrCodeCommand is the output code of errors that carry no rank.ErrorKind.
const ErrCodeCommand = "COMMAND"

// ExitError carries the process exit code out of a command. The error has
// already been reported to the user when it is returned.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// WrapExitError wraps err with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode returns the exit code main should use for err. Errors that
// were never reported through Fail exit with ExitFailure.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// Response is the envelope of every --format json output, one per run.
type Response struct {
	Status string         `json:"status"` // "ok" or "error"
	Data   any            `json:"data,omitempty"`
	Error  *ResponseError `json:"error,omitempty"`
}

// ResponseError describes a failed run.
type ResponseError struct {
	Code    string `json:"code"` // rank.ErrorKind or ErrCodeCommand
	Message string `json:"message"`
	User    string `json:"user,omitempty"`
}

// OutputFormatter writes command results as text or JSON.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // diagnostics; falls back to Writer
	Verbose   bool
}

// Success writes data. Text mode prints it with fmt.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(Response{Status: "ok", Data: data})
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error writes a failure. The affected user is only shown in text mode
// with --verbose.
func (f *OutputFormatter) Error(e ResponseError) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(Response{Status: "error", Error: &e})
	}
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", e.Code, e.Message)
	if f.Verbose && e.User != "" {
		fmt.Fprintf(f.Writer, "User: %s\n", e.User)
	}
	return nil
}

// VerboseLog writes a diagnostic line with --verbose. It goes to ErrWriter
// so JSON on Writer stays parseable.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// Fail reports err and returns the ExitError the command exits with.
// Ranking errors use their kind as code and exit with ExitFailure; an
// ExitError inside err keeps its own exit code.
func (f *OutputFormatter) Fail(message string, err error) error {
	body := ResponseError{Code: ErrCodeCommand, Message: message}
	exit := ExitCommandError

	var re *rank.Error
	if errors.As(err, &re) {
		body.Code, body.User = string(re.Kind), re.UserID
		exit = ExitFailure
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		exit = exitErr.Code
	}
	if err != nil {
		body.Message = fmt.Sprintf("%s: %v", message, err)
	}

	if outErr := f.Error(body); outErr != nil {
		return outErr
	}
	return WrapExitError(exit, message, err)
}
