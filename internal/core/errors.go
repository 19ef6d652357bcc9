// Package core holds the shared vocabulary of the standardization pipeline:
// the stage identifiers and the typed errors every layer reports through.
// Errors carry the stage and the offending value so they can be shown to an
// operator verbatim; discrimination happens via errors.As.
package core

import "fmt"

// Stage identifies where in the pipeline an error occurred.
type Stage string

const (
	StageStart       Stage = "start"
	StageClassify    Stage = "classify"
	StageStandardize Stage = "standardize"
	StagePersist     Stage = "persist"
)

// ValidationError reports input or data that fails a local invariant,
// such as an empty description or an example whose category is not in
// the loaded taxonomy.
type ValidationError struct {
	Stage  Stage
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("validation failed at %s: %s %s", e.Stage, e.Field, e.Reason)
	}
	return fmt.Sprintf("validation failed at %s: %s %q %s", e.Stage, e.Field, e.Value, e.Reason)
}

// DataFormatError reports a missing or corrupt persisted file (taxonomy or
// knowledge base).
type DataFormatError struct {
	Path   string
	Reason string
	Err    error
}

func (e *DataFormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data format error in %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("data format error in %s: %s", e.Path, e.Reason)
}

func (e *DataFormatError) Unwrap() error { return e.Err }

// BackendUnavailableError reports a network, auth, or timeout failure while
// talking to the LLM backend. The underlying transport error is preserved.
type BackendUnavailableError struct {
	Stage Stage
	Err   error
}

func (e *BackendUnavailableError) Error() string {
	return fmt.Sprintf("backend unavailable at %s: %v", e.Stage, e.Err)
}

func (e *BackendUnavailableError) Unwrap() error { return e.Err }

// MalformedResponseError reports a model reply that could not be reduced to
// the single token the stage expects. Reply holds the offending text,
// truncated for display.
type MalformedResponseError struct {
	Stage  Stage
	Reply  string
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed model response at %s: %s (reply: %q)", e.Stage, e.Reason, Truncate(e.Reply, 120))
}

// Truncate shortens s for log and error messages.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
