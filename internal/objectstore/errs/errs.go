// Package errs defines the ObjectStore's error kinds as errors.Is-compatible
// sentinels, following the "fmt.Errorf(...: %w, err)" wrapping convention
// already used throughout this codebase (cmd/agently/run.go,
// internal/mcp/manager.go) rather than a bespoke error hierarchy.
package errs

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Sentinel error kinds. Wrap with fmt.Errorf("...: %w", ErrX) to attach
// context while remaining errors.Is(err, ErrX)-detectable.
var (
	// ErrProtocol: malformed inbound payload, `set` not preceded by `get`,
	// unknown message type.
	ErrProtocol = errors.New("objectstore: protocol error")
	// ErrUnknownID: a request references an id not in the owner's Local
	// Table (released, never seen, or wrong namespace).
	ErrUnknownID = errors.New("objectstore: unknown id")
	// ErrClosed: any operation attempted after Close.
	ErrClosed = errors.New("objectstore: store closed")
	// ErrUnbound: returned by Ref.Prototype on an unbound Ref. Ref.Has and
	// Ref.OwnKeys do not return it; on an unbound Ref they report false and
	// nil.
	ErrUnbound = errors.New("objectstore: unbound proxy has no shape; await it first")
)

// Protocolf wraps ErrProtocol with context, e.g. a description of which
// well-formedness rule was violated.
func Protocolf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrProtocol)...)
}

// UnknownIDf wraps ErrUnknownID with the offending id for diagnostics.
func UnknownIDf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrUnknownID)...)
}

// WithStack captures a stack trace at the call site so a caller-thrown error
// can later be rendered back to a remote requester with a full
// "Remote Stacktrace:" trace. A thin wrapper over github.com/pkg/errors so
// callers elsewhere in this package don't need to import it directly.
func WithStack(err error) error {
	if err == nil {
		return nil
	}
	return pkgerrors.WithStack(err)
}

// RemoteStacktrace renders err's stack (if it carries one via pkg/errors)
// prefixed with "Remote Stacktrace:" for display to the requester. Errors
// without a stack (e.g. reconstructed from a peer that didn't send one)
// render the same prefix followed by just the message.
func RemoteStacktrace(err error) string {
	if err == nil {
		return ""
	}
	type stackTracer interface {
		StackTrace() pkgerrors.StackTrace
	}
	if st, ok := err.(stackTracer); ok {
		return fmt.Sprintf("Remote Stacktrace:\n%+v", st.StackTrace())
	}
	return "Remote Stacktrace:\n\tat " + err.Error()
}

// RemoteError is the reconstructed local error the store returns for a
// remote error description, under either `remoteError` mode. It preserves
// message/name/stack and keeps the decoded remote value (by reference,
// typically a *ref.Ref) in Cause; errors.Unwrap reaches Cause only when it
// is itself an error (see Unwrap).
type RemoteError struct {
	Message string
	Name    string
	Stack   string
	Cause   interface{}
}

func (e *RemoteError) Error() string {
	if e.Name != "" {
		return e.Name + ": " + e.Message
	}
	return e.Message
}

// Unwrap exposes Cause through errors.Unwrap when it is itself an error,
// enabling errors.As to recover a remote-originated Go error; when Cause is
// a non-error reference (e.g. a remote Ref), callers read e.Cause directly.
func (e *RemoteError) Unwrap() error {
	if err, ok := e.Cause.(error); ok {
		return err
	}
	return nil
}
