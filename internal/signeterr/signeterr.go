// Package signeterr defines the typed error taxonomy every engine-level
// operation returns through, so callers at any layer (HTTP handlers,
// workers, the CLI) can branch on Code instead of string-matching
// driver errors.
package signeterr

import "fmt"

// Code is one of the fixed taxonomy values from the error handling design.
type Code string

const (
	CodeNotFound              Code = "not_found"
	CodeVersionConflict       Code = "version_conflict"
	CodeDeleted               Code = "deleted"
	CodePinnedRequiresForce   Code = "pinned_requires_force"
	CodeForbidden             Code = "forbidden"
	CodeTimeout               Code = "timeout"
	CodeInvalidPayload        Code = "invalid_payload"
	CodeDependencyUnavailable Code = "dependency_unavailable"
	CodeInternal              Code = "internal"
)

// Error is the single vehicle every exported engine function returns
// non-nil errors through.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an *Error with no wrapped cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap builds an *Error carrying cause as its wrapped error.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// NotFound, VersionConflict, ... are small constructors for the common
// cases, matching the teacher's convention of one helper per sentinel.
func NotFound(message string) *Error            { return New(CodeNotFound, message) }
func VersionConflict(message string) *Error     { return New(CodeVersionConflict, message) }
func Deleted(message string) *Error             { return New(CodeDeleted, message) }
func PinnedRequiresForce(message string) *Error { return New(CodePinnedRequiresForce, message) }
func Forbidden(message string) *Error           { return New(CodeForbidden, message) }
func Timeout(message string) *Error             { return New(CodeTimeout, message) }
func InvalidPayload(message string) *Error      { return New(CodeInvalidPayload, message) }
func DependencyUnavailable(message string) *Error {
	return New(CodeDependencyUnavailable, message)
}
func Internal(message string, cause error) *Error { return Wrap(CodeInternal, message, cause) }

// As is a thin wrapper over errors.As for callers that don't want to
// import errors just to branch on Code.
func As(err error) (*Error, bool) {
	se, ok := err.(*Error)
	if ok {
		return se, true
	}
	type unwrapper interface{ Unwrap() error }
	for {
		u, ok := err.(unwrapper)
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
		if err == nil {
			return nil, false
		}
		if se, ok := err.(*Error); ok {
			return se, true
		}
	}
}
