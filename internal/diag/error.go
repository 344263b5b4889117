package diag

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels for errors.Is. Only the Code is compared.
var (
	ErrMissingDirectory        = &Error{Code: MissingDirectory}
	ErrMissingRequiredFragment = &Error{Code: MissingRequiredFragment}
	ErrUnresolvedChainMember   = &Error{Code: UnresolvedChainMember}
	ErrAmbiguousChainMember    = &Error{Code: AmbiguousChainMember}
	ErrInvalidManifest         = &Error{Code: InvalidManifest}
	ErrCollaboratorTermination = &Error{Code: CollaboratorTermination}
	ErrCollaboratorUnavailable = &Error{Code: CollaboratorUnavailable}
	ErrUnsupportedPlatform     = &Error{Code: UnsupportedPlatform}
)

// Error is a fatal pipeline failure tied to a Code.
type Error struct {
	Code    Code
	Message string
	// Path is the file or directory involved, if any.
	Path string
	// Matches lists the candidates found when a lookup was ambiguous.
	Matches []string
	Err     error
}

// Errorf builds an *Error with a formatted message.
func Errorf(code Code, path string, format string, args ...any) *Error {
	return &Error{Code: code, Path: path, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error around an underlying cause.
func Wrap(code Code, path string, err error) *Error {
	return &Error{Code: code, Path: path, Message: err.Error(), Err: err}
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Code.ID())
	b.WriteString(": ")
	if e.Message != "" {
		b.WriteString(e.Message)
	} else {
		b.WriteString(e.Code.Title())
	}
	if len(e.Matches) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(e.Matches, ", "))
		b.WriteString("]")
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// CodeOf returns the Code of the first *Error in err's chain.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return UnknownCode
}

// IsFatal reports whether err should abort the pipeline. Collaborator
// termination is recovered at the boundary and is never fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	switch CodeOf(err) {
	case CollaboratorTermination, CollaboratorUnavailable:
		return false
	}
	return true
}
