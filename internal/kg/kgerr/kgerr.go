package kgerr

import (
	"errors"
	"fmt"
)

// Kind labels a failure with the pipeline stage that produced it.
type Kind string

const (
	// UnterminatedLiteral means a string, block comment, or list literal was
	// still open at end of input. Statement boundaries past the fault cannot
	// be trusted, so this aborts the whole batch.
	UnterminatedLiteral Kind = "unterminated_literal"
	// NamespaceConflict means a statement carried an explicit graph tag that
	// disagrees with the namespace of the ingest call.
	NamespaceConflict Kind = "namespace_conflict"
	// UnresolvedVariable means an edge referenced a variable no earlier node
	// pattern declared.
	UnresolvedVariable Kind = "unresolved_variable"
	// PostConditionFailed means a follow-up lookup found nothing for an
	// identity the statement should have written.
	PostConditionFailed Kind = "post_condition_failed"
	// StoreError wraps any failure reported by the graph store client.
	StoreError Kind = "store_error"
)

type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Err.Error())
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

func Wrap(kind Kind, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// KindOf reports the Kind carried by err, or "" when err is not an engine error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsKind(err error, kind Kind) bool { return KindOf(err) == kind }
