package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies the failures a user interaction can end with.
type ErrorKind string

const (
	KindUnsupportedFormat ErrorKind = "unsupported_format"
	KindExtract           ErrorKind = "extract"
	KindStoreRead         ErrorKind = "store_read"
	KindStoreWrite        ErrorKind = "store_write"
	KindModel             ErrorKind = "model"
)

// Error is returned by the extract, load, save and model-call steps so the
// caller can show a message per kind instead of failing the whole process.
type Error struct {
	Kind ErrorKind
	Op   string
	Name string
	Err  error
}

func NewError(kind ErrorKind, op, name string, err error) *Error {
	return &Error{Kind: kind, Op: op, Name: name, Err: err}
}

func (e *Error) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Name, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether any error in err's chain is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
