// Package apperr defines the error kinds surfaced to users. Every error
// carries a short title and a human-readable description.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation      Kind = "validation"
	KindPersistence     Kind = "persistence"
	KindNotFound        Kind = "not_found"
	KindImportFormat    Kind = "import_format"
	KindUnauthenticated Kind = "unauthenticated"
	KindUnavailable     Kind = "unavailable"
)

// Error is a categorized, user-presentable error.
type Error struct {
	Kind        Kind
	Title       string
	Description string
	Err         error
}

func (e *Error) Error() string {
	switch {
	case e.Description != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Title, e.Description, e.Err)
	case e.Description != "":
		return fmt.Sprintf("%s: %s", e.Title, e.Description)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Title, e.Err)
	default:
		return e.Title
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation reports input that was rejected before any state changed.
func Validation(title, description string) error {
	return &Error{Kind: KindValidation, Title: title, Description: description}
}

// ValidationFrom wraps a field-level validation aggregate.
func ValidationFrom(title string, err error) error {
	return &Error{Kind: KindValidation, Title: title, Description: err.Error(), Err: err}
}

// Persistence reports a failed read or write against the backing store.
func Persistence(title string, err error) error {
	return &Error{Kind: KindPersistence, Title: title, Err: err}
}

func NotFound(title, description string) error {
	return &Error{Kind: KindNotFound, Title: title, Description: description}
}

// ImportFormat reports a spreadsheet that could not be understood.
func ImportFormat(description string, err error) error {
	return &Error{Kind: KindImportFormat, Title: "import failed", Description: description, Err: err}
}

func Unauthenticated(description string) error {
	return &Error{Kind: KindUnauthenticated, Title: "not signed in", Description: description}
}

// Unavailable reports an external collaborator, such as the text generator,
// that failed or is temporarily refusing calls.
func Unavailable(title string, err error) error {
	return &Error{Kind: KindUnavailable, Title: title, Err: err}
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return ""
}

func IsValidation(err error) bool      { return KindOf(err) == KindValidation }
func IsPersistence(err error) bool     { return KindOf(err) == KindPersistence }
func IsNotFound(err error) bool        { return KindOf(err) == KindNotFound }
func IsImportFormat(err error) bool    { return KindOf(err) == KindImportFormat }
func IsUnauthenticated(err error) bool { return KindOf(err) == KindUnauthenticated }
func IsUnavailable(err error) bool     { return KindOf(err) == KindUnavailable }
