package api

import (
	"errors"
	"fmt"
)

// Configuration errors are reported while a scenario is preprocessed or when an
// item is started. Each of them aborts the affected scenario or item only.
var (
	ErrMissingType     = errors.New("item has no type")
	ErrUnknownType     = errors.New("no plugin registered for item type")
	ErrReservedContext = errors.New(`items cannot set "context", use "defaults" or "overrides"`)
	ErrMissingProperty = errors.New("missing required property")
	ErrMissingContext  = errors.New("missing context, invalid preprocessor")
)

// Job errors
var (
	ErrJobInProgress = errors.New("concurrency off: a job is still in progress")
	ErrJobNotFound   = errors.New("job not found")
)

// ItemError ties a configuration error to the item that caused it.
type ItemError struct {
	// Loader names the component that was preprocessing the item (for example "include")
	Loader string
	// File is the scenario file the item was read from
	File string
	// Name is the item name, if known
	Name string
	// Type is the item type, if known
	Type string
	// Err is the underlying error
	Err error
}

// NewItemError builds an ItemError for def, reading loader and file tags from c.
func NewItemError(err error, c Context, def Definition) *ItemError {
	return &ItemError{
		Loader: c.String(KeyLoader),
		File:   c.String(KeyFileName),
		Name:   def.String("name"),
		Type:   def.String("type"),
		Err:    err,
	}
}

func (e *ItemError) Error() string {
	msg := fmt.Sprintf("item %q", e.Name)
	if e.Type != "" {
		msg += fmt.Sprintf(" (type: %s)", e.Type)
	}
	if e.Loader != "" {
		msg += fmt.Sprintf(" [%s]", e.Loader)
	}
	if e.File != "" {
		msg += " in " + e.File
	}
	return msg + ": " + e.Err.Error()
}

func (e *ItemError) Unwrap() error {
	return e.Err
}
