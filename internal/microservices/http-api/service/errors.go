package service

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("permission denied")
)

// RenewalKind says which side of the renewal window a date fell on.
type RenewalKind int

const (
	RenewalPast RenewalKind = iota + 1
	RenewalTooFar
)

// RenewalError rejects a proposed due date. Its message is shown on the form as is.
type RenewalError struct {
	Kind RenewalKind
}

func (e *RenewalError) Error() string {
	switch e.Kind {
	case RenewalPast:
		return "Invalid date - renewal in past"
	case RenewalTooFar:
		return "Invalid date - renewal more than 4 weeks ahead"
	default:
		return "Invalid date"
	}
}

// ValidationError carries per-field messages, keyed by form field name.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

// OrNil returns e when any field failed, nil otherwise.
func (e *ValidationError) OrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], " "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
