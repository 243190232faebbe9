// Package filter selects records whose url matches a case-insensitive search term
package filter

import (
	"errors"
	"fmt"

	"github.com/UnendingLoop/URLFilter/internal/matcher"
	"github.com/UnendingLoop/URLFilter/internal/model"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")

	ErrEmptyTerm   = invalidArgument("searchTerm cannot be empty")
	ErrEmptyInput  = invalidArgument("inputArr cannot be empty")
	ErrInvalidTerm = invalidArgument("searchTerm is not a valid pattern")
)

type argError struct {
	msg string
}

func invalidArgument(msg string) error {
	return &argError{msg: msg}
}

func (e *argError) Error() string { return e.msg }

func (e *argError) Is(target error) bool { return target == ErrInvalidArgument }

// FilterByTerm returns a new slice with the records whose url matches term.
// The term check goes before the input check. Input order is preserved.
func FilterByTerm(records []model.Record, term string) ([]model.Record, error) {
	if term == "" {
		return nil, ErrEmptyTerm
	}
	if len(records) == 0 {
		return nil, ErrEmptyInput
	}

	m, err := matcher.Compile(term)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTerm, err)
	}

	result := make([]model.Record, 0)
	for _, rec := range records {
		if m.FindMatch(rec.URL) {
			result = append(result, rec)
		}
	}
	return result, nil
}
