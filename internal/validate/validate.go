// Package validate holds the field rules applied to item and user payloads
// before they reach the store.
package validate

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/language"

	"github.com/erazemk/achados/internal/i18n"
	"github.com/erazemk/achados/internal/model"
)

// FieldFoundLostDate is the JSON name of the date an item was found or lost.
const FieldFoundLostDate = "found_lost_date"

// MaxNameLength bounds item names, in characters.
const MaxNameLength = 200

// FieldError is a single rule violation on one field. Key is an i18n message
// key and Args are its format arguments.
type FieldError struct {
	Field string
	Key   string
	Args  []any
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Key)
}

// Message renders the error in the given language.
func (e *FieldError) Message(tag language.Tag) string {
	return i18n.Translate(tag, e.Key, e.Args...)
}

// FoundLostDate accepts an absent date or one that is not after now.
// The boundary is inclusive: t == now is valid.
func FoundLostDate(t *time.Time, now time.Time) *FieldError {
	if t == nil {
		return nil
	}
	if t.After(now) {
		return &FieldError{Field: FieldFoundLostDate, Key: i18n.KeyFutureDate}
	}
	return nil
}

// Required rejects empty or whitespace-only values.
func Required(field, value string) *FieldError {
	if strings.TrimSpace(value) == "" {
		return &FieldError{Field: field, Key: i18n.KeyFieldRequired}
	}
	return nil
}

// MaxLength rejects values longer than max characters.
func MaxLength(field, value string, max int) *FieldError {
	if utf8.RuneCountInString(value) > max {
		return &FieldError{Field: field, Key: i18n.KeyFieldTooLong, Args: []any{max}}
	}
	return nil
}

// Password rejects passwords shorter than model.MinPasswordLength.
func Password(field, value string) *FieldError {
	if err := model.ValidatePassword(value); err != nil {
		return &FieldError{Field: field, Key: i18n.KeyPasswordTooShort, Args: []any{model.MinPasswordLength}}
	}
	return nil
}

// Choice rejects values not accepted by valid.
func Choice(field, value string, valid func(string) bool) *FieldError {
	if !valid(value) {
		return &FieldError{Field: field, Key: i18n.KeyInvalidChoice, Args: []any{value}}
	}
	return nil
}

// Errors collects field errors keyed by field name.
type Errors map[string][]*FieldError

// Add records err if it is non-nil.
func (es Errors) Add(err *FieldError) {
	if err == nil {
		return
	}
	es[err.Field] = append(es[err.Field], err)
}

// Empty reports whether no errors were recorded.
func (es Errors) Empty() bool {
	return len(es) == 0
}

// Err returns es as an error, or nil if it is empty.
func (es Errors) Err() error {
	if es.Empty() {
		return nil
	}
	return &Error{Fields: es}
}

// Localize renders every message in the given language.
func (es Errors) Localize(tag language.Tag) map[string][]string {
	out := make(map[string][]string, len(es))
	for field, errs := range es {
		for _, e := range errs {
			out[field] = append(out[field], e.Message(tag))
		}
	}
	return out
}

// Error is returned when a payload fails validation.
type Error struct {
	Fields Errors
}

func (e *Error) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// AsError unwraps a validation error from err.
func AsError(err error) (*Error, bool) {
	var ve *Error
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
