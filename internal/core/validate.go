package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// MaxTextLength bounds every free-text field.
const MaxTextLength = 200

type fieldKind int

const (
	kindText fieldKind = iota
	kindAmount
	kindMonth
)

type fieldRule struct {
	kind  fieldKind
	empty error // returned for an empty text value
}

var schemas = map[string]map[string]fieldRule{
	CollectionTasks: {
		"title": {kind: kindText, empty: ErrEmptyTitle},
	},
	CollectionExpenses: {
		"description": {kind: kindText, empty: ErrEmptyDescription},
		"amount":      {kind: kindAmount},
		"month":       {kind: kindMonth},
	},
	CollectionPlans: {
		"goal": {kind: kindText, empty: ErrEmptyGoal},
	},
}

// FieldNames returns the sorted field names of a collection.
func FieldNames(collection string) []string {
	schema := schemas[collection]
	names := make([]string, 0, len(schema))
	for name := range schema {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NormalizeFields validates a field set for collection and returns a cleaned copy.
//
// Text is trimmed and stripped of control characters, amounts become
// decimal.Decimal and months are put in canonical form. With partial=false
// every field of the collection is required (create); with partial=true at
// least one field must be present (update). The id is never part of a field
// set and is rejected like any other unknown field.
func NormalizeFields(collection string, in Fields, partial bool) (Fields, error) {
	schema, ok := schemas[collection]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}
	if partial && len(in) == 0 {
		return nil, ErrNoFields
	}

	out := make(Fields, len(in))
	for name, raw := range in {
		rule, ok := schema[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q in %s", ErrUnknownField, name, collection)
		}
		v, err := normalizeValue(rule, raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out[name] = v
	}

	if !partial {
		for _, name := range FieldNames(collection) {
			if _, ok := out[name]; !ok {
				return nil, fmt.Errorf("%w: %s", ErrMissingField, name)
			}
		}
	}
	return out, nil
}

func normalizeValue(rule fieldRule, raw any) (any, error) {
	switch rule.kind {
	case kindAmount:
		return amountFromValue(raw)
	case kindMonth:
		s, ok := raw.(string)
		if !ok {
			return nil, ErrInvalidMonth
		}
		m, ok := CanonicalMonth(s)
		if !ok {
			return nil, ErrInvalidMonth
		}
		return m, nil
	default:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("%w: not a string", rule.empty)
		}
		s = SanitizeText(s)
		if s == "" {
			return nil, rule.empty
		}
		if utf8.RuneCountInString(s) > MaxTextLength {
			return nil, ErrTooLong
		}
		return s, nil
	}
}

// SanitizeText trims s and removes control characters except tab, newline
// and carriage return.
func SanitizeText(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

// IsValidationError reports whether err was produced by NormalizeFields for
// bad input rather than an unknown collection.
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrUnknownField, ErrMissingField, ErrNoFields, ErrInvalidAmount,
		ErrInvalidMonth, ErrEmptyTitle, ErrEmptyDescription, ErrEmptyGoal, ErrTooLong,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
