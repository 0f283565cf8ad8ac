package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want string
		err  bool
	}{
		{"12.34", "12.34", false},
		{"12,34", "12.34", false},
		{" 7 ", "7", false},
		{"0", "0", false},
		{",5", "0.5", false},
		{"", "", true},
		{"-1", "", true},
		{"+1", "", true},
		{"1e3", "", true},
		{"1.2.3", "", true},
		{"12.", "", true},
		{"abc", "", true},
		{"1 000", "", true},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.err {
			if !errors.Is(err, ErrInvalidAmount) {
				t.Errorf("ParseAmount(%q) err = %v, want ErrInvalidAmount", tc.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseAmount(%q) unexpected error: %v", tc.in, err)
			continue
		}
		if !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Errorf("ParseAmount(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeFieldsCreate(t *testing.T) {
	got, err := NormalizeFields(CollectionExpenses, Fields{
		"description": "  groceries\x00 ",
		"amount":      json.Number("12.50"),
		"month":       "march",
	}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["description"] != "groceries" {
		t.Fatalf("description = %q", got["description"])
	}
	if got["month"] != "March" {
		t.Fatalf("month = %q", got["month"])
	}
	a, ok := got["amount"].(decimal.Decimal)
	if !ok || !a.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("amount = %#v", got["amount"])
	}
}

func TestNormalizeFieldsErrors(t *testing.T) {
	long := strings.Repeat("x", MaxTextLength+1)
	cases := []struct {
		name       string
		collection string
		fields     Fields
		partial    bool
		want       error
	}{
		{"unknown collection", "users", Fields{"name": "a"}, false, ErrUnknownCollection},
		{"unknown field", CollectionTasks, Fields{"title": "a", "done": true}, false, ErrUnknownField},
		{"id is not a field", CollectionTasks, Fields{"id": "1", "title": "a"}, false, ErrUnknownField},
		{"missing field", CollectionExpenses, Fields{"description": "a", "amount": 1.0}, false, ErrMissingField},
		{"empty update", CollectionPlans, Fields{}, true, ErrNoFields},
		{"empty title", CollectionTasks, Fields{"title": "   "}, false, ErrEmptyTitle},
		{"non-string title", CollectionTasks, Fields{"title": 3.0}, false, ErrEmptyTitle},
		{"empty goal", CollectionPlans, Fields{"goal": ""}, false, ErrEmptyGoal},
		{"empty description", CollectionExpenses, Fields{"description": ""}, true, ErrEmptyDescription},
		{"too long", CollectionTasks, Fields{"title": long}, false, ErrTooLong},
		{"non-numeric amount", CollectionExpenses, Fields{"amount": "lots"}, true, ErrInvalidAmount},
		{"negative amount", CollectionExpenses, Fields{"amount": -3.0}, true, ErrInvalidAmount},
		{"boolean amount", CollectionExpenses, Fields{"amount": true}, true, ErrInvalidAmount},
		{"unknown month", CollectionExpenses, Fields{"month": "Smarch"}, true, ErrInvalidMonth},
		{"numeric month", CollectionExpenses, Fields{"month": 3.0}, true, ErrInvalidMonth},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NormalizeFields(tc.collection, tc.fields, tc.partial)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestNormalizeFieldsPartial(t *testing.T) {
	got, err := NormalizeFields(CollectionExpenses, Fields{"amount": "3,20"}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("partial update should only carry the given field, got %v", got)
	}
	if a := got["amount"].(decimal.Decimal); !a.Equal(decimal.RequireFromString("3.2")) {
		t.Fatalf("amount = %s", a)
	}
}

func TestIsValidationError(t *testing.T) {
	_, err := NormalizeFields(CollectionTasks, Fields{"title": ""}, false)
	if !IsValidationError(err) {
		t.Fatalf("empty title should be a validation error")
	}
	_, err = NormalizeFields("nope", Fields{}, false)
	if IsValidationError(err) {
		t.Fatalf("unknown collection should not be a validation error")
	}
	if IsValidationError(nil) {
		t.Fatalf("nil is not a validation error")
	}
}
