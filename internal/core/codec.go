package core

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Amounts go over the wire as JSON numbers. Stores keep them as decimal
// strings (see records.PlainFields), so only the record shapes carry these.

type expenseWire struct {
	ID          string      `json:"id"`
	Description string      `json:"description"`
	Amount      json.Number `json:"amount"`
	Month       string      `json:"month,omitempty"`
}

func (e Expense) MarshalJSON() ([]byte, error) {
	return json.Marshal(expenseWire{
		ID:          e.ID,
		Description: e.Description,
		Amount:      json.Number(e.Amount.String()),
		Month:       e.Month,
	})
}

// UnmarshalJSON reads an expense leniently so that stored records written
// by older clients still list. A field of the wrong type is left at its
// zero value: a non-string month becomes empty and is therefore left out
// of the monthly buckets, and an unreadable amount becomes zero.
func (e *Expense) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID          string `json:"id"`
		Description any    `json:"description"`
		Amount      any    `json:"amount"`
		Month       any    `json:"month"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	description, _ := raw.Description.(string)
	month, _ := raw.Month.(string)
	*e = Expense{
		ID:          raw.ID,
		Description: description,
		Amount:      storedAmount(raw.Amount),
		Month:       month,
	}
	return nil
}

// storedAmount reads an amount already persisted, which may predate input
// validation.
func storedAmount(v any) decimal.Decimal {
	var s string
	switch x := v.(type) {
	case json.Number:
		s = x.String()
	case string:
		s = strings.TrimSpace(x)
	default:
		return decimal.Zero
	}
	if d, err := decimal.NewFromString(s); err == nil {
		return d
	}
	if d, err := ParseAmount(s); err == nil {
		return d
	}
	return decimal.Zero
}

func (b MonthBucket) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Month          string      `json:"month"`
		ExpensesCount  int         `json:"expensesCount"`
		ExpensesAmount json.Number `json:"expensesAmount"`
	}{b.Month, b.ExpensesCount, json.Number(b.ExpensesAmount.String())})
}

// UnmarshalJSON leaves a non-string title empty instead of failing.
func (t *Task) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID    string `json:"id"`
		Title any    `json:"title"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	title, _ := raw.Title.(string)
	*t = Task{ID: raw.ID, Title: title}
	return nil
}

// UnmarshalJSON leaves a non-string goal empty instead of failing.
func (p *Plan) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID   string `json:"id"`
		Goal any    `json:"goal"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	goal, _ := raw.Goal.(string)
	*p = Plan{ID: raw.ID, Goal: goal}
	return nil
}
