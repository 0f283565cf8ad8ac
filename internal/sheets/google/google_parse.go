package google

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"dolor/internal/core"
)

var summaryHeader = []interface{}{"Month", "Expenses", "Amount"}

// summaryRows renders buckets as a values matrix with a header row.
func summaryRows(buckets []core.MonthBucket) [][]interface{} {
	rows := make([][]interface{}, 0, len(buckets)+1)
	rows = append(rows, summaryHeader)
	for _, b := range buckets {
		rows = append(rows, []interface{}{b.Month, b.ExpensesCount, b.ExpensesAmount.StringFixed(2)})
	}
	return rows
}

// parseSummary converts a values matrix (as returned by the Sheets API) back
// into twelve buckets. Months missing from the sheet come back empty.
func parseSummary(values [][]interface{}) ([]core.MonthBucket, error) {
	buckets := core.AggregateByMonth(nil)
	if len(values) == 0 {
		return buckets, nil
	}
	headers := toStrings(values[0])
	colMonth := indexOf(headers, "Month")
	colCount := indexOf(headers, "Expenses")
	colAmount := indexOf(headers, "Amount")
	if colMonth == -1 || colCount == -1 || colAmount == -1 {
		return nil, fmt.Errorf("unexpected summary header: got headers=%v", headers)
	}

	index := make(map[string]int, len(buckets))
	for i, b := range buckets {
		index[b.Month] = i
	}
	for r := 1; r < len(values); r++ {
		row := toStrings(values[r])
		month, ok := core.CanonicalMonth(safeGet(row, colMonth))
		if !ok {
			continue
		}
		i := index[month]
		if n, err := strconv.Atoi(strings.TrimSpace(safeGet(row, colCount))); err == nil {
			buckets[i].ExpensesCount = n
		}
		if amt, ok := parseAmountCell(safeGet(row, colAmount)); ok {
			buckets[i].ExpensesAmount = amt
		}
	}
	return buckets, nil
}

// parseAmountCell accepts "12.34", "12,34" and "€ 1.234,56" style cells.
func parseAmountCell(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "€"))
	if s == "" {
		return decimal.Zero, false
	}
	if strings.Contains(s, ",") && strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ".", "")
	}
	d, err := core.ParseAmount(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		switch x := v.(type) {
		case float64:
			out[i] = strconv.FormatFloat(x, 'f', -1, 64)
		default:
			out[i] = fmt.Sprint(v)
		}
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), target) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx >= 0 && idx < len(arr) {
		return arr[idx]
	}
	return ""
}
