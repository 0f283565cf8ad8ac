package core

import "github.com/shopspring/decimal"

// DedupeByID keeps the first record observed for each id and drops later
// records sharing it. Output order is the order of first occurrence.
func DedupeByID[T Identifiable](records []T) []T {
	out := make([]T, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		id := r.RecordID()
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, r)
	}
	return out
}

// AggregateByMonth buckets expenses into the twelve calendar months.
//
// The result always has twelve entries, January through December, even when
// expenses is empty. Expenses whose month is empty or not a canonical month
// name contribute to no bucket. No deduplication happens here; pass a list
// that has already gone through DedupeByID.
func AggregateByMonth(expenses []Expense) []MonthBucket {
	months := Months()
	buckets := make([]MonthBucket, len(months))
	index := make(map[string]int, len(months))
	for i, m := range months {
		buckets[i] = MonthBucket{Month: m, ExpensesAmount: decimal.Zero}
		index[m] = i
	}
	for _, e := range expenses {
		i, ok := index[e.Month]
		if !ok {
			continue
		}
		buckets[i].ExpensesCount++
		buckets[i].ExpensesAmount = buckets[i].ExpensesAmount.Add(e.Amount)
	}
	return buckets
}

// TotalAmount sums the amounts of all buckets.
func TotalAmount(buckets []MonthBucket) decimal.Decimal {
	total := decimal.Zero
	for _, b := range buckets {
		total = total.Add(b.ExpensesAmount)
	}
	return total
}
