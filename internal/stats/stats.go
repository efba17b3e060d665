// Package stats holds the pure aggregation helpers behind summaries and exports.
package stats

import (
	"math"
	"sort"
)

// Summary of one numeric field. Average is rounded to two decimals; Total is not.
type Summary struct {
	Average float64 `json:"average"`
	Total   float64 `json:"total"`
	Count   int     `json:"count"`
}

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*100) / 100
}

// SummarizeValues aggregates vals. The average of no values is 0.
func SummarizeValues(vals []float64) Summary {
	var s Summary
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		s.Total += v
		s.Count++
	}
	if s.Count > 0 {
		s.Average = Round2(s.Total / float64(s.Count))
	}
	return s
}

// Summarize aggregates field over rows.
func Summarize[T any](rows []T, field func(T) float64) Summary {
	vals := make([]float64, len(rows))
	for i, r := range rows {
		vals[i] = field(r)
	}
	return SummarizeValues(vals)
}

// SummarizePresent aggregates field over the rows where it is present.
func SummarizePresent[T any](rows []T, field func(T) (float64, bool)) Summary {
	vals := make([]float64, 0, len(rows))
	for _, r := range rows {
		if v, ok := field(r); ok {
			vals = append(vals, v)
		}
	}
	return SummarizeValues(vals)
}

// CountBy counts rows per key.
func CountBy[T any, K comparable](rows []T, key func(T) K) map[K]int {
	out := make(map[K]int)
	for _, r := range rows {
		out[key(r)]++
	}
	return out
}

// GroupBy partitions rows by key, keeping input order inside each group.
func GroupBy[T any, K comparable](rows []T, key func(T) K) map[K][]T {
	out := make(map[K][]T)
	for _, r := range rows {
		k := key(r)
		out[k] = append(out[k], r)
	}
	return out
}

// SortedKeys returns m's keys in ascending order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
