// Package ordering provides the stable orderings and the name search used to
// present patient lists. Every function returns a new slice and leaves its
// input untouched.
package ordering

import "strings"

// ByAge orders items ascending by age with an insertion sort that only moves
// an element past a neighbour whose age is strictly greater, so equal ages
// keep their input order.
func ByAge[T any](items []T, age func(T) int) []T {
	out := append([]T(nil), items...)
	for i := 1; i < len(out); i++ {
		cur := out[i]
		j := i - 1
		for j >= 0 && age(out[j]) > age(cur) {
			out[j+1] = out[j]
			j--
		}
		out[j+1] = cur
	}
	return out
}

// ByName orders items ascending by case-insensitive name using a top-down
// merge sort. On equal keys the element from the left half is taken first.
func ByName[T any](items []T, name func(T) string) []T {
	keyed := make([]keyedItem[T], len(items))
	for i, it := range items {
		keyed[i] = keyedItem[T]{key: strings.ToLower(name(it)), item: it}
	}
	sorted := mergeSort(keyed)

	out := make([]T, len(sorted))
	for i, k := range sorted {
		out[i] = k.item
	}
	return out
}

type keyedItem[T any] struct {
	key  string
	item T
}

func mergeSort[T any](items []keyedItem[T]) []keyedItem[T] {
	if len(items) <= 1 {
		return append([]keyedItem[T](nil), items...)
	}
	mid := len(items) / 2
	left := mergeSort(items[:mid])
	right := mergeSort(items[mid:])

	merged := make([]keyedItem[T], 0, len(items))
	i, j := 0, 0
	for i < len(left) && j < len(right) {
		if left[i].key <= right[j].key {
			merged = append(merged, left[i])
			i++
		} else {
			merged = append(merged, right[j])
			j++
		}
	}
	merged = append(merged, left[i:]...)
	return append(merged, right[j:]...)
}

// NameMatches reports whether term occurs in name, ignoring case. A blank
// term matches nothing.
func NameMatches(name, term string) bool {
	term = strings.TrimSpace(term)
	if term == "" {
		return false
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(term))
}

// FilterByName keeps the items whose name contains term, in input order.
func FilterByName[T any](items []T, name func(T) string, term string) []T {
	out := []T{}
	for _, it := range items {
		if NameMatches(name(it), term) {
			out = append(out, it)
		}
	}
	return out
}
