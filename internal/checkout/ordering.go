package checkout

import (
	"fmt"
	"slices"
	"sort"
)

// positioned is implemented by the pointer types of every ordered page collection
type positioned[T any] interface {
	*T
	Position() int
	SetOrder(int)
}

// Renumber reassigns Order to 0..n-1 following the current slice order
func Renumber[T any, P positioned[T]](items []T) []T {
	for i := range items {
		P(&items[i]).SetOrder(i)
	}
	return items
}

// IsDense reports whether the Order values of items are exactly 0..n-1 in slice order
func IsDense[T any, P positioned[T]](items []T) bool {
	for i := range items {
		if P(&items[i]).Position() != i {
			return false
		}
	}
	return true
}

// sortAndRenumber puts items in their stored order (stable on ties) and closes any gaps
func sortAndRenumber[T any, P positioned[T]](items []T) []T {
	sort.SliceStable(items, func(a, b int) bool {
		return P(&items[a]).Position() < P(&items[b]).Position()
	})
	return Renumber[T, P](items)
}

func insertAt[T any, P positioned[T]](items []T, at int, item T) ([]T, int) {
	if at < 0 || at > len(items) {
		at = len(items)
	}
	items = slices.Insert(items, at, item)
	return Renumber[T, P](items), at
}

func removeAt[T any, P positioned[T]](items []T, at int) []T {
	items = slices.Delete(items, at, at+1)
	return Renumber[T, P](items)
}

// moveItem moves the item at from so it ends up at index to
func moveItem[T any, P positioned[T]](items []T, from, to int) ([]T, error) {
	if from < 0 || from >= len(items) || to < 0 || to >= len(items) {
		return items, fmt.Errorf("move %d -> %d out of range for %d items", from, to, len(items))
	}
	item := items[from]
	items = slices.Delete(items, from, from+1)
	items = slices.Insert(items, to, item)
	return Renumber[T, P](items), nil
}
