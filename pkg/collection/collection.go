// Package collection holds the few slice helpers the order and cart code
// leans on.
//
// Usage:
//
//	byShop := collection.GroupBy(lines, func(l cart.Line) uint { return l.Shop.ID })
//	total := collection.Sum(lines, func(l cart.Line) float64 { return l.Subtotal() })
package collection

// Map transforms each element of slice s using fn.
func Map[T, R any](s []T, fn func(T) R) []R {
	out := make([]R, len(s))
	for i, v := range s {
		out[i] = fn(v)
	}
	return out
}

// GroupBy partitions s into a map keyed by the value returned by fn.
// Within each group, elements keep their original relative order.
func GroupBy[T any, K comparable](s []T, fn func(T) K) map[K][]T {
	out := make(map[K][]T)
	for _, v := range s {
		k := fn(v)
		out[k] = append(out[k], v)
	}
	return out
}

// Sum sums float values extracted by fn.
func Sum[T any](s []T, fn func(T) float64) float64 {
	var total float64
	for _, v := range s {
		total += fn(v)
	}
	return total
}

// SumInt sums integer values extracted by fn.
func SumInt[T any](s []T, fn func(T) int) int {
	var total int
	for _, v := range s {
		total += fn(v)
	}
	return total
}
