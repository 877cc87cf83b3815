package apothecary

// Map turns a slice of T1 into a slice of T2 using a mapping function.
func Map[T1, T2 any](s []T1, f func(T1) T2) []T2 {
	r := make([]T2, len(s))
	for i, v := range s {
		r[i] = f(v)
	}
	return r
}

// Includes returns true if the slice contains the provided value.
func Includes[T comparable](s []T, value T) bool {
	for _, v := range s {
		if v == value {
			return true
		}
	}
	return false
}

// Unique returns the distinct values of s in their first-seen order.
func Unique[T comparable](s []T) []T {
	seen := make(map[T]bool, len(s))
	r := make([]T, 0, len(s))
	for _, v := range s {
		if !seen[v] {
			seen[v] = true
			r = append(r, v)
		}
	}
	return r
}
