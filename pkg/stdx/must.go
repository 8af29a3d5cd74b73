// Package stdx collects small generic helpers.
package stdx

// Must1 returns v, or panics when err is not nil.
// Use it for values built at init time from constant input.
func Must1[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
