package conversation

import "maps"

// Appended returns a new slice holding s followed by vs.
func Appended[T any](s []T, vs ...T) []T {
	out := make([]T, 0, len(s)+len(vs))
	out = append(out, s...)
	return append(out, vs...)
}

// WithKey returns a copy of m with k set to v.
func WithKey[K comparable, V any](m map[K]V, k K, v V) map[K]V {
	out := make(map[K]V, len(m)+1)
	maps.Copy(out, m)
	out[k] = v
	return out
}

// WithoutKey returns a copy of m without k.
func WithoutKey[K comparable, V any](m map[K]V, k K) map[K]V {
	out := maps.Clone(m)
	delete(out, k)
	return out
}
