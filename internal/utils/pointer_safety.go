// Package utils carries small generic helpers shared across packages.
package utils

// Ptr returns a pointer to v, for optional fields on wire shapes.
func Ptr[T any](v T) *T {
	return &v
}
