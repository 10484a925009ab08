package utils

// Value dereferences p. A nil pointer yields the zero value, which is how optional JSON
// fields such as a null date are read.
func Value[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// Ptr returns a pointer to a copy of v.
func Ptr[T any](v T) *T {
	return &v
}
