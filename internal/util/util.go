package util

func FloatPointer(f float64) *float64 {
	return &f
}

// FloatOrZero dereferences f, treating nil as 0.
func FloatOrZero(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
