package core

// EnsureLen returns buf resized to n samples. Capacity is reused when it
// suffices; otherwise a new slice is allocated and the old samples are
// carried over. Samples past the old length are not cleared.
func EnsureLen(buf []float32, n int) []float32 {
	if n <= 0 {
		return buf[:0]
	}

	if cap(buf) >= n {
		return buf[:n]
	}

	grown := make([]float32, n)
	copy(grown, buf)

	return grown
}

// Zero clears buf.
func Zero(buf []float32) {
	clear(buf)
}

// CopyInto copies the overlapping prefix of src into dst and returns how
// many samples were copied.
func CopyInto(dst, src []float32) int {
	return copy(dst, src)
}

// ToFloat64 widens src into dst, reusing dst capacity.
func ToFloat64(dst []float64, src []float32) []float64 {
	if cap(dst) >= len(src) {
		dst = dst[:len(src)]
	} else {
		dst = make([]float64, len(src))
	}

	for i, v := range src {
		dst[i] = float64(v)
	}

	return dst
}
