package mathx

// RoundDiv returns floor((a + b/2)/b), classic rounding for positives.
func RoundDiv[T ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64](a, b T) T {
	if b == 0 {
		return 0
	}
	return (a + b/2) / b
}

// ScaleU8 maps a 0..255 level onto 0..top, rounding to nearest.
func ScaleU8(level uint8, top uint32) uint32 {
	return uint32(RoundDiv(uint64(level)*uint64(top), 255))
}
