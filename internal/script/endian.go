package script

// Reverse16 swaps the two bytes of a 16 bit value.
func Reverse16(v uint16) uint16 {
	return v<<8 | v>>8
}

// Reverse32 reverses the bytes of both 16 bit halves and swaps the halves.
// Jump operands are stored in this order, applying it twice returns the original value.
func Reverse32(v uint32) uint32 {
	return uint32(Reverse16(uint16(v)))<<16 | uint32(Reverse16(uint16(v>>16)))
}
