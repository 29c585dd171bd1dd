package aiff

import (
	"encoding/binary"
	"math"
)

// extendedToFloat64 converts an 80-bit IEEE 754 extended precision float to float64.
// AIFF stores sample rate in this format (10 bytes).
func extendedToFloat64(byteBuffer []byte) float64 {
	if len(byteBuffer) != 10 {
		return 0
	}

	sign := (byteBuffer[0] >> 7) & 1
	exponent := int(binary.BigEndian.Uint16(byteBuffer[0:2])) & 0x7FFF
	mantissa := binary.BigEndian.Uint64(byteBuffer[2:10])

	if exponent == 0 || mantissa == 0 {
		// Zero or denormal, never a usable sample rate
		return 0
	}

	if exponent == 0x7FFF {
		return math.Inf(1)
	}

	// The mantissa carries an explicit integer bit: value = mantissa/2^63 * 2^(exponent-16383)
	fval := math.Ldexp(float64(mantissa), exponent-16383-63)

	if sign == 1 {
		fval = -fval
	}

	return fval
}

// float64ToExtended converts a float64 to 80-bit extended precision format.
func float64ToExtended(f float64) [10]byte {
	var result [10]byte

	if f == 0 || math.IsNaN(f) {
		return result
	}

	sign := byte(0)
	if f < 0 {
		sign = 0x80
		f = -f
	}

	// Frexp gives mant in [0.5, 1); the extended format normalizes to [1, 2)
	mant, exp := math.Frexp(f)
	biasedExp := exp - 1 + 16383

	result[0] = sign | byte((biasedExp>>8)&0x7F)
	result[1] = byte(biasedExp & 0xFF)

	// mant * 2^64 is exact: float64 has 53 significant bits
	binary.BigEndian.PutUint64(result[2:], uint64(math.Ldexp(mant, 64)))

	return result
}
