package approx

import "math/bits"

const (
	// ValueSize is the width of a code in bits.
	ValueSize = ExponentBits + MantissaBits

	// ExponentBits is the number of exponent bits in a code.
	ExponentBits = 5

	// MantissaBits is the number of mantissa bits in a code.
	MantissaBits = 15

	// MaxCode is the largest code.
	MaxCode = (1 << ValueSize) - 1

	// MaxValue is the value MaxCode decodes to.
	MaxValue = ((1 << (MantissaBits + 1)) - 1) << ((1 << ExponentBits) - 2)

	mantissaMask = (1 << MantissaBits) - 1
	hiddenBit    = 1 << MantissaBits
)

// Source supplies the randomness Encode rounds with.
type Source interface {
	// Uint64N returns a uniform value in [0, n).
	Uint64N(n uint64) uint64
}

// Decode returns the value code stands for.
func Decode(code uint64) uint64 {
	e := code >> MantissaBits
	m := code & mantissaMask
	if e == 0 {
		return m
	}
	return (hiddenBit | m) << (e - 1)
}

// Floor returns the largest code whose value does not exceed v.
func Floor(v uint64) uint64 {
	code, _ := floor(v)
	return code
}

// Encode returns a code for v, rounding up to the next code with probability
// (v - Decode(Floor(v))) / step so that E[Decode(Encode(v))] == v for every
// v up to MaxValue. Values above MaxValue saturate at MaxCode.
func Encode(v uint64, src Source) uint64 {
	code, rem := floor(v)
	if rem == 0 || code == MaxCode {
		return code
	}
	if src.Uint64N(Step(code)) < rem {
		code++
	}
	return code
}

// Step returns the distance between the values of code and code+1.
func Step(code uint64) uint64 {
	e := code >> MantissaBits
	if e <= 1 {
		return 1
	}
	return 1 << (e - 1)
}

// floor returns Floor(v) and how far v lies above its value.
func floor(v uint64) (code, rem uint64) {
	if v >= MaxValue {
		return MaxCode, 0
	}
	if v < hiddenBit {
		return v, 0
	}
	// v has MantissaBits+e significant bits for exponent e >= 1.
	e := uint64(bits.Len64(v)) - MantissaBits
	shift := e - 1
	m := (v >> shift) &^ hiddenBit
	code = e<<MantissaBits | m
	return code, v - ((hiddenBit | m) << shift)
}
