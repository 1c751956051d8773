// Package approx implements the compact approximate counter code used by
// sketch cells whose ceiling is too large to store literally.
//
// A code is ValueSize bits wide and reads like a tiny floating-point number:
// the top ExponentBits select a power of two and the low MantissaBits carry
// the significand. Codes below 1<<MantissaBits decode to themselves, so small
// counts are exact. Above that the spacing between neighbouring codes doubles
// with each exponent step, keeping the relative error under 2^-MantissaBits.
//
// Decoding is monotone: a larger code never decodes to a smaller value. That
// lets conservative update and the count-min query compare raw codes.
//
// Encode rounds values that fall between two representable codes up or down
// at random, with the probability of rounding up proportional to the
// distance from the lower code. The expected decoded value therefore equals
// the input, which keeps repeated increments unbiased (Morris counting).
package approx
