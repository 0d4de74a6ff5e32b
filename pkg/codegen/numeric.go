package codegen

import (
	"math"
	"unicode/utf8"
)

// Host implementations of the numeric built-ins. The backends synthesize
// runtime calls for these; the host versions exist so the compiler can
// fold constants and so the synthesized runtimes have a reference
// semantics to match. Rounding is half away from zero throughout.

// Round rounds x to digits places after the decimal point. Negative
// digits round to a power of ten; the result is integral for
// digits <= 0.
func Round(x float64, digits int) float64 {
	switch {
	case digits == 0:
		return math.Round(x)
	case digits > 0:
		shift := math.Pow(10, float64(digits))
		return math.Round(x*shift) / shift
	default:
		shift := math.Pow(10, float64(-digits))
		return math.Round(x/shift) * shift
	}
}

func Floor(x float64) float64 { return math.Floor(x) }

func Ceiling(x float64) float64 { return math.Ceil(x) }

func Abs(x float64) float64 { return math.Abs(x) }

func Min(x, y float64) float64 { return math.Min(x, y) }

func Max(x, y float64) float64 { return math.Max(x, y) }

// StrLen counts characters, not bytes.
func StrLen(s string) int { return utf8.RuneCountInString(s) }
