package bytecode

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Value is a runtime value. Only double-precision numbers exist so far.
type Value float64

// String formats v the way the trace and RETURN output show numbers:
// integral values keep a ".0" suffix, very small or large magnitudes use an
// exponent, and the non-finite values print as inf, -inf and NaN.
func (v Value) String() string {
	f := float64(v)
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}

	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return compactExponent(strconv.FormatFloat(f, 'e', -1, 64))
	}

	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}

// compactExponent rewrites Go's "1.5e+07" / "1e-05" as "1.5e7" / "1e-5".
func compactExponent(s string) string {
	mantissa, exp, ok := strings.Cut(s, "e")
	if !ok {
		return s
	}
	sign := ""
	switch {
	case strings.HasPrefix(exp, "-"):
		sign = "-"
		exp = exp[1:]
	case strings.HasPrefix(exp, "+"):
		exp = exp[1:]
	}
	exp = strings.TrimLeft(exp, "0")
	if exp == "" {
		exp = "0"
	}
	return mantissa + "e" + sign + exp
}

// Print writes v followed by a newline.
func (v Value) Print(w io.Writer) {
	fmt.Fprintln(w, v.String())
}
