package export

import "strconv"

// Ordinal renders an integer with its English ordinal suffix: 1st,
// 2nd, 11th, 22nd. The sign is preserved for negative input.
func Ordinal(n int) string {
	v := n % 100
	if v < 0 {
		v = -v
	}
	suffix := "th"
	if v < 11 || v > 13 {
		switch v % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return strconv.Itoa(n) + suffix
}

// FormatDecimal renders a float without trailing zeros, e.g. 3 or 1.5.
func FormatDecimal(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatGPA renders a grade-point average with two decimals.
func FormatGPA(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
