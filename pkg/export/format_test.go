package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrdinal(t *testing.T) {
	cases := map[int]string{
		1:   "1st",
		2:   "2nd",
		3:   "3rd",
		4:   "4th",
		8:   "8th",
		11:  "11th",
		12:  "12th",
		13:  "13th",
		21:  "21st",
		22:  "22nd",
		23:  "23rd",
		101: "101st",
		111: "111th",
		112: "112th",
		113: "113th",
		0:   "0th",
		-3:  "-3rd",
		-11: "-11th",
	}
	for input, expected := range cases {
		assert.Equal(t, expected, Ordinal(input), "Ordinal(%d)", input)
	}
}

func TestFormatDecimal(t *testing.T) {
	assert.Equal(t, "3", FormatDecimal(3))
	assert.Equal(t, "1.5", FormatDecimal(1.5))
	assert.Equal(t, "0", FormatDecimal(0))
	assert.Equal(t, "142.5", FormatDecimal(142.5))
}

func TestFormatGPA(t *testing.T) {
	assert.Equal(t, "3.50", FormatGPA(3.5))
	assert.Equal(t, "4.00", FormatGPA(4))
	assert.Equal(t, "0.00", FormatGPA(0))
	assert.Equal(t, "3.67", FormatGPA(3.67))
}
