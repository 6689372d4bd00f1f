package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEqualValue(t *testing.T) {
	ts := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	released := time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)
	tests := []struct {
		name   string
		stored any
		cell   string
		want   bool
	}{
		{"NilBlank", nil, " ", true},
		{"NilValue", nil, "x", false},
		{"String", "alpha", "alpha", true},
		{"StringCase", "alpha", "Alpha", false},
		{"Bytes", []byte("raw"), "raw", true},
		{"Int", int64(3), "3", true},
		{"IntAsFloat", 3, "3.0", true},
		{"IntDiffers", 3, "4", false},
		{"IntNotNumeric", 3, "three", false},
		{"Float", 1.5, "1.50", true},
		{"BoolTrue", true, "TRUE", true},
		{"BoolOne", true, "1", true},
		{"BoolBlank", false, "", true},
		{"BoolDiffers", false, "true", false},
		{"BigInt", int64(9007199254740993), "9007199254740993", true},
		{"BigIntDiffers", int64(9007199254740993), "9007199254740992", false},
		{"IntFraction", 3, "3.5", false},
		{"Uint", uint64(18446744073709551615), "18446744073709551615", true},
		{"UintNegative", uint(1), "-1", false},
		{"Date", ts, "2024-05-01", true},
		{"DateDiffers", ts, "2024-05-02", false},
		{"DateTime", released, "2021-03-04 05:06:07", true},
		{"DateTimeFormatted", released, FormatValue(released), true},
		{"DateTimeZone", released.In(time.FixedZone("CET", 3600)), "2021-03-04 06:06:07", true},
		{"DateTimeDiffers", released, "2021-03-04 05:06:08", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EqualValue(tt.stored, tt.cell))
		})
	}
}

func TestConvertCell(t *testing.T) {
	assert.Equal(t, int64(4), ConvertCell("4", 3))
	assert.Equal(t, 2.5, ConvertCell("2.5", 1.0))
	assert.Equal(t, true, ConvertCell("true", false))
	assert.Equal(t, "x", ConvertCell("x", nil))
	assert.Nil(t, ConvertCell(" ", 3))
	assert.Nil(t, ConvertCell("", nil))
	assert.Equal(t, "", ConvertCell("", "old"))
	assert.Equal(t, "n/a", ConvertCell("n/a", 3))

	assert.Equal(t, int64(9007199254740993), ConvertCell("9007199254740993", int64(0)))
	assert.Equal(t, int64(12), ConvertCell(" 12.0 ", int32(1)))
	assert.Equal(t, "12.5", ConvertCell("12.5", 1))
	assert.Equal(t, uint64(18446744073709551615), ConvertCell("18446744073709551615", uint64(0)))
	assert.Equal(t, "-1", ConvertCell("-1", uint(0)))

	released := time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)
	got, ok := ConvertCell("2021-03-04 05:06:07", time.Time{}).(time.Time)
	require.True(t, ok)
	assert.True(t, released.Equal(got), got)
	assert.Equal(t, "soon", ConvertCell("soon", released))
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "", FormatValue(nil))
	assert.Equal(t, "2021-03-04 05:06:07", FormatValue(time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)))
	assert.Equal(t, "12", FormatValue(int64(12)))
	assert.Equal(t, "x", FormatValue("x"))
}

func TestSplitCandidates(t *testing.T) {
	assert.Nil(t, SplitCandidates("  ", true))
	assert.Equal(t, []string{"A - 1"}, SplitCandidates(" A - 1 ", false))
	assert.Equal(t, []string{"blue", "red", "green"}, SplitCandidates("* blue\n*red\n\n  * green ", true))
}

func TestSameSet(t *testing.T) {
	assert.True(t, sameSet([]string{"1", "2"}, []string{"2", "1"}, true))
	assert.False(t, sameSet([]string{"1", "2"}, []string{"2", "1"}, false))
	assert.False(t, sameSet([]string{"1"}, nil, true))
	assert.True(t, sameSet(nil, nil, false))
}
