package utils

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		want  string
	}{
		{name: "zero", value: 0, want: "$0.00"},
		{name: "small", value: 12.5, want: "$12.50"},
		{name: "thousands", value: 1234.567, want: "$1,234.57"},
		{name: "millions", value: 1000000, want: "$1,000,000.00"},
		{name: "negative", value: -98765.4, want: "-$98,765.40"},
		{name: "rounding carries", value: 999.999, want: "$1,000.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatMoney(tt.value))
		})
	}
}

func TestFloatPtr(t *testing.T) {
	assert.Nil(t, FloatPtr(math.NaN()))
	assert.Nil(t, FloatPtr(math.Inf(1)))
	got := FloatPtr(1.5)
	require.NotNil(t, got)
	assert.Equal(t, 1.5, *got)
}

func TestFormatOptional(t *testing.T) {
	assert.Equal(t, "n/a", FormatOptional(nil, "%.2f"))
	assert.Equal(t, "1.23", FormatOptional(ToPointer(1.234), "%.2f"))
}

func TestDayBounds(t *testing.T) {
	day := time.Date(2024, 3, 10, 15, 30, 0, 0, time.FixedZone("WIB", 7*3600))

	start := StartOfDay(day)
	end := EndOfDay(day)

	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 3, 10, 23, 59, 59, 999999999, time.UTC), end)
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), got)

	_, err = ParseDate("29/02/2024")
	assert.Error(t, err)
}

func TestHumanDuration(t *testing.T) {
	assert.Equal(t, "3d 4h", HumanDuration(76*time.Hour+20*time.Minute))
	assert.Equal(t, "0d 0h", HumanDuration(0))
}
