package trim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBounds(t *testing.T) {
	tests := []struct {
		width int
		kind  Kind
		min   int64
		max   int64
	}{
		{1, Unsigned, 0, 1},
		{4, Unsigned, 0, 15},
		{8, Unsigned, 0, 255},
		{63, Unsigned, 0, math.MaxInt64},
		{1, TwosComplement, -1, 0},
		{4, TwosComplement, -8, 7},
		{8, TwosComplement, -128, 127},
		{64, TwosComplement, math.MinInt64, math.MaxInt64},
	}

	for _, tt := range tests {
		lo, hi, err := Bounds(tt.width, tt.kind)
		require.NoError(t, err, "%d-bit %s", tt.width, tt.kind)
		assert.Equal(t, tt.min, lo, "%d-bit %s", tt.width, tt.kind)
		assert.Equal(t, tt.max, hi, "%d-bit %s", tt.width, tt.kind)
	}
}

func TestBoundsCoverFullRange(t *testing.T) {
	for _, kind := range []Kind{Unsigned, TwosComplement} {
		for width := 1; width <= 20; width++ {
			lo, hi, err := Bounds(width, kind)
			require.NoError(t, err)
			assert.LessOrEqual(t, lo, hi)
			assert.Equal(t, int64(1)<<width, hi-lo+1, "%d-bit %s", width, kind)
		}
	}
}

func TestBoundsInvalid(t *testing.T) {
	tests := []struct {
		width int
		kind  Kind
	}{
		{0, Unsigned},
		{-3, TwosComplement},
		{4, Kind(0)},
		{4, Kind(9)},
		{64, Unsigned},
		{65, TwosComplement},
	}

	for _, tt := range tests {
		_, _, err := Bounds(tt.width, tt.kind)
		assert.ErrorIs(t, err, ErrInvalidEncoding, "%d-bit kind %d", tt.width, int(tt.kind))
	}
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{
		"unsigned":        Unsigned,
		"UNSIGNED":        Unsigned,
		"twos_complement": TwosComplement,
		"twos-complement": TwosComplement,
		"signed":          TwosComplement,
	} {
		got, err := ParseKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseKind("gray")
	assert.ErrorIs(t, err, ErrInvalidEncoding)
}

func TestKindText(t *testing.T) {
	var k Kind
	require.NoError(t, k.UnmarshalText([]byte("twos_complement")))
	assert.Equal(t, TwosComplement, k)

	text, err := Unsigned.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "unsigned", string(text))

	_, err = Kind(0).MarshalText()
	assert.ErrorIs(t, err, ErrInvalidEncoding)
}
