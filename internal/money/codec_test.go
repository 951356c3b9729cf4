package money

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBaseUnits(t *testing.T) {
	t.Run("accepts plain integers", func(t *testing.T) {
		v, err := ParseBaseUnits("1000000000000000000")
		require.NoError(t, err)
		assert.Equal(t, "1000000000000000000", v.String())
	})

	t.Run("accepts signed input", func(t *testing.T) {
		v, err := ParseBaseUnits("-42")
		require.NoError(t, err)
		assert.Equal(t, "-42", v.String())

		v, err = ParseBaseUnits("+42")
		require.NoError(t, err)
		assert.Equal(t, "42", v.String())
	})

	t.Run("exceeds 64-bit range", func(t *testing.T) {
		v, err := ParseBaseUnits("115792089237316195423570985008687907853269984665640564039457584007913129639935")
		require.NoError(t, err)
		assert.Greater(t, v.BitLen(), 64)
	})

	t.Run("rejects non-integers", func(t *testing.T) {
		for _, in := range []string{"", "1.5", " 42", "42 ", "0x1f", "1e18", "-", "abc"} {
			_, err := ParseBaseUnits(in)
			assert.Error(t, err, "input %q", in)
		}
	})
}

func TestBaseUnitsToDisplay(t *testing.T) {
	cases := []struct {
		raw      string
		decimals int
		want     string
	}{
		{"1000000000000000000", 18, "1"},
		{"1100000000000000000", 18, "1.1"},
		{"1050000000000000000", 18, "1.05"},
		{"100000000000000000", 18, "0.1"},
		{"1", 18, "0.000000000000000001"},
		{"0", 18, "0"},
		{"000", 18, "0"},
		{"123456", 0, "123456"},
		{"-2500000", 6, "-2.5"},
		{"+42000000", 6, "42"},
	}
	for _, tc := range cases {
		got, err := BaseUnitsToDisplay(tc.raw, tc.decimals)
		require.NoError(t, err, "raw %q", tc.raw)
		assert.Equal(t, tc.want, got, "raw %q at %d decimals", tc.raw, tc.decimals)
	}

	_, err := BaseUnitsToDisplay("1.5", 18)
	assert.Error(t, err)
	_, err = BaseUnitsToDisplay("12", -1)
	assert.Error(t, err)
}

func TestDisplayToBaseUnits(t *testing.T) {
	cases := []struct {
		display  string
		decimals int
		want     string
	}{
		{"1", 18, "1000000000000000000"},
		{"1.1", 18, "1100000000000000000"},
		{"0.000000000000000001", 18, "1"},
		{"0", 6, "0"},
		{".5", 6, "500000"},
		{"-2.5", 6, "-2500000"},
		{"42", 0, "42"},
	}
	for _, tc := range cases {
		got, err := DisplayToBaseUnits(tc.display, tc.decimals)
		require.NoError(t, err, "display %q", tc.display)
		assert.Equal(t, tc.want, got, "display %q at %d decimals", tc.display, tc.decimals)
	}

	t.Run("rejects excess fractional digits", func(t *testing.T) {
		_, err := DisplayToBaseUnits("1.1234567", 6)
		assert.Error(t, err)
	})

	t.Run("roundtrips with display", func(t *testing.T) {
		for _, raw := range []string{"1050000000000000000", "1", "999999999999999999"} {
			display, err := BaseUnitsToDisplay(raw, 18)
			require.NoError(t, err)
			back, err := DisplayToBaseUnits(display, 18)
			require.NoError(t, err)
			assert.Equal(t, raw, back)
		}
	})
}

func TestNormalizeIntegerString(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"123", "123"},
		{"  123  ", "123"},
		{"123.456", "123"},
		{"1.5e3", "1500"},
		{"1.55e1", "15"},
		{"2e18", "2000000000000000000"},
		{"1E2", "100"},
		{"5e-1", "0"},
		{"0.9", "0"},
		{"-12.7", "-12"},
		{"-0.5", "0"},
		{"", "0"},
		{"garbage", "0"},
		{"1e", "0"},
		{"1e9999999", "0"},
		{"00042", "42"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeIntegerString(tc.in), "input %q", tc.in)
	}
}

func TestMulDiv(t *testing.T) {
	acc, ok := new(big.Int).SetString("3000000000000000000000000000", 10) // 3e27
	require.True(t, ok)
	scale := big.NewInt(1_000_000_000)

	t.Run("floor", func(t *testing.T) {
		// 7 tokens * 3e27 / 1e9 = 21e18 exactly.
		got := MulDivFloor(big.NewInt(7), acc, scale)
		assert.Equal(t, "21000000000000000000", got.String())

		// Non-exact division floors.
		got = MulDivFloor(big.NewInt(10), big.NewInt(1), big.NewInt(3))
		assert.Equal(t, "3", got.String())
	})

	t.Run("ceil", func(t *testing.T) {
		got := MulDivCeil(big.NewInt(10), big.NewInt(1), big.NewInt(3))
		assert.Equal(t, "4", got.String())

		// Exact division does not round up.
		got = MulDivCeil(big.NewInt(9), big.NewInt(1), big.NewInt(3))
		assert.Equal(t, "3", got.String())
	})

	t.Run("inputs unchanged", func(t *testing.T) {
		a, b := big.NewInt(5), big.NewInt(7)
		MulDivFloor(a, b, big.NewInt(2))
		assert.Equal(t, "5", a.String())
		assert.Equal(t, "7", b.String())
	})
}
