package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestRoundHalfUp(t *testing.T) {
	cases := map[string]string{
		"10.005": "10.01",
		"10.004": "10",
		"0.125":  "0.13",
		"99.999": "100",
	}
	for in, want := range cases {
		got := Round(decimal.RequireFromString(in))
		require.True(t, got.Equal(decimal.RequireFromString(want)), "round(%s) = %s, want %s", in, got, want)
	}
}

func TestPercent(t *testing.T) {
	got := Percent(decimal.RequireFromString("1000.00"), decimal.NewFromInt(10))
	require.Equal(t, "100", got.String())

	got = Percent(decimal.RequireFromString("33.33"), decimal.RequireFromString("7.5"))
	require.Equal(t, "2.5", got.String())
}

func TestPaiseConversion(t *testing.T) {
	require.Equal(t, int64(12999), ToPaise(decimal.RequireFromString("129.99")))
	require.Equal(t, int64(13000), ToPaise(decimal.RequireFromString("129.995")))
	require.True(t, FromPaise(12999).Equal(decimal.RequireFromString("129.99")))
}
