package pincode

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{name: "already clean", raw: "560001", want: "560001", ok: true},
		{name: "strips separators", raw: "560 001", want: "560001", ok: true},
		{name: "left pads short", raw: "1234", want: "001234", ok: true},
		{name: "truncates long", raw: "56000123", want: "560001", ok: true},
		{name: "no digits", raw: "N/A", want: "", ok: false},
		{name: "empty", raw: "", want: "", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Normalize(tt.raw)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestFromAddress(t *testing.T) {
	tests := []struct {
		name    string
		address string
		want    string
	}{
		{name: "trailing token", address: "12 MG Road, Bengaluru 560001", want: "560001"},
		{name: "trailing token with punctuation", address: "12 MG Road, Bengaluru - 560001.", want: "560001"},
		{name: "last segment wins over earlier", address: "Plot 400001 Sector 5\nNoida 201301, Uttar Pradesh", want: "201301"},
		{name: "earlier segment when last has none", address: "Shop 3, Karol Bagh 110005, Delhi", want: "110005"},
		{name: "ignores longer digit runs", address: "Phone 9876543210, Delhi", want: "110001"},
		{name: "fallback", address: "Main bazaar, Jaipur", want: "110001"},
		{name: "empty", address: "  ", want: "110001"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, FromAddress(tt.address, "110001"))
		})
	}
}
