package postgres

import "testing"

func TestNumericFromUint64KeepsFullRange(t *testing.T) {
	cases := []struct {
		value uint64
		want  string
	}{
		{0, "0"},
		{100, "100"},
		{1 << 63, "9223372036854775808"},
		{^uint64(0), "18446744073709551615"},
	}

	for _, tc := range cases {
		n := numericFromUint64(tc.value)
		if !n.Valid {
			t.Fatalf("numeric for %d not valid", tc.value)
		}
		if n.Int.Sign() < 0 {
			t.Fatalf("numeric for %d is negative: %s", tc.value, n.Int)
		}
		if got := n.Int.String(); got != tc.want {
			t.Fatalf("numeric for %d: got %s, want %s", tc.value, got, tc.want)
		}
	}
}
