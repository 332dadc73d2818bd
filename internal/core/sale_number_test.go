package core_test

import (
	"testing"

	"dealer-ledger/internal/core"
)

func TestNextSaleNumber(t *testing.T) {
	tests := []struct {
		name    string
		highest string
		count   int
		want    string
	}{
		{"first sale", "", 0, "SAL-000001"},
		{"increments highest", "SAL-000042", 42, "SAL-000043"},
		{"ignores count when highest parses", "SAL-000042", 7, "SAL-000043"},
		{"falls back to count", "LEGACY-9", 12, "SAL-000013"},
		{"non numeric suffix", "SAL-00A001", 3, "SAL-000004"},
		{"grows past six digits", "SAL-999999", 999999, "SAL-1000000"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := core.NextSaleNumber(tc.highest, tc.count); got != tc.want {
				t.Errorf("got %s, want %s", got, tc.want)
			}
		})
	}
}

func TestNextOrderNumber(t *testing.T) {
	if got := core.NextOrderNumber("ORD-000009", 9); got != "ORD-000010" {
		t.Errorf("got %s, want ORD-000010", got)
	}
}

func TestIsDealerSaleNumber(t *testing.T) {
	if !core.IsDealerSaleNumber("SAL-000001") {
		t.Error("SAL-000001 should be a dealer sale number")
	}
	if core.IsDealerSaleNumber("ORD-000001") {
		t.Error("ORD-000001 should not be a dealer sale number")
	}
}
