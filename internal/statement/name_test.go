package statement

import "testing"

func TestFallbackName(t *testing.T) {
	tests := []struct {
		reference string
		expected  string
	}{
		{"UPI-SWIGGY LIMITED-swiggy.stores@axisb", "Swiggy"},
		{"NEFT-N12345678-RAHUL SHARMA-SALARY JUL", "Rahul"},
		{"IMPS-000123456789-ZERODHA BROKING-INV", "Zerodha"},
		{"POS 4012XXXX3456 AMAZON PAY", "Amazon"},
		{"AMZN Marketplace", "Amzn"},
		{"", "Unknown"},
		{"   ", "Unknown"},
		{"123456789", "Unknown"},
		{"X1", "Unknown"},
	}

	for _, tc := range tests {
		if got := FallbackName(tc.reference); got != tc.expected {
			t.Errorf("FallbackName(%q) = %q, want %q", tc.reference, got, tc.expected)
		}
	}
}
