package notify

import (
	"strings"
	"testing"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0812 345 6789", "+08123456789"},
		{"+62 812-345-6789", "+628123456789"},
		{"(415) 555-0100", "+4155550100"},
		{"++44 20 7946 0958", "+442079460958"},
		{"1+2+3", "+123"},
		{"", "+"},
	}
	for _, tt := range tests {
		if got := NormalizePhone(tt.in); got != tt.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizePhone_AlwaysOneLeadingPlus(t *testing.T) {
	inputs := []string{"abc", "+", "++", "+1 +2", "phone: 555", "٣٤٥ 12", "\t+  9"}
	for _, in := range inputs {
		got := NormalizePhone(in)
		if !strings.HasPrefix(got, "+") || strings.Count(got, "+") != 1 {
			t.Errorf("NormalizePhone(%q) = %q, want exactly one leading +", in, got)
		}
		for _, r := range got[1:] {
			if r < '0' || r > '9' {
				t.Errorf("NormalizePhone(%q) = %q contains non-digit %q", in, got, r)
			}
		}
		if again := NormalizePhone(got); again != got {
			t.Errorf("NormalizePhone not stable: %q -> %q", got, again)
		}
	}
}
