package user

import "testing"

func TestValidEmail(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"anna@x.it", true},
		{"anna.bianchi+jumpin@example.com", true},
		{"Anna <anna@x.it>", false},
		{"anna <anna@x.it>", false},
		{"<anna@x.it>", false},
		{"anna", false},
		{"", false},
	}

	for _, tc := range tests {
		if got := ValidEmail(tc.in); got != tc.want {
			t.Errorf("ValidEmail(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
