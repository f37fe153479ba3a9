package webhook

import "testing"

func TestSanitize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "balance", "balance"},
		{"trimmed", "  send 5 ALGO to 5551234  ", "send 5 ALGO to 5551234"},
		{"first line only", "balance\nOK\n+CMGR: garbage", "balance"},
		{"leading blank lines skipped", "\n\n  \nbalance", "balance"},
		{"non-printable stripped", "bal\x00an\x07ce\x1b", "balance"},
		{"gateway noise around payload", "\xff\xfe balance \x00", "balance"},
		{"empty", "", ""},
		{"only noise", "\x00\x01\x02", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Sanitize(tc.in); got != tc.want {
				t.Fatalf("Sanitize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
