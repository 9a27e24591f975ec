package reports

import "testing"

func TestFormatCount(t *testing.T) {
	cases := map[int]string{
		0:        "0",
		7:        "7",
		999:      "999",
		1000:     "1,000",
		12345:    "12,345",
		100000:   "100,000",
		1234567:  "1,234,567",
		-9876543: "-9,876,543",
	}
	for n, want := range cases {
		if got := formatCount(n); got != want {
			t.Errorf("formatCount(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestTextOrDash(t *testing.T) {
	if got := textOrDash("  "); got != "-" {
		t.Errorf("textOrDash(blank) = %q", got)
	}
	if got := textOrDash("10,000 L"); got != "10,000 L" {
		t.Errorf("textOrDash = %q", got)
	}
}
