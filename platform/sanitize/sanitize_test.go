package sanitize

import "testing"

func TestText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "  My Cool   Business ", want: "My Cool Business"},
		{in: "<b>Acme</b> &amp; Sons", want: "Acme & Sons"},
		{in: "&lt;script&gt;alert(1)&lt;/script&gt;hi", want: "alert(1)hi"},
		{in: "", want: ""},
	}
	for _, tt := range tests {
		if got := Text(tt.in); got != tt.want {
			t.Errorf("Text(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncateCountsRunes(t *testing.T) {
	if got := Truncate("héllo", 2); got != "hé" {
		t.Fatalf("Truncate() = %q", got)
	}
	if got := Truncate("abc", 10); got != "abc" {
		t.Fatalf("Truncate() = %q", got)
	}
}
