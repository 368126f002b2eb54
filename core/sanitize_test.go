package core

import "testing"

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  plain text ", "plain text"},
		{"Tom & Jerry's \"notes\"", "Tom & Jerry's \"notes\""},
		{"1 < 2 > 0", "1 < 2 > 0"},
		{"<b>bold</b> move", "bold move"},
		{"<script>alert(1)</script>hi", "hi"},
		{`<a href="javascript:x()">link</a>`, "link"},
	}
	for _, tt := range tests {
		if got := Sanitize(tt.in); got != tt.want {
			t.Errorf("Sanitize(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}
