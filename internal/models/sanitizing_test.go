package models

import "testing"

func TestDecodeHeaderText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain ascii", "Hello world", "Hello world"},
		{"already utf8", "Grüße aus Köln", "Grüße aus Köln"},
		{"rfc2047 q utf8", "=?UTF-8?Q?Gr=C3=BC=C3=9Fe?=", "Grüße"},
		{"rfc2047 b utf8", "=?UTF-8?B?R3LDvMOfZQ==?=", "Grüße"},
		{"rfc2047 latin1", "=?ISO-8859-1?Q?Gr=FC=DFe?=", "Grüße"},
		{"rfc2047 latin9", "=?ISO-8859-15?Q?100=A4?=", "100€"},
		{"rfc2047 windows-1252", "=?windows-1252?Q?caf=E9?=", "café"},
		{"q underscore is space", "=?UTF-8?Q?a_b?=", "a b"},
		{"raw latin1 bytes", "Gr\xfc\xdfe", "Grüße"},
		{"unknown charset kept", "=?x-nonsense?Q?abc?=", "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecodeHeaderText(tt.input); got != tt.want {
				t.Errorf("DecodeHeaderText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeCharset(t *testing.T) {
	tests := []struct{ in, want string }{
		{"UTF8", "utf-8"},
		{" ISO-8859-1 ", "iso-8859-1"},
		{"latin1", "iso-8859-1"},
		{"CP1252", "windows-1252"},
		{"us-ascii", "windows-1252"},
		{"koi8-r", "koi8-r"},
	}
	for _, tt := range tests {
		if got := normalizeCharset(tt.in); got != tt.want {
			t.Errorf("normalizeCharset(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
