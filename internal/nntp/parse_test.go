package nntp

import "testing"

func TestParseOverviewLine(t *testing.T) {
	line := "4123\tRe: subject here\tuser <user@example.org>\tSat, 2 Jan 2021 10:00:00 GMT\t<msgid@example.org>\t<parent@example.org>\t2048\t17"
	ov := ParseOverviewLine(line)
	if ov.ArtNum != 4123 {
		t.Errorf("ArtNum = %d, want 4123", ov.ArtNum)
	}
	if ov.Subject != "Re: subject here" {
		t.Errorf("Subject = %q", ov.Subject)
	}
	if ov.From != "user <user@example.org>" {
		t.Errorf("From = %q", ov.From)
	}
	if ov.Date != "Sat, 2 Jan 2021 10:00:00 GMT" {
		t.Errorf("Date = %q", ov.Date)
	}
	if ov.MessageID != "<msgid@example.org>" {
		t.Errorf("MessageID = %q", ov.MessageID)
	}
	if ov.References != "<parent@example.org>" {
		t.Errorf("References = %q", ov.References)
	}
	if ov.Bytes != 2048 || ov.Lines != 17 {
		t.Errorf("Bytes/Lines = %d/%d, want 2048/17", ov.Bytes, ov.Lines)
	}
}

func TestParseOverviewLineShort(t *testing.T) {
	ov := ParseOverviewLine("77\tonly subject")
	if ov.ArtNum != 77 || ov.Subject != "only subject" {
		t.Fatalf("short line parse = %+v", ov)
	}
	if ov.From != "" || ov.MessageID != "" || ov.Bytes != 0 || ov.Lines != 0 {
		t.Errorf("missing fields not zero valued: %+v", ov)
	}
}

func TestParseOverviewLineSloppyNumbers(t *testing.T) {
	ov := ParseOverviewLine("  42abc\ts\tf\td\tm\tr\t 1024 bytes\t9 lines")
	if ov.ArtNum != 42 {
		t.Errorf("ArtNum = %d, want 42", ov.ArtNum)
	}
	if ov.Bytes != 1024 {
		t.Errorf("Bytes = %d, want 1024", ov.Bytes)
	}
	if ov.Lines != 9 {
		t.Errorf("Lines = %d, want 9", ov.Lines)
	}
}

func TestParseHeaderBlock(t *testing.T) {
	lines := []string{
		"Path: news.example.org!not-for-mail",
		"subject: mixed case name",
		"FROM: someone@example.org",
		"Date: Mon, 4 Jan 2021 00:00:00 +0000",
		"Message-ID: <abc@example.org>",
		"References: <p1@example.org>",
		" <p2@example.org>",
		"Lines: 12",
		"Bytes: 345",
		"X-Other: ignored",
	}
	h := ParseHeaderBlock(lines)
	if h.Subject != "mixed case name" {
		t.Errorf("Subject = %q", h.Subject)
	}
	if h.From != "someone@example.org" {
		t.Errorf("From = %q", h.From)
	}
	if h.MessageID != "<abc@example.org>" {
		t.Errorf("MessageID = %q", h.MessageID)
	}
	if h.References != "<p1@example.org> <p2@example.org>" {
		t.Errorf("References = %q, continuation not folded", h.References)
	}
	if h.Bytes != 345 || h.Lines != 12 {
		t.Errorf("Bytes/Lines = %d/%d", h.Bytes, h.Lines)
	}
}

func TestParseHeaderBlockLeadingSpace(t *testing.T) {
	// Exactly one space after the colon is separator; the rest is value.
	h := ParseHeaderBlock([]string{"Subject:  two spaces", "From:no space"})
	if h.Subject != " two spaces" {
		t.Errorf("Subject = %q, want %q", h.Subject, " two spaces")
	}
	if h.From != "no space" {
		t.Errorf("From = %q, want %q", h.From, "no space")
	}
}

func TestParseHeaderBlockContinuationAfterOther(t *testing.T) {
	// A fold under a header we do not keep must not leak into kept fields.
	h := ParseHeaderBlock([]string{
		"Subject: real subject",
		"X-Trace: first",
		"\tcontinued trace",
	})
	if h.Subject != "real subject" {
		t.Errorf("Subject = %q", h.Subject)
	}
}

func TestParseInt64(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"123", 123},
		{"  123", 123},
		{"123abc", 123},
		{"-5", -5},
		{"+7", 7},
		{"abc", 0},
		{"", 0},
		{"   ", 0},
	}
	for _, tt := range tests {
		if got := parseInt64(tt.in); got != tt.want {
			t.Errorf("parseInt64(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
