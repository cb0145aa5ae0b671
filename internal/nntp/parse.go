package nntp

import (
	"strings"
)

// OverviewLine is one parsed XOVER response line. The seven header fields
// follow the overview format order; missing trailing fields stay empty.
type OverviewLine struct {
	ArtNum     int64
	Subject    string
	From       string
	Date       string
	MessageID  string
	References string
	Bytes      int64
	Lines      int64
}

// ArticleHeaders are the ingested fields of one HEAD response.
type ArticleHeaders struct {
	Subject    string
	From       string
	Date       string
	MessageID  string
	References string
	Bytes      int64
	Lines      int64
}

// ParseOverviewLine splits one XOVER line on tabs. News servers in the wild
// pad numeric fields or omit trailing ones, so every field parses leniently
// and absent fields default to empty or zero.
func ParseOverviewLine(line string) OverviewLine {
	fields := strings.Split(line, "\t")
	get := func(i int) string {
		if i < len(fields) {
			return fields[i]
		}
		return ""
	}
	return OverviewLine{
		ArtNum:     parseInt64(get(0)),
		Subject:    get(1),
		From:       get(2),
		Date:       get(3),
		MessageID:  get(4),
		References: get(5),
		Bytes:      parseInt64(get(6)),
		Lines:      parseInt64(get(7)),
	}
}

// ParseHeaderBlock extracts the ingested header fields from the raw lines of
// a HEAD response. Header names match case-insensitively and folded
// continuation lines are appended to the preceding header with the fold
// whitespace collapsed to one space.
func ParseHeaderBlock(lines []string) ArticleHeaders {
	var h ArticleHeaders
	// last points at the field a continuation line extends, nil when the
	// previous header was not one we keep.
	var last *string
	for _, line := range lines {
		if len(line) > 0 && (line[0] == ' ' || line[0] == '\t') {
			if last != nil {
				*last = *last + " " + strings.TrimLeft(line, " \t")
			}
			continue
		}
		switch {
		case hasHeader(line, "Subject:"):
			h.Subject = headerValue(line, "Subject:")
			last = &h.Subject
		case hasHeader(line, "From:"):
			h.From = headerValue(line, "From:")
			last = &h.From
		case hasHeader(line, "Date:"):
			h.Date = headerValue(line, "Date:")
			last = &h.Date
		case hasHeader(line, "Message-ID:"):
			h.MessageID = headerValue(line, "Message-ID:")
			last = &h.MessageID
		case hasHeader(line, "References:"):
			h.References = headerValue(line, "References:")
			last = &h.References
		case hasHeader(line, "Bytes:"):
			h.Bytes = parseInt64(headerValue(line, "Bytes:"))
			last = nil
		case hasHeader(line, "Lines:"):
			h.Lines = parseInt64(headerValue(line, "Lines:"))
			last = nil
		default:
			last = nil
		}
	}
	return h
}

func hasHeader(line, prefix string) bool {
	return len(line) >= len(prefix) && strings.EqualFold(line[:len(prefix)], prefix)
}

// headerValue returns the text after the header name with at most one leading
// space removed. Further whitespace belongs to the stored value.
func headerValue(line, prefix string) string {
	v := line[len(prefix):]
	if len(v) > 0 && v[0] == ' ' {
		v = v[1:]
	}
	return v
}

// parseInt64 parses an integer the way C's atoi does: skip leading
// whitespace, take an optional sign, consume the digit prefix and ignore the
// rest. Anything without a leading digit yields 0.
func parseInt64(s string) int64 {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	neg := false
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		neg = s[i] == '-'
		i++
	}
	var n int64
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		n = n*10 + int64(s[i]-'0')
		i++
	}
	if neg {
		return -n
	}
	return n
}
