package models

import (
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/quotedprintable"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// Header bytes are stored verbatim in the database. Decoding to UTF-8 happens
// only on the way out, when rendering for HTML export or the web browser.

// encodedWordRE matches RFC 2047 encoded-words: =?charset?encoding?text?=
var encodedWordRE = regexp.MustCompile(`=\?([^?]+)\?([QqBb])\?([^?]*)\?=`)

// DecodeHeaderText converts a raw header value to valid UTF-8 for display.
// MIME encoded-words are decoded, including charsets Go's mime.WordDecoder
// does not know; anything still invalid is treated as Latin-1.
func DecodeHeaderText(text string) string {
	dec := mime.WordDecoder{}
	decoded, err := dec.DecodeHeader(text)
	if err != nil {
		decoded = decodeEncodedWords(text)
	}

	if utf8.ValidString(decoded) {
		return decoded
	}

	// Legacy posts without encoded-words are almost always Latin-1.
	result, _, err := transform.String(charmap.ISO8859_1.NewDecoder(), decoded)
	if err != nil {
		return strings.ToValidUTF8(decoded, "�")
	}
	return result
}

// decodeEncodedWords handles encoded-words whose charset the standard decoder
// rejects, such as iso-8859-15 or the windows-125x family.
func decodeEncodedWords(text string) string {
	return encodedWordRE.ReplaceAllStringFunc(text, func(match string) string {
		parts := encodedWordRE.FindStringSubmatch(match)
		if len(parts) != 4 {
			return match
		}
		charset := parts[1]
		encoding := strings.ToUpper(parts[2])
		payload := parts[3]

		var raw []byte
		var err error
		switch encoding {
		case "B":
			raw, err = base64.StdEncoding.DecodeString(payload)
		case "Q":
			// Q-encoding uses underscore for space.
			qp := strings.ReplaceAll(payload, "_", " ")
			raw, err = io.ReadAll(quotedprintable.NewReader(strings.NewReader(qp)))
		default:
			return match
		}
		if err != nil {
			return match
		}

		out, err := decodeCharset(raw, charset)
		if err != nil {
			if latin1, _, err2 := transform.String(charmap.ISO8859_1.NewDecoder(), string(raw)); err2 == nil {
				return latin1
			}
			return strings.ToValidUTF8(string(raw), "�")
		}
		return out
	})
}

// decodeCharset converts raw bytes from the named charset to UTF-8 using the
// htmlindex tables, which cover far more charsets than the standard library.
func decodeCharset(data []byte, charset string) (string, error) {
	name := normalizeCharset(charset)
	if name == "utf-8" {
		return string(data), nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return "", fmt.Errorf("unsupported charset %q", charset)
	}
	if enc == nil {
		return string(data), nil
	}
	result, _, err := transform.String(enc.NewDecoder(), string(data))
	if err != nil {
		return "", fmt.Errorf("decode %q: %v", charset, err)
	}
	return result, nil
}

func normalizeCharset(charset string) string {
	name := strings.ToLower(strings.TrimSpace(charset))
	switch name {
	case "utf8", "utf-8":
		return "utf-8"
	case "iso8859-1", "iso_8859-1", "latin1", "latin-1":
		return "iso-8859-1"
	case "iso8859-15", "iso_8859-15", "latin9", "latin-9":
		return "iso-8859-15"
	case "cp1250", "win1250":
		return "windows-1250"
	case "cp1251", "win1251":
		return "windows-1251"
	case "cp1252", "win1252":
		return "windows-1252"
	case "us-ascii", "ascii":
		// windows-1252 is a superset of ASCII
		return "windows-1252"
	default:
		return name
	}
}
