// Package sanitize cleans text extracted from the detail panel. The
// source site serves private-use glyphs for icons and the occasional
// mis-decoded byte run, both of which survive textContent extraction
// and corrupt addresses, phone numbers and opening hours.
package sanitize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Field selects the cleanup rules applied to a raw string. Rules are
// field-specific: the phone whitelist must not be applied to an
// address and vice versa.
type Field int

const (
	// Text is the general rule set for titles, addresses, categories,
	// descriptions and service options.
	Text Field = iota
	// Phone keeps only characters that can appear in a phone number.
	Phone
	// Hours normalizes opening-hours strings.
	Hours
)

// Icon glyphs from the site's private-use font, as they appear after
// being mangled through a Latin-1 round trip.
var iconGlyphs = strings.NewReplacer(
	"î‚°", "",
	"î‚¯", "",
	"îƒˆ", "",
	"î", "",
	"ƒˆ", "",
	"‚°", "",
)

// Separator glyphs seen in opening-hours strings (mangled U+22C5 dot
// operator and U+202F narrow space). Replaced with plain spaces so the
// day/time segments stay apart.
var hourSeparators = strings.NewReplacer(
	"â‹…", " ",
	"â€¯", " ",
)

var (
	opensRe  = regexp.MustCompile(`(?i)opens`)
	closesRe = regexp.MustCompile(`(?i)closes`)
)

// Sanitize cleans raw according to the rules for field. It is a pure
// function, never fails, and yields "" for empty input. Applying it
// twice gives the same result as applying it once.
func Sanitize(field Field, raw string) string {
	if raw == "" {
		return ""
	}

	// Glyph sequences must go before decomposition: NFD splits their
	// accented lead bytes apart and the sequences stop matching.
	var s string
	switch field {
	case Hours:
		s = hourSeparators.Replace(raw)
	default:
		s = iconGlyphs.Replace(raw)
	}

	// Decompose and drop combining marks so diacritics mangled by the
	// encoding round trip collapse to their base letters.
	decomposed := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	if clean, _, err := transform.String(decomposed, s); err == nil {
		s = clean
	}

	switch field {
	case Phone:
		s = keep(s, isPhoneRune)
	case Hours:
		s = opensRe.ReplaceAllString(s, "Opens ")
		s = closesRe.ReplaceAllString(s, "Closes ")
	default:
		s = keep(s, isTextRune)
	}

	return strings.Join(strings.Fields(s), " ")
}

func isPhoneRune(r rune) bool {
	return (r >= '0' && r <= '9') ||
		r == '+' || r == '-' || r == '(' || r == ')' ||
		unicode.IsSpace(r)
}

// isTextRune admits printable ASCII plus whitespace. Comma and period
// sit inside the printable range and so survive, matching the source
// behavior of preserving sentence punctuation.
func isTextRune(r rune) bool {
	return (r >= 0x20 && r <= 0x7e) || unicode.IsSpace(r)
}

func keep(s string, ok func(rune) bool) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if ok(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
