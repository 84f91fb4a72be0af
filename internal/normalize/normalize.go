// Package normalize holds the name normalizers shared by index build and
// query time. A catalog index is only meaningful when the exact same Func
// produced its keys and the query keys, so the Func is always passed around
// explicitly instead of living in package state.
package normalize

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Func maps a raw name to its comparison form.
type Func func(string) string

// Basic trims, lower-cases and strips diacritics. It matches the
// lower(unaccent(...)) treatment MusicBrainz mapping tables use.
func Basic(s string) string {
	return StripDiacritics(strings.ToLower(strings.TrimSpace(s)))
}

// StripDiacritics decomposes s and drops combining marks, so "Björk" and
// "Bjork" compare equal.
func StripDiacritics(s string) string {
	t := norm.NFD.String(s)
	out := make([]rune, 0, len(t))
	for _, r := range t {
		if unicode.IsMark(r) {
			continue
		}
		out = append(out, r)
	}
	return norm.NFC.String(string(out))
}

// ------------------------------------
// Aggressive
// ------------------------------------

var reStripPunctuation = regexp.MustCompile(`[.,:;(){}\[\]'"!?]`)

// replacements run in order, before punctuation is stripped.
var replacements = []struct{ from, to string }{
	{"–", "-"},
	{"—", "-"},
	{"&", " and "},
	{"featuring", " feat "},
	{"feat.", " feat "},
}

// Aggressive does everything Basic does, then folds common spelling variants
// ("&" vs "and", "featuring" vs "feat"), drops punctuation and collapses
// whitespace. It trades some precision for recall on messy user input.
func Aggressive(s string) string {
	s = Basic(s)
	for _, r := range replacements {
		s = strings.ReplaceAll(s, r.from, r.to)
	}
	s = reStripPunctuation.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// ------------------------------------
// Version noise
// ------------------------------------

// versionNoise matches whole release-annotation words only, so "(Alive)" or
// "(Oliver's Theme)" are not mistaken for a "live" tag.
var versionNoise = regexp.MustCompile(`\b(?:` + strings.Join([]string{
	`remaster(?:ed)?`,
	`versions?`,
	`radio edit`,
	`clean edit`,
	`explicit`,
	`instrumental`,
	`remix(?:ed)?`,
	`mix`,
	`demo`,
	`mono`,
	`stereo`,
	`live`,
	`acoustic`,
	`a cappella`,
	`acapella`,
	`single`,
	`bonus track`,
}, "|") + `)\b`)

var (
	reBracketed = regexp.MustCompile(`\([^()]*\)|\[[^\[\]]*\]`)
	reDashTail  = regexp.MustCompile(`\s+-\s+[^-]+$`)
)

func isVersionNoise(s string) bool {
	return versionNoise.MatchString(s)
}

// Versionless drops bracketed or dash-suffixed release annotations such as
// "(Remastered 2009)" or " - Radio Edit" and then applies Aggressive. Only
// annotations that mention a version tag are removed, so "Song (Part 2)"
// keeps its part number.
func Versionless(s string) string {
	s = Basic(s)
	s = reBracketed.ReplaceAllStringFunc(s, func(m string) string {
		if isVersionNoise(m) {
			return " "
		}
		return m
	})
	if tail := reDashTail.FindString(s); tail != "" && isVersionNoise(tail) {
		s = s[:len(s)-len(tail)]
	}
	return Aggressive(s)
}

// ByName resolves a configured normalizer name.
func ByName(name string) (Func, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "basic":
		return Basic, nil
	case "aggressive":
		return Aggressive, nil
	case "versionless":
		return Versionless, nil
	}
	return nil, fmt.Errorf("unknown normalizer %q (want basic, aggressive or versionless)", name)
}
