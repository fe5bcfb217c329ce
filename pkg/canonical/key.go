package canonical

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	whitespaceRun  = regexp.MustCompile(`\s+`)
	disallowedChar = regexp.MustCompile(`[^a-z0-9_./:\-]`)
	underscoreRun  = regexp.MustCompile(`_+`)
	slashAdjacency = regexp.MustCompile(`_?/_?`)
)

// maxKeyLength is the maximum number of code units a canonical key may
// hold after normalization.
const maxKeyLength = 64

// Key normalizes a raw string into a canonical SEM key fragment. The
// mapping is intentionally many-to-one: callers must not rely on being
// able to recover raw from Key(raw), and collisions resolve as
// last-write-wins at the store layer, never by appending a disambiguating
// suffix here.
func Key(raw string) string {
	s := nfkd(raw)
	s = stripCombiningMarks(s)
	s = strings.ToLower(s)
	s = whitespaceRun.ReplaceAllString(s, "_")
	s = disallowedChar.ReplaceAllString(s, "")
	s = underscoreRun.ReplaceAllString(s, "_")
	s = slashAdjacency.ReplaceAllString(s, "/")
	s = strings.Trim(s, "_")

	if runes := []rune(s); len(runes) > maxKeyLength {
		s = string(runes[:maxKeyLength])
	}
	return s
}

// nfkd applies Unicode Normalization Form KD to every string prior to
// hashing, signing, or id derivation.
func nfkd(s string) string {
	return norm.NFKD.String(s)
}

// stripCombiningMarks drops the combining-mark runes NFKD decomposition
// exposes (e.g. the acute accent left behind after "é" decomposes to
// "e" + U+0301), so accented input collapses onto its base letter.
func stripCombiningMarks(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
