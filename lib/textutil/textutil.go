package textutil

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
)

// Canonicalize produces the site's canonical form of a nation or region
// name: "Testlandia One" becomes "testlandia_one".
func Canonicalize(name string) string {
	name = strings.ToLower(name)
	name = strings.TrimSpace(name)
	return strings.ReplaceAll(name, " ", "_")
}

// Closest returns the candidate most similar to `name`, or "" when nothing
// is remotely similar.
func Closest(name string, candidates []string) string {
	var best string
	var bestScore float64
	for _, c := range candidates {
		score := matchr.JaroWinkler(name, c, false)
		if score > bestScore {
			bestScore = score
			best = c
		}
	}
	if bestScore < 0.7 {
		return ""
	}
	return best
}

// EncodeLatin1 returns the ISO-8859-1 bytes of s, replacing characters
// outside of it with a decimal character reference. The site stores
// factbook text this way.
func EncodeLatin1(s string) string {
	var out strings.Builder
	for _, r := range s {
		if r < 0x100 {
			out.WriteByte(byte(r))
			continue
		}
		out.WriteString(fmt.Sprintf("&#%d;", r))
	}
	return out.String()
}

// IsAlnumSpace reports whether s holds only letters, digits and spaces.
func IsAlnumSpace(s string) bool {
	for _, r := range s {
		if r == ' ' {
			continue
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
