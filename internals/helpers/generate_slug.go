package helper

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const DefaultSlugMaxLen = 160

// stripMarks: "Café Ñandú" -> "Cafe Nandu"
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// GenerateSlug menormalkan string menjadi slug:
// - diakritik dibuang, lower-case
// - spasi & non-alnum jadi "-", collapse, trim
func GenerateSlug(s string) string {
	folded, _, err := transform.String(stripMarks, strings.TrimSpace(s))
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	lastDash := true
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastDash = false
			continue
		}
		if !lastDash {
			b.WriteRune('-')
			lastDash = true
		}
	}
	return cutToLen(strings.Trim(b.String(), "-"), DefaultSlugMaxLen)
}

// SlugWithSuffix: "aljabar" + "x7k2qa" -> "aljabar-x7k2qa"
func SlugWithSuffix(base, suffix string) string {
	suffix = strings.ToLower(strings.TrimSpace(suffix))
	if base == "" {
		return suffix
	}
	return cutToLen(base, DefaultSlugMaxLen-len(suffix)-1) + "-" + suffix
}

// cutToLen memotong string agar panjangnya <= n, lalu trim "-"
func cutToLen(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return strings.Trim(s, "-")
	}
	// jangan potong di tengah rune
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return strings.Trim(s[:n], "-")
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
