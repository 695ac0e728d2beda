package orgs

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxSlugBase = 48

// letters that carry no combining mark and so survive decomposition
var foldReplacer = strings.NewReplacer(
	"ß", "ss", "ẞ", "SS",
	"æ", "ae", "Æ", "AE",
	"œ", "oe", "Œ", "OE",
	"ø", "o", "Ø", "O",
	"ł", "l", "Ł", "L",
	"đ", "d", "Đ", "D",
	"ð", "d", "Ð", "D",
	"þ", "th", "Þ", "TH",
	"ı", "i", "ħ", "h", "Ħ", "H",
)

// FoldASCII replaces accented letters with their ASCII base letter, so "Ærøskøbing Šťastný"
// becomes "AEroskobing Stastny". Characters with no ASCII base are kept.
func FoldASCII(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, foldReplacer.Replace(s))
	if err != nil {
		return s
	}
	return out
}

// Slugify derives an organization slug from its name. The base is the folded, lowercased name
// with every run of other characters collapsed to a single dash; the suffix is the creation time
// in base36 milliseconds.
func Slugify(name string, created time.Time) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(FoldASCII(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}

	base := strings.TrimRight(b.String(), "-")
	if len(base) > maxSlugBase {
		base = strings.TrimRight(base[:maxSlugBase], "-")
	}
	if base == "" {
		base = "org"
	}

	return base + "-" + strconv.FormatInt(created.UnixMilli(), 36)
}
