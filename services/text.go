package services

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	ligatures = strings.NewReplacer(
		"ﬁ", "fi",
		"ﬂ", "fl",
		"ﬀ", "ff",
		"ﬃ", "ffi",
		"ﬄ", "ffl",
	)
	inlineSpace  = regexp.MustCompile("[ \t\f\v\u00A0]+")
	manyNewlines = regexp.MustCompile(`\n{3,}`)
)

// cleanText normalisiert Freitext (Beschreibung, Kommentar): NFC, Ligaturen,
// Steuerzeichen entfernen, Leerraum zusammenfassen, höchstens eine Leerzeile.
func cleanText(s string) string {
	s = ligatures.Replace(s)
	s, _, _ = transform.String(norm.NFC, s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.Map(func(r rune) rune {
		if r != '\n' && r != '\t' && unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	s = inlineSpace.ReplaceAllString(s, " ")
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	s = manyNewlines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(s)
}

// cleanLine wie cleanText, aber einzeilig (Titel).
func cleanLine(s string) string {
	return strings.Join(strings.Fields(cleanText(s)), " ")
}
