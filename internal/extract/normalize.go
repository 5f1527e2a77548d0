package extract

import (
	"regexp"
	"strings"
)

var (
	reWhitespaceRun = regexp.MustCompile(`\s+`)
	reHyphenBreak   = regexp.MustCompile(`(\w)-\s+(\w)`)
	reBlankRun      = regexp.MustCompile(`\n\s*\n`)
	reKeyValue      = regexp.MustCompile(`(\w):(\w)`)
	rePipeSep       = regexp.MustCompile(`\|\s*`)
)

// Normalize cleans PDF- and OCR-derived text so it parses like the plain-text
// document format. Plain .txt input is never normalized. Rules apply in
// order: collapse whitespace runs, rejoin hyphen-broken words, collapse blank
// lines, restore "key: value" spacing, canonicalize pipe separators.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = reWhitespaceRun.ReplaceAllString(s, " ")
	s = reHyphenBreak.ReplaceAllString(s, "$1$2")
	s = reBlankRun.ReplaceAllString(s, "\n")
	s = reKeyValue.ReplaceAllString(s, "$1: $2")
	s = rePipeSep.ReplaceAllString(s, " | ")
	return strings.TrimSpace(s)
}
