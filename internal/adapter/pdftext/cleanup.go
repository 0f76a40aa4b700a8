package pdftext

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// glyphReplacer maps the (cid:N) placeholders emitted for Vietnamese glyphs
// missing from the embedded font's ToUnicode table.
var glyphReplacer = strings.NewReplacer(
	"(cid:264)", "Đ",
	"(cid:255)", "đ",
	"(cid:105)", "á",
	"(cid:106)", "à",
	"(cid:107)", "â",
	"(cid:109)", "ã",
	"(cid:116)", "í",
	"(cid:117)", "ì",
	"(cid:121)", "ó",
	"(cid:122)", "ò",
	"(cid:123)", "ô",
)

var (
	controlReplacer = strings.NewReplacer("\x00", "", "\ufeff", "")
	blankLinesRe    = regexp.MustCompile(`\n\s*\n`)
	spacesRe        = regexp.MustCompile(` +`)
)

// Clean normalises converter output before contact extraction.
func Clean(text string) string {
	if text == "" {
		return ""
	}
	text = controlReplacer.Replace(text)
	text = glyphReplacer.Replace(text)
	text = norm.NFC.String(text)
	text = blankLinesRe.ReplaceAllString(text, "\n\n")
	text = spacesRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
