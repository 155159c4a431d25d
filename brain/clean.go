package brain

import (
	"regexp"
	"strings"
)

// Models sometimes emit emojis and markdown even when told not to.
// Replies are scrubbed before display and persistence so neither the
// transcript nor any downstream reader ever sees them.
var (
	// Misc symbols, dingbats, variation selectors, and every astral-plane
	// character, which covers the emoji blocks.
	emojiRE    = regexp.MustCompile(`[\x{2600}-\x{27BF}\x{2B00}-\x{2BFF}\x{FE00}-\x{FE0F}\x{10000}-\x{10FFFF}]+`)
	emphasisRE = regexp.MustCompile(`\*{1,3}([^*\n]+)\*{1,3}`)
	headerRE   = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	spacesRE   = regexp.MustCompile(` {2,}`)
	newlinesRE = regexp.MustCompile(`\n{3,}`)
)

// clean strips decorative markup from a model reply. The result may be
// empty when the reply was nothing but markup; callers fall back to the
// raw text in that case.
func clean(text string) string {
	text = emojiRE.ReplaceAllString(text, "")
	text = emphasisRE.ReplaceAllString(text, "$1")
	text = headerRE.ReplaceAllString(text, "")
	text = spacesRE.ReplaceAllString(text, " ")
	text = newlinesRE.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
