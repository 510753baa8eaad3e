package driver

import (
	"strings"

	"go.uber.org/zap"
)

// SanitizeText drops characters that have no keyboard representation
// (anything outside printable ASCII plus newline and tab) before the text
// reaches the engine. The skipped count is reported and logged; the engine
// itself treats unmapped characters as pass-through, so this is a courtesy
// filter for sinks that can only inject real keys.
func SanitizeText(text string, logger *zap.Logger) (clean string, skipped int) {
	var b strings.Builder
	b.Grow(len(text))

	for _, r := range text {
		if r == '\n' || r == '\t' || (r >= 0x20 && r < 0x7f) {
			b.WriteRune(r)
			continue
		}
		skipped++
	}

	if skipped > 0 && logger != nil {
		logger.Warn("Skipped characters without a keyboard mapping",
			zap.Int("skipped", skipped))
	}
	return b.String(), skipped
}
