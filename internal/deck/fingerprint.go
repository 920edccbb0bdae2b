package deck

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// Normalize joins a prompt and answer after trimming, lower-casing and
// normalising line endings of each.
func Normalize(prompt, answer string) string {
	normalizePart := func(part string) string {
		p := strings.ToLower(part)
		p = strings.TrimSpace(p)
		p = strings.ReplaceAll(p, "\r\n", "\n")
		return p
	}

	// The newline keeps "ab"+"c" and "a"+"bc" apart.
	return normalizePart(prompt) + "\n" + normalizePart(answer)
}

// Fingerprint identifies a question by content so that importing the same
// deck twice does not duplicate it.
func Fingerprint(prompt, answer string) string {
	sum := sha256.Sum256([]byte(Normalize(prompt, answer)))
	return fmt.Sprintf("%x", sum)
}

// Fingerprint returns the content fingerprint of the card.
func (c Card) Fingerprint() string {
	return Fingerprint(c.Prompt, c.Answer)
}
