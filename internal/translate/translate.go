// Package translate provides the English-to-Amharic translation layer:
// language code mapping, text normalization and splitting, model
// backends, and batched translation with retry.
package translate

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/language"
)

const (
	// ModelMaxChars is the per-segment character ceiling for the NLLB
	// model; longer input degrades or truncates the translation.
	ModelMaxChars = 512
)

// Translator translates a batch of text segments. The output has one
// translation per input, in the same order.
type Translator interface {
	Translate(ctx context.Context, texts []string) ([]string, error)
	Name() string
}

// ProgressCallback reports translation progress as segments complete.
type ProgressCallback func(completed, total int, message string)

// NLLBCode maps a BCP-47 language tag to the NLLB language code, e.g.
// "en" to "eng_Latn" and "am" to "amh_Ethi".
func NLLBCode(tag string) (string, error) {
	t, err := language.Parse(tag)
	if err != nil {
		return "", fmt.Errorf("invalid language tag %q: %w", tag, err)
	}

	base, _ := t.Base()
	script, _ := t.Script()
	return base.ISO3() + "_" + script.String(), nil
}

// CleanText normalizes extracted text before translation: collapses
// runs of whitespace to single spaces and drops control characters.
func CleanText(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))

	inSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			inSpace = true
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		if inSpace && sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		inSpace = false
		sb.WriteRune(r)
	}
	return sb.String()
}

// SplitText splits text into segments of at most maxChars characters,
// breaking on word boundaries. A single word longer than maxChars
// becomes its own segment rather than being cut mid-word.
func SplitText(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = ModelMaxChars
	}
	if len(text) <= maxChars {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []string{text}
	}

	var segments []string
	var current strings.Builder

	for _, word := range strings.Fields(text) {
		if current.Len() > 0 && current.Len()+1+len(word) > maxChars {
			segments = append(segments, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		segments = append(segments, current.String())
	}
	return segments
}
