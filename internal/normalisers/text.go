// Package normalisers cleans raw document text before chunking.
package normalisers

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/jithsungh/wisebot/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.TextNormaliser = (*TextNormaliser)(nil)

var (
	urlPattern        = regexp.MustCompile(`(?i)(?:[a-z][a-z0-9+.\-]*://|www\.)\S*`)
	emailPattern      = regexp.MustCompile(`\S+@\S+`)
	tagPattern        = regexp.MustCompile(`<[^<>]*?>`)
	bulletPattern     = regexp.MustCompile(`[\x{2022}\x{2023}\x{25E6}\x{2043}\x{2219}\x{2013}\x{2014}\-]`)
	disallowedPattern = regexp.MustCompile(`[^A-Za-z0-9.,;:!?()\- \t\n\r]`)
	spacePattern      = regexp.MustCompile(`\s+`)
)

// maxPasses bounds the fixed-point loop; each pass only removes text.
const maxPasses = 8

// Options configures a TextNormaliser.
type Options struct {
	// Lowercase folds the result to lower case.
	Lowercase bool
}

// DefaultOptions lowercases output.
func DefaultOptions() Options {
	return Options{Lowercase: true}
}

// TextNormaliser applies the cleaning pipeline:
// NFKC, strip URLs, emails and tags, mark bullets, drop disallowed
// characters, collapse whitespace, optional lowercase.
type TextNormaliser struct {
	opts Options
}

// NewTextNormaliser creates a normaliser with the given options.
func NewTextNormaliser(opts Options) *TextNormaliser {
	return &TextNormaliser{opts: opts}
}

// Normalise returns the cleaned text. The result is a fixed point:
// normalising it again yields the same string.
func (n *TextNormaliser) Normalise(text string) string {
	out := n.pass(text)
	for i := 0; i < maxPasses; i++ {
		next := n.pass(out)
		if next == out {
			break
		}
		out = next
	}
	return out
}

// pass runs the pipeline once. Stripping can expose new matches
// (a tag inside a URL, an upper-case scheme), hence the loop above.
func (n *TextNormaliser) pass(text string) string {
	if text == "" {
		return ""
	}

	text = norm.NFKC.String(text)
	text = urlPattern.ReplaceAllString(text, " ")
	text = emailPattern.ReplaceAllString(text, " ")
	text = tagPattern.ReplaceAllString(text, " ")
	text = bulletPattern.ReplaceAllString(text, " - ")

	// Decompose so accented letters keep their base character.
	text = norm.NFKD.String(text)
	text = disallowedPattern.ReplaceAllString(text, "")

	text = spacePattern.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)

	if n.opts.Lowercase {
		text = strings.ToLower(text)
	}
	return text
}
