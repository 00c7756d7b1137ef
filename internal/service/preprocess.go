package service

import "strings"

// ElisionMarker joins the head and tail windows of over-long text.
const ElisionMarker = "\n\n...\n\n"

const (
	DefaultMaxChars = 2000
	DefaultWindow   = 1000
)

// TextPreprocessor normalises extracted text before it is sent to a
// question generator.
type TextPreprocessor struct {
	maxChars int
	window   int
}

// NewTextPreprocessor falls back to the default limits for non-positive
// arguments.
func NewTextPreprocessor(maxChars, window int) *TextPreprocessor {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if 2*window > maxChars {
		window = maxChars / 2
	}
	return &TextPreprocessor{maxChars: maxChars, window: window}
}

// Process collapses whitespace runs to single spaces. Text longer than
// maxChars characters keeps only its first and last window characters,
// joined by ElisionMarker.
func (p *TextPreprocessor) Process(text string) string {
	collapsed := strings.Join(strings.Fields(text), " ")

	runes := []rune(collapsed)
	if len(runes) <= p.maxChars {
		return collapsed
	}

	var b strings.Builder
	b.Grow(len(collapsed))
	b.WriteString(string(runes[:p.window]))
	b.WriteString(ElisionMarker)
	b.WriteString(string(runes[len(runes)-p.window:]))
	return b.String()
}
