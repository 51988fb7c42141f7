package services

import (
	"fmt"
	"regexp"
	"strings"

	"docchat/internal/models"
)

var (
	headerSpacingRe = regexp.MustCompile(`(#{1,6})\s*(.+)`)
	bulletRe        = regexp.MustCompile(`(?m)^\s*[-*]\s+`)
	bareCodeFenceRe = regexp.MustCompile("```\n")
	trailingBlankRe = regexp.MustCompile(`\n{3,}`)
)

// ResponseFormatter cleans up raw model answers for display: markdown
// spacing, list markers, and code fences. Purely cosmetic; the text's
// meaning is never altered.
type ResponseFormatter struct{}

// NewResponseFormatter creates a response formatter
func NewResponseFormatter() *ResponseFormatter {
	return &ResponseFormatter{}
}

// Format applies all cleanup passes to an answer
func (f *ResponseFormatter) Format(text string) string {
	text = f.FormatMarkdown(text)
	text = f.FormatCodeBlocks(text)
	return strings.TrimSpace(text)
}

// FormatMarkdown normalizes header spacing and list markers
func (f *ResponseFormatter) FormatMarkdown(text string) string {
	text = headerSpacingRe.ReplaceAllString(text, "$1 $2")
	text = bulletRe.ReplaceAllString(text, "- ")
	text = trailingBlankRe.ReplaceAllString(text, "\n\n")
	return text
}

// FormatCodeBlocks gives bare code fences a language specifier so
// renderers do not guess
func (f *ResponseFormatter) FormatCodeBlocks(text string) string {
	return bareCodeFenceRe.ReplaceAllString(text, "```text\n")
}

// AddInlineCitations appends a references section listing the verified
// citations below the answer text
func (f *ResponseFormatter) AddInlineCitations(text string, citations []models.Citation) string {
	if len(citations) == 0 {
		return text
	}

	var b strings.Builder
	b.WriteString(text)
	b.WriteString("\n\n---\n**References:**\n")
	for i, c := range citations {
		fmt.Fprintf(&b, "%d. %q", i+1, c.QuotedText)
		if c.LocationHint != "" {
			fmt.Fprintf(&b, " (%s)", c.LocationHint)
		}
		b.WriteString("\n")
	}

	return b.String()
}
