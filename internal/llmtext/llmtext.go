// Package llmtext parses model output leniently: JSON objects wrapped in prose
// or markdown fences, fenced code blocks and template artifacts.
package llmtext

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// ErrNoJSON is returned when no JSON object can be located in the text.
var ErrNoJSON = errors.New("llmtext: no JSON object found")

// Object returns the span from the first '{' to the last '}'. Models often
// wrap the object in prose or a ```json fence.
func Object(raw string) (string, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end <= start {
		return "", ErrNoJSON
	}
	return raw[start : end+1], nil
}

// DecodeObject locates the JSON object in raw and unmarshals it into v.
func DecodeObject(raw string, v any) error {
	obj, err := Object(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(obj), v); err != nil {
		return fmt.Errorf("llmtext: decode object: %w", err)
	}
	return nil
}

var fenceRE = regexp.MustCompile("(?s)```([\\w#+.-]*)[ \\t]*\\r?\\n(.*?)```")

// Block is one fenced code block.
type Block struct {
	Lang string
	Body string
	// Start and End delimit the whole fence in the source text.
	Start, End int
}

// FirstBlock returns the first fenced code block.
func FirstBlock(text string) (Block, bool) {
	m := fenceRE.FindStringSubmatchIndex(text)
	if m == nil {
		return Block{}, false
	}
	return Block{
		Lang:  strings.ToLower(text[m[2]:m[3]]),
		Body:  strings.TrimRight(text[m[4]:m[5]], " \t\r\n"),
		Start: m[0],
		End:   m[1],
	}, true
}

// FirstBlockOf returns the first fenced block tagged with lang.
func FirstBlockOf(text, lang string) (Block, bool) {
	for _, m := range fenceRE.FindAllStringSubmatchIndex(text, -1) {
		if strings.EqualFold(text[m[2]:m[3]], lang) {
			return Block{
				Lang:  strings.ToLower(text[m[2]:m[3]]),
				Body:  strings.TrimRight(text[m[4]:m[5]], " \t\r\n"),
				Start: m[0],
				End:   m[1],
			}, true
		}
	}
	return Block{}, false
}

// StripFence removes a single surrounding fence, if the whole text is one.
func StripFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if b, ok := FirstBlock(trimmed); ok && b.Start == 0 && b.End == len(trimmed) {
		return b.Body
	}
	return trimmed
}

var (
	placeholderRE = regexp.MustCompile(`\[\$\d+\]|\$\{[^}]*\}`)
	spaceRunRE    = regexp.MustCompile(`[ \t]{2,}`)
	blankRunRE    = regexp.MustCompile(`\n{3,}`)
)

// Clean removes template placeholders (${x}, [$1]) and collapses runs of
// spaces and blank lines. Line structure and leading indentation are kept so
// markdown still renders. Bare $N is kept; it is usually a price.
func Clean(text string) string {
	out := placeholderRE.ReplaceAllString(text, "")
	lines := strings.Split(strings.ReplaceAll(out, "\r\n", "\n"), "\n")
	for i, l := range lines {
		lead := len(l) - len(strings.TrimLeft(l, " \t"))
		lines[i] = l[:lead] + spaceRunRE.ReplaceAllString(strings.TrimRight(l[lead:], " \t"), " ")
	}
	out = blankRunRE.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(out)
}

// Truncate caps s at max runes, appending "..." when cut.
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max]) + "..."
}

// TrimAtSentence caps s at roughly maxChars bytes, cutting at a sentence
// boundary when one falls in the second half.
func TrimAtSentence(s string, maxChars int) string {
	if len(s) <= maxChars {
		return s
	}
	trimmed := s[:maxChars]
	for !utf8.ValidString(trimmed) && len(trimmed) > 0 {
		trimmed = trimmed[:len(trimmed)-1]
	}
	if idx := strings.LastIndexAny(trimmed, ".!?\n"); idx > maxChars/2 {
		trimmed = trimmed[:idx+1]
	}
	return trimmed + " [...]"
}
