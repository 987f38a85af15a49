// Package highlight marks search matches in rendered transcript text.
// Rendered output is full of ANSI escape sequences, so matching runs only
// over the printable spans between them.
package highlight

import (
	"regexp"
	"strings"
)

var ansiCSI = regexp.MustCompile(`\x1b\[[0-?]*[ -/]*[@-~]`)

// Result carries the highlighted text plus the line numbers that contain
// matches, so the viewport can jump between them.
type Result struct {
	Text      string
	Count     int
	LineIndex []int
}

// Apply wraps every case-insensitive occurrence of query in the given style
// function, leaving existing escape sequences intact.
func Apply(input, query string, wrap func(string) string) Result {
	query = strings.TrimSpace(query)
	if query == "" {
		return Result{Text: input}
	}
	if wrap == nil {
		wrap = func(s string) string { return s }
	}

	var out strings.Builder
	var lineIndex []int
	total := 0

	for lineNo, line := range strings.SplitAfter(input, "\n") {
		trailing := ""
		if strings.HasSuffix(line, "\n") {
			line = strings.TrimSuffix(line, "\n")
			trailing = "\n"
		}

		marked, count := markLine(line, query, wrap)
		out.WriteString(marked)
		out.WriteString(trailing)

		if count > 0 {
			lineIndex = append(lineIndex, lineNo)
			total += count
		}
	}

	return Result{Text: out.String(), Count: total, LineIndex: lineIndex}
}

// markLine highlights matches within one line, skipping over any ANSI
// escape sequences so styling bytes are never rewrapped.
func markLine(line, query string, wrap func(string) string) (string, int) {
	escapes := ansiCSI.FindAllStringIndex(line, -1)
	if len(escapes) == 0 {
		return markPlain(line, query, wrap)
	}

	var out strings.Builder
	total := 0
	pos := 0
	for _, esc := range escapes {
		if esc[0] > pos {
			marked, count := markPlain(line[pos:esc[0]], query, wrap)
			out.WriteString(marked)
			total += count
		}
		out.WriteString(line[esc[0]:esc[1]])
		pos = esc[1]
	}
	if pos < len(line) {
		marked, count := markPlain(line[pos:], query, wrap)
		out.WriteString(marked)
		total += count
	}
	return out.String(), total
}

func markPlain(s, query string, wrap func(string) string) (string, int) {
	if s == "" {
		return s, 0
	}
	lower := strings.ToLower(s)
	q := strings.ToLower(query)
	if !strings.Contains(lower, q) {
		return s, 0
	}

	var out strings.Builder
	count := 0
	start := 0
	for {
		rel := strings.Index(lower[start:], q)
		if rel < 0 {
			out.WriteString(s[start:])
			return out.String(), count
		}
		idx := start + rel
		end := idx + len(q)
		out.WriteString(s[start:idx])
		out.WriteString(wrap(s[idx:end]))
		count++
		start = end
	}
}
