package render

import (
	"fmt"
	"strings"
)

// docBuilder accumulates document lines. It only ever appends; sections
// write into the builder they are handed and return nothing.
type docBuilder struct {
	lines []string
}

func (b *docBuilder) line(s string) {
	b.lines = append(b.lines, s)
}

func (b *docBuilder) linef(format string, args ...any) {
	b.lines = append(b.lines, fmt.Sprintf(format, args...))
}

func (b *docBuilder) blank() {
	b.lines = append(b.lines, "")
}

// para writes text followed by a blank line.
func (b *docBuilder) para(text string) {
	b.line(strings.TrimRight(text, "\n"))
	b.blank()
}

// quote writes text as a block quote, one "> " prefix per line.
func (b *docBuilder) quote(text string) {
	for _, l := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		if strings.TrimSpace(l) == "" {
			b.line(">")
			continue
		}
		b.line("> " + l)
	}
	b.blank()
}

func (b *docBuilder) fence(lang, body string) {
	f := fenceFor(body)
	b.line(f + lang)
	b.line(strings.TrimRight(body, "\n"))
	b.line(f)
	b.blank()
}

func (b *docBuilder) rule() {
	b.line("---")
	b.blank()
}

func (b *docBuilder) bytes() []byte {
	return []byte(strings.Join(b.lines, "\n") + "\n")
}
