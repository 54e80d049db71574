// Package render turns a conversation flow into a Markdown document.
//
// Output is deterministic for a given record and flow: the only line that
// varies between runs is the trailing generation timestamp, which comes from
// Renderer.Now.
package render

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/MikeSquared-Agency/convexport/internal/conversation"
	"github.com/MikeSquared-Agency/convexport/internal/flow"
)

const untitled = "Untitled conversation"

// Renderer writes conversation flows as Markdown.
type Renderer struct {
	// Now stamps the trailing generation line. Defaults to time.Now.
	Now    func() time.Time
	Logger flow.Logger
}

// New creates a renderer logging to log (nil for none).
func New(log flow.Logger) *Renderer {
	return &Renderer{Now: time.Now, Logger: log}
}

// Render produces the document for rec from its flow.
func (r *Renderer) Render(rec *conversation.ConversationRecord, f flow.ConversationFlow) []byte {
	log := flow.OrNop(r.Logger)
	b := &docBuilder{}

	sections := Sections(f)
	writeHeader(b, rec, f, sections)
	for _, e := range f.Entries {
		writeEntry(b, e, log)
	}

	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	b.linef("*Generated: %s*", now().Format(TimeLayout))

	log.Log(fmt.Sprintf("rendered %q: %d sections from %d entries (%s)", rec.Title, sections, len(f.Entries), f.Policy))
	return b.bytes()
}

func writeHeader(b *docBuilder, rec *conversation.ConversationRecord, f flow.ConversationFlow, sections int) {
	title := strings.TrimSpace(rec.Title)
	if title == "" {
		title = untitled
	}
	b.linef("# %s", title)
	b.blank()
	b.linef("- **ID**: `%s`", rec.ID)
	b.linef("- **Created**: %s", FormatTimestamp(rec.CreatedAt))
	b.linef("- **Updated**: %s", FormatTimestamp(rec.UpdatedAt))
	b.linef("- **Messages**: %d", sections)
	if f.Policy == flow.PolicyLinearChain {
		b.linef("- **Branches**: %d", len(f.Chains))
	}
	b.blank()
	b.rule()
}

// Sections counts the entries of f that produce at least one section.
func Sections(f flow.ConversationFlow) int {
	n := 0
	for _, e := range f.Entries {
		if renders(e) {
			n++
		}
	}
	return n
}

// renders reports whether an entry produces at least one section.
func renders(e flow.FlowEntry) bool {
	if e.Node == nil {
		return false
	}
	if !e.Node.Message.HasFragments() {
		return e.Content.Text != ""
	}
	return (e.IsUser && e.Content.UserQuestion != "") || e.IsAI
}

func writeEntry(b *docBuilder, e flow.FlowEntry, log flow.Logger) {
	if !renders(e) {
		return
	}
	n := e.Node
	b.linef(`<a id="%s"></a>`, Anchor(n.RefID().String()))
	b.blank()

	if !n.Message.HasFragments() {
		writeSimple(b, e)
		return
	}
	if e.IsUser && e.Content.UserQuestion != "" {
		writeUser(b, e, log)
	}
	if e.IsAI {
		writeAI(b, e, log)
	}
}

func writeUser(b *docBuilder, e flow.FlowEntry, log flow.Logger) {
	c := e.Content
	b.line("## User")
	b.blank()
	b.para(c.UserQuestion)

	// Search results belong to the AI section when the node has one.
	if !e.IsAI {
		writeSearch(b, c.Search, log)
	}
	writeFiles(b, c.Files)

	footer := []string{fmt.Sprintf("Node `%s`", e.Node.RefID())}
	if ts := insertedAt(e.Node); ts != "" {
		footer = append(footer, ts)
	}
	writeFooter(b, e.Node, footer)
}

func writeAI(b *docBuilder, e flow.FlowEntry, log flow.Logger) {
	c := e.Content
	b.line("## Assistant")
	b.blank()
	writeSearch(b, c.Search, log)

	for i, p := range flow.Pairs(c.Thoughts, c.Responses) {
		if i > 0 {
			b.line("* * *")
			b.blank()
		}
		if p.Thought != nil {
			b.line("**Thinking**")
			b.blank()
			b.quote(*p.Thought)
		}
		if p.Response != nil {
			b.para(*p.Response)
		}
	}

	footer := []string{fmt.Sprintf("Node `%s`", e.Node.RefID())}
	if m := e.Node.Message.Model; m != "" {
		footer = append(footer, fmt.Sprintf("Model `%s`", m))
	}
	if ts := insertedAt(e.Node); ts != "" {
		footer = append(footer, ts)
	}
	writeFooter(b, e.Node, footer)
}

func writeSimple(b *docBuilder, e flow.FlowEntry) {
	msg := e.Node.Message
	b.linef("## %s", roleLabel(msg.Role))
	b.blank()
	b.para(e.Content.Text)

	footer := []string{fmt.Sprintf("Node `%s`", e.Node.RefID())}
	if msg.Model != "" {
		footer = append(footer, fmt.Sprintf("Model `%s`", msg.Model))
	}
	if ts := insertedAt(e.Node); ts != "" {
		footer = append(footer, ts)
	}
	writeFooter(b, e.Node, footer)
}

func writeFooter(b *docBuilder, n *conversation.Node, parts []string) {
	b.linef("<sub>%s</sub>", strings.Join(parts, " · "))
	b.blank()
	writeCrossRef(b, n)
	b.rule()
}

// writeCrossRef links a node section to its parent and children. The
// synthetic "root" parent has no section, so it is printed without a link.
func writeCrossRef(b *docBuilder, n *conversation.Node) {
	var refs []string
	if n.Parent.Valid {
		if n.Parent.Value == "root" {
			refs = append(refs, "**Parent**: root")
		} else {
			refs = append(refs, "**Parent**: "+link(n.Parent.Value))
		}
	}
	if len(n.Children) > 0 {
		links := make([]string, len(n.Children))
		for i, c := range n.Children {
			links[i] = link(c)
		}
		refs = append(refs, "**Children**: "+strings.Join(links, ", "))
	}
	if len(refs) > 0 {
		b.para(strings.Join(refs, " | "))
	}
}

func link(id string) string {
	return fmt.Sprintf("[%s](#%s)", id, Anchor(id))
}

func writeSearch(b *docBuilder, results []conversation.SearchResult, log flow.Logger) {
	if len(results) == 0 {
		return
	}
	b.line("**Search results**")
	b.blank()
	for i, r := range flow.SortSearchResults(results, log) {
		title := r.Title
		if title == "" {
			title = r.URL
		}
		if r.URL != "" {
			title = fmt.Sprintf("[%s](%s)", title, r.URL)
		}

		var meta []string
		if r.SiteName != "" {
			meta = append(meta, r.SiteName)
		}
		if r.PublishedAt > 0 {
			meta = append(meta, time.Unix(r.PublishedAt, 0).UTC().Format("2006-01-02"))
		}
		if title != "" {
			meta = append(meta, title)
		}
		b.linef("%d. %s", i+1, strings.Join(meta, " · "))
		if s := strings.TrimSpace(r.Snippet); s != "" {
			b.line("   > " + strings.Join(strings.Fields(s), " "))
		}
	}
	b.blank()
}

func writeFiles(b *docBuilder, files []conversation.FileAttachment) {
	if len(files) == 0 {
		return
	}
	b.line("**Attachments**")
	b.blank()
	for _, f := range files {
		b.linef("- `%s` %s", f.ID, f.FileName)
		b.blank()
		if f.Content != "" {
			b.fence(LanguageFor(f.FileName), f.Content)
		}
	}
}

func insertedAt(n *conversation.Node) string {
	if n.Message == nil || n.Message.InsertedAt == "" {
		return ""
	}
	return FormatTimestamp(n.Message.InsertedAt)
}

func roleLabel(role string) string {
	switch role {
	case "user":
		return "User"
	case "assistant":
		return "Assistant"
	case "system":
		return "System"
	case "tool":
		return "Tool"
	case "":
		return "Unknown"
	default:
		runes := []rune(role)
		runes[0] = unicode.ToUpper(runes[0])
		return string(runes)
	}
}
