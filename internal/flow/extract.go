package flow

import (
	"strings"

	"github.com/MikeSquared-Agency/convexport/internal/conversation"
)

// Content is what one node contributes to a document.
type Content struct {
	// Typed form.
	UserQuestion string
	Thoughts     []string
	Responses    []string
	Search       []conversation.SearchResult

	// Simple form: parts joined with newlines.
	Text string

	Files []conversation.FileAttachment
}

// Empty reports whether the content has nothing to render.
func (c Content) Empty() bool {
	return c.UserQuestion == "" && len(c.Thoughts) == 0 && len(c.Responses) == 0 &&
		len(c.Search) == 0 && c.Text == "" && len(c.Files) == 0
}

// Extract pulls the renderable units out of a message. A nil message yields
// empty content. A later REQUEST replaces an earlier one; THINK and RESPONSE
// fragments whose trimmed content is empty are dropped.
func Extract(msg *conversation.Message) Content {
	var c Content
	if msg == nil {
		return c
	}

	for _, f := range msg.Fragments {
		switch f.Type {
		case conversation.FragmentRequest:
			c.UserQuestion = f.Content
		case conversation.FragmentThink:
			if strings.TrimSpace(f.Content) != "" {
				c.Thoughts = append(c.Thoughts, f.Content)
			}
		case conversation.FragmentResponse:
			if strings.TrimSpace(f.Content) != "" {
				c.Responses = append(c.Responses, f.Content)
			}
		case conversation.FragmentSearch:
			c.Search = append(c.Search, f.Results...)
		}
	}

	c.Text = FlattenParts(msg)
	c.Files = msg.Files
	return c
}

// FlattenParts joins the simple-form parts of a message, skipping empty ones.
func FlattenParts(msg *conversation.Message) string {
	if msg == nil || len(msg.Parts) == 0 {
		return ""
	}
	parts := make([]string, 0, len(msg.Parts))
	for _, p := range msg.Parts {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "\n")
}

// classify reports whether a message carries a REQUEST fragment and whether
// it carries THINK or RESPONSE fragments.
func classify(msg *conversation.Message) (user, ai bool) {
	if msg == nil {
		return false, false
	}
	for _, f := range msg.Fragments {
		switch f.Type {
		case conversation.FragmentRequest:
			user = true
		case conversation.FragmentThink, conversation.FragmentResponse:
			ai = true
		}
	}
	return user, ai
}
