package exporter

import (
	"fmt"
	"io"
	"strings"

	"github.com/MikeSquared-Agency/convexport/internal/conversation"
	"github.com/MikeSquared-Agency/convexport/internal/flow"
)

// Inspect writes the structure of one conversation in an export file: its
// header fields, the traversal policy it would get, and the first limit
// mapping entries in file order. index is 0-based; limit <= 0 means all.
func Inspect(w io.Writer, path string, index, limit int, opts conversation.DecodeOptions) error {
	doc, err := conversation.DecodeFile(path, opts)
	if err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	if index < 0 || index >= len(doc.Records) {
		return fmt.Errorf("conversation %d out of range (file has %d)", index, len(doc.Records))
	}

	rec, err := conversation.ParseRecord(doc.Records[index])
	if err != nil {
		return fmt.Errorf("conversation %d: %w", index, err)
	}

	f := flow.ForRecord(rec, nil).Build(rec)

	fmt.Fprintf(w, "Conversation %d of %d\n", index, len(doc.Records))
	fmt.Fprintf(w, "  id:      %s\n", rec.ID)
	fmt.Fprintf(w, "  title:   %s\n", rec.Title)
	fmt.Fprintf(w, "  created: %s\n", rec.CreatedAt)
	fmt.Fprintf(w, "  updated: %s\n", rec.UpdatedAt)
	fmt.Fprintf(w, "  nodes:   %d\n", rec.Mapping.Len())
	fmt.Fprintf(w, "  policy:  %s (%d entries)\n", f.Policy, len(f.Entries))
	if f.Policy == flow.PolicyLinearChain {
		fmt.Fprintf(w, "  chains:  %v\n", f.Chains)
	}

	keys := rec.Mapping.Keys
	if limit > 0 && limit < len(keys) {
		keys = keys[:limit]
	}
	fmt.Fprintf(w, "\nFirst %d nodes:\n", len(keys))
	for _, key := range keys {
		n, _ := rec.Mapping.Get(key)
		fmt.Fprintf(w, "- %s\n", key)
		if n == nil {
			fmt.Fprintln(w, "    (null)")
			continue
		}
		fmt.Fprintf(w, "    id:       %s\n", describeID(n.ID))
		fmt.Fprintf(w, "    parent:   %s\n", describeID(n.Parent))
		fmt.Fprintf(w, "    children: [%s]\n", strings.Join(n.Children, ", "))
		fmt.Fprintf(w, "    message:  %s\n", describeMessage(n.Message))
	}
	return nil
}

func describeID(id conversation.NodeID) string {
	if !id.Valid {
		return "(none)"
	}
	return fmt.Sprintf("%q", id.Value)
}

func describeMessage(m *conversation.Message) string {
	if m == nil {
		return "(none)"
	}
	var parts []string
	if m.Role != "" {
		parts = append(parts, "role="+m.Role)
	}
	if m.Model != "" {
		parts = append(parts, "model="+m.Model)
	}
	if len(m.Fragments) > 0 {
		types := make([]string, len(m.Fragments))
		for i, frag := range m.Fragments {
			types[i] = string(frag.Type)
		}
		parts = append(parts, "fragments=["+strings.Join(types, ",")+"]")
	}
	if len(m.Parts) > 0 {
		parts = append(parts, fmt.Sprintf("parts=%d", len(m.Parts)))
	}
	if len(m.Files) > 0 {
		parts = append(parts, fmt.Sprintf("files=%d", len(m.Files)))
	}
	if len(parts) == 0 {
		return "(empty)"
	}
	return strings.Join(parts, " ")
}
