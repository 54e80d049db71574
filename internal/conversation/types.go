package conversation

// NodeID identifies a node in a conversation mapping. Export ids arrive as
// strings, numbers or not at all; Valid is false when the id was absent or null.
type NodeID struct {
	Value string
	Valid bool
}

// ID returns a valid NodeID holding s.
func ID(s string) NodeID {
	return NodeID{Value: s, Valid: true}
}

func (id NodeID) String() string {
	if !id.Valid {
		return ""
	}
	return id.Value
}

// ConversationRecord is one entry of an export file.
type ConversationRecord struct {
	ID        string
	Title     string
	CreatedAt string // raw, ISO-8601 or unix seconds depending on the dialect
	UpdatedAt string
	Mapping   Mapping
}

// Mapping is the node-id -> node table of a conversation. Keys keeps the
// order the ids appeared in the export.
type Mapping struct {
	Keys  []string
	Nodes map[string]*Node
}

// Get returns the node stored under key.
func (m Mapping) Get(key string) (*Node, bool) {
	n, ok := m.Nodes[key]
	return n, ok
}

func (m Mapping) Len() int {
	return len(m.Keys)
}

// Node is one mapping entry. A node with a nil Message carries no content
// but may still link its parent to its children.
type Node struct {
	Key      string // key in the mapping
	ID       NodeID
	Parent   NodeID
	Children []string // null entries are dropped
	// NullFirstChild is set when the first children entry was null. A
	// chain walk ends at such a node even if later entries are valid.
	NullFirstChild bool
	Message        *Message
}

// RefID is the id used for ordering and anchors: the node's own id, or its
// mapping key when the node carries none.
func (n *Node) RefID() NodeID {
	if n.ID.Valid {
		return n.ID
	}
	if n.Key != "" {
		return ID(n.Key)
	}
	return NodeID{}
}

// Message is the content payload of a node, in either the simple form
// (Parts) or the typed form (Fragments).
type Message struct {
	Role       string
	Model      string
	InsertedAt string
	Parts      []string
	Fragments  []Fragment
	Files      []FileAttachment
}

// HasFragments reports whether the message uses the typed form.
func (m *Message) HasFragments() bool {
	return m != nil && len(m.Fragments) > 0
}

// FragmentType tags a typed content unit.
type FragmentType string

const (
	FragmentRequest  FragmentType = "REQUEST"
	FragmentThink    FragmentType = "THINK"
	FragmentResponse FragmentType = "RESPONSE"
	FragmentSearch   FragmentType = "SEARCH"
)

// Fragment is a typed sub-unit of a message. Content is empty for SEARCH
// fragments; Results is only populated for them.
type Fragment struct {
	Type    FragmentType
	Content string
	Results []SearchResult
}

// SearchResult is one web search hit attached to a SEARCH fragment.
type SearchResult struct {
	SiteName    string
	Title       string
	URL         string
	Snippet     string
	PublishedAt int64  // unix seconds, 0 when absent
	CiteIndex   string // raw cite_index, empty when absent or falsy
}

// FileAttachment is a file uploaded alongside a message.
type FileAttachment struct {
	ID       string
	FileName string
	Content  string
}
