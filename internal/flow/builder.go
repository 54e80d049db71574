package flow

import (
	"fmt"

	"github.com/MikeSquared-Agency/convexport/internal/conversation"
)

// Policy names, as reported on a built flow.
const (
	PolicyLinearChain  = "linear-chain"
	PolicyFragmentScan = "fragment-scan"
)

// rootKey is the synthetic mapping entry some exports use as the tree root.
const rootKey = "root"

// FlowEntry is one node of a conversation flow with its extracted content.
type FlowEntry struct {
	Node    *conversation.Node
	Content Content
	IsUser  bool
	IsAI    bool
}

// ConversationFlow is the ordered rendering sequence derived from a mapping.
type ConversationFlow struct {
	Policy  string
	Entries []FlowEntry
	Chains  []int // entries per root chain, linear-chain policy only
}

// FlowBuilder turns a conversation mapping into a flow.
type FlowBuilder interface {
	Build(rec *conversation.ConversationRecord) ConversationFlow
}

// ForRecord picks the traversal policy from the message shape: any node with
// typed fragments selects FragmentScan, otherwise LinearChain.
func ForRecord(rec *conversation.ConversationRecord, log Logger) FlowBuilder {
	for _, key := range rec.Mapping.Keys {
		if n := rec.Mapping.Nodes[key]; n != nil && n.Message.HasFragments() {
			return FragmentScan{Logger: log}
		}
	}
	return LinearChain{Logger: log}
}

// LinearChain follows the first child of every node, starting from each node
// whose parent is null. Alternate children are not visited.
type LinearChain struct {
	Logger Logger
}

func (b LinearChain) Build(rec *conversation.ConversationRecord) ConversationFlow {
	log := OrNop(b.Logger)
	f := ConversationFlow{Policy: PolicyLinearChain}

	var roots []string
	for _, key := range rec.Mapping.Keys {
		if n := rec.Mapping.Nodes[key]; n != nil && !n.Parent.Valid {
			roots = append(roots, key)
		}
	}
	log.Log(fmt.Sprintf("linear chain: %d nodes, %d roots", rec.Mapping.Len(), len(roots)))

	visited := make(map[string]bool, rec.Mapping.Len())
	for _, root := range roots {
		count := 0
		current := root
		for current != "" {
			node, ok := rec.Mapping.Get(current)
			if !ok {
				break
			}
			if visited[current] {
				log.Log(fmt.Sprintf("linear chain: cycle at node %q, stopping chain", current))
				break
			}
			visited[current] = true

			f.Entries = append(f.Entries, simpleEntry(node))
			count++

			current = ""
			if !node.NullFirstChild && len(node.Children) > 0 {
				current = node.Children[0]
			}
		}
		if count > 0 {
			f.Chains = append(f.Chains, count)
		}
	}

	return f
}

func simpleEntry(node *conversation.Node) FlowEntry {
	e := FlowEntry{Node: node, Content: Extract(node.Message)}
	if node.Message == nil {
		return e
	}
	switch node.Message.Role {
	case "user":
		e.IsUser = true
	case "assistant", "tool":
		e.IsAI = true
	}
	return e
}

// FragmentScan selects every node carrying REQUEST, THINK or RESPONSE
// fragments and orders them by node id. Child pointers are not used for
// ordering, so partially linked mappings still produce a complete flow.
type FragmentScan struct {
	Logger Logger
}

func (b FragmentScan) Build(rec *conversation.ConversationRecord) ConversationFlow {
	log := OrNop(b.Logger)
	f := ConversationFlow{Policy: PolicyFragmentScan}

	for _, key := range rec.Mapping.Keys {
		if key == rootKey {
			continue
		}
		node := rec.Mapping.Nodes[key]
		if node == nil {
			continue
		}
		user, ai := classify(node.Message)
		if !user && !ai {
			continue
		}
		f.Entries = append(f.Entries, FlowEntry{
			Node:    node,
			Content: Extract(node.Message),
			IsUser:  user,
			IsAI:    ai,
		})
	}
	log.Log(fmt.Sprintf("fragment scan: %d of %d nodes selected", len(f.Entries), rec.Mapping.Len()))

	f.Entries = SortEntries(f.Entries, log)
	return f
}
