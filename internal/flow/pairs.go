package flow

// Pair is one reasoning/answer cycle of an AI turn. Either side may be nil
// when the turn emitted more of one kind than the other.
type Pair struct {
	Thought  *string
	Response *string
}

// Pairs aligns thoughts and responses by emission index.
func Pairs(thoughts, responses []string) []Pair {
	n := max(len(thoughts), len(responses))
	if n == 0 {
		return nil
	}
	out := make([]Pair, n)
	for i := range n {
		if i < len(thoughts) {
			t := thoughts[i]
			out[i].Thought = &t
		}
		if i < len(responses) {
			r := responses[i]
			out[i].Response = &r
		}
	}
	return out
}
