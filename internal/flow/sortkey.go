package flow

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/MikeSquared-Agency/convexport/internal/conversation"
)

// Sort tiers. Absent ids come first, integer ids next, everything else last.
const (
	TierAbsent = iota
	TierNumeric
	TierText
)

// SortKey is a type-stable ordering key for identifiers of mixed type.
// Integers of any size are held as a sign plus their decimal digits without
// leading zeros; an empty Digits means zero.
type SortKey struct {
	Tier   int
	Neg    bool
	Digits string
	Text   string
}

// KeyOf resolves the sort key of a node id.
func KeyOf(id conversation.NodeID) SortKey {
	if !id.Valid {
		return SortKey{Tier: TierAbsent}
	}
	if neg, digits, ok := parseInteger(id.Value); ok {
		return SortKey{Tier: TierNumeric, Neg: neg, Digits: digits}
	}
	return SortKey{Tier: TierText, Text: id.Value}
}

// parseInteger accepts an optionally signed run of ASCII digits surrounded
// by optional whitespace. It is not bounded by any integer width.
func parseInteger(s string) (neg bool, digits string, ok bool) {
	s = strings.TrimSpace(s)
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}
	if s == "" {
		return false, "", false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false, "", false
		}
	}
	digits = strings.TrimLeft(s, "0")
	if digits == "" {
		neg = false
	}
	return neg, digits, true
}

// compareIntegers orders two sign/digits pairs numerically.
func compareIntegers(aNeg bool, a string, bNeg bool, b string) int {
	if aNeg != bNeg {
		if aNeg {
			return -1
		}
		return 1
	}
	c := cmp.Compare(len(a), len(b))
	if c == 0 {
		c = strings.Compare(a, b)
	}
	if aNeg {
		return -c
	}
	return c
}

// Compare orders two keys: by tier, then numerically or lexically.
func (k SortKey) Compare(o SortKey) int {
	if c := cmp.Compare(k.Tier, o.Tier); c != 0 {
		return c
	}
	switch k.Tier {
	case TierNumeric:
		return compareIntegers(k.Neg, k.Digits, o.Neg, o.Digits)
	case TierText:
		return strings.Compare(k.Text, o.Text)
	default:
		return 0
	}
}

// Less reports whether k sorts before o.
func (k SortKey) Less(o SortKey) bool {
	return k.Compare(o) < 0
}

// citeKey resolves the sort key of a search result. A missing or falsy
// cite_index counts as 0.
func citeKey(r conversation.SearchResult) SortKey {
	if r.CiteIndex == "" {
		return SortKey{Tier: TierNumeric}
	}
	return KeyOf(conversation.ID(r.CiteIndex))
}

// SortEntries orders flow entries by node id. If sorting fails for any
// reason the entries are returned in their original order.
func SortEntries(entries []FlowEntry, log Logger) []FlowEntry {
	out, err := sortByKey(entries, func(e FlowEntry) SortKey {
		return KeyOf(e.Node.RefID())
	})
	if err != nil {
		OrNop(log).Log(fmt.Sprintf("node sort failed, keeping scan order: %v", err))
	}
	return out
}

// SortSearchResults orders search results by cite index, with the same
// fallback as SortEntries.
func SortSearchResults(results []conversation.SearchResult, log Logger) []conversation.SearchResult {
	out, err := sortByKey(results, citeKey)
	if err != nil {
		OrNop(log).Log(fmt.Sprintf("search result sort failed, keeping emission order: %v", err))
	}
	return out
}

// sortByKey stable-sorts a copy of items. On panic the copy is discarded and
// an unsorted copy is returned with the error.
func sortByKey[T any](items []T, key func(T) SortKey) (out []T, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = slices.Clone(items)
			err = fmt.Errorf("recovered: %v", r)
		}
	}()

	type keyed struct {
		key  SortKey
		item T
	}
	ks := make([]keyed, len(items))
	for i, it := range items {
		ks[i] = keyed{key: key(it), item: it}
	}
	slices.SortStableFunc(ks, func(a, b keyed) int {
		return a.key.Compare(b.key)
	})

	out = make([]T, len(ks))
	for i, k := range ks {
		out[i] = k.item
	}
	return out, nil
}
