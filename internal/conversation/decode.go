package conversation

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/tidwall/gjson"
)

// ErrNotArray is returned when a .json export is not a JSON array.
var ErrNotArray = errors.New("export is not a JSON array")

// Format selects how an export file is split into records.
type Format int

const (
	FormatArray Format = iota // one JSON array, one record per element
	FormatLines               // JSONL, one record per line
)

// FormatFor picks the format from a file name.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".jsonl") {
		return FormatLines
	}
	return FormatArray
}

// Document is a decoded export file: its raw records in file order. Records
// are parsed lazily so that one broken record cannot fail the whole file.
type Document struct {
	Source   string
	Records  []gjson.Result
	Skipped  int // malformed JSONL lines
	Repaired bool
}

// DecodeOptions controls DecodeFile.
type DecodeOptions struct {
	// Repair runs damaged JSON through jsonrepair before giving up.
	Repair bool
}

// DecodeFile reads and splits one export file.
func DecodeFile(path string, opts DecodeOptions) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	doc, err := Decode(data, FormatFor(path), opts)
	if err != nil {
		return nil, err
	}
	doc.Source = path
	return doc, nil
}

// Decode splits export data into raw records.
func Decode(data []byte, format Format, opts DecodeOptions) (*Document, error) {
	if format == FormatLines {
		return decodeLines(data, opts)
	}

	doc := &Document{}
	if !gjson.ValidBytes(data) {
		if !opts.Repair {
			return nil, fmt.Errorf("parse: invalid JSON")
		}
		fixed, err := jsonrepair.JSONRepair(string(data))
		if err != nil {
			return nil, fmt.Errorf("repair: %w", err)
		}
		data = []byte(fixed)
		doc.Repaired = true
	}

	root := gjson.ParseBytes(data)
	if !root.IsArray() {
		return nil, ErrNotArray
	}
	doc.Records = root.Array()
	return doc, nil
}

func decodeLines(data []byte, opts DecodeOptions) (*Document, error) {
	doc := &Document{}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 1024*1024), 64*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if !gjson.ValidBytes(line) && opts.Repair {
			if fixed, err := jsonrepair.JSONRepair(string(line)); err == nil {
				line = []byte(fixed)
				doc.Repaired = true
			}
		}
		if !gjson.ValidBytes(line) {
			doc.Skipped++
			continue
		}
		doc.Records = append(doc.Records, gjson.ParseBytes(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	if len(doc.Records) == 0 && doc.Skipped > 0 {
		return nil, fmt.Errorf("parse: no readable lines (%d malformed)", doc.Skipped)
	}
	return doc, nil
}

// ParseRecord converts one raw export entry. Missing fields decode as empty
// values; only an entry that is not an object is rejected.
func ParseRecord(raw gjson.Result) (*ConversationRecord, error) {
	if !raw.IsObject() {
		return nil, fmt.Errorf("record is %s, not an object", raw.Type)
	}

	rec := &ConversationRecord{
		ID:        text(raw.Get("id")),
		Title:     text(raw.Get("title")),
		CreatedAt: firstText(raw, "created_at", "inserted_at", "create_time"),
		UpdatedAt: firstText(raw, "updated_at", "update_time"),
		Mapping:   Mapping{Nodes: make(map[string]*Node)},
	}

	raw.Get("mapping").ForEach(func(key, value gjson.Result) bool {
		k := key.String()
		if _, dup := rec.Mapping.Nodes[k]; !dup {
			rec.Mapping.Keys = append(rec.Mapping.Keys, k)
		}
		rec.Mapping.Nodes[k] = parseNode(k, value)
		return true
	})

	return rec, nil
}

func parseNode(key string, raw gjson.Result) *Node {
	n := &Node{
		Key:    key,
		ID:     nodeID(raw.Get("id")),
		Parent: nodeID(raw.Get("parent")),
	}
	for i, c := range list(raw.Get("children")) {
		id := nodeID(c)
		if !id.Valid {
			if i == 0 {
				n.NullFirstChild = true
			}
			continue
		}
		n.Children = append(n.Children, id.Value)
	}
	if msg := raw.Get("message"); msg.IsObject() {
		n.Message = parseMessage(msg)
	}
	return n
}

func parseMessage(raw gjson.Result) *Message {
	m := &Message{
		Role:       text(raw.Get("author.role")),
		Model:      firstText(raw, "model", "metadata.model_slug"),
		InsertedAt: firstText(raw, "inserted_at", "create_time"),
	}

	parts := raw.Get("content.parts")
	if !parts.Exists() {
		parts = raw.Get("parts")
	}
	for _, p := range list(parts) {
		if falsy(p) {
			continue
		}
		if p.Type == gjson.String {
			m.Parts = append(m.Parts, p.Str)
		} else {
			m.Parts = append(m.Parts, p.Raw)
		}
	}

	for _, f := range list(raw.Get("fragments")) {
		if !f.IsObject() {
			continue
		}
		frag := Fragment{
			Type:    FragmentType(strings.ToUpper(text(f.Get("type")))),
			Content: text(f.Get("content")),
		}
		for _, r := range list(f.Get("results")) {
			frag.Results = append(frag.Results, SearchResult{
				SiteName:    text(r.Get("site_name")),
				Title:       text(r.Get("title")),
				URL:         text(r.Get("url")),
				Snippet:     text(r.Get("snippet")),
				PublishedAt: r.Get("published_at").Int(),
				CiteIndex:   citeIndex(r.Get("cite_index")),
			})
		}
		m.Fragments = append(m.Fragments, frag)
	}

	for _, f := range list(raw.Get("files")) {
		m.Files = append(m.Files, FileAttachment{
			ID:       text(f.Get("id")),
			FileName: text(f.Get("file_name")),
			Content:  text(f.Get("content")),
		})
	}

	return m
}

// list returns the elements of a JSON array, and nothing for any other value.
func list(r gjson.Result) []gjson.Result {
	if !r.IsArray() {
		return nil
	}
	return r.Array()
}

// text returns strings as-is and numbers as their literal text.
func text(r gjson.Result) string {
	switch r.Type {
	case gjson.String:
		return r.Str
	case gjson.Number:
		return r.Raw
	default:
		return ""
	}
}

func firstText(raw gjson.Result, paths ...string) string {
	for _, p := range paths {
		if s := text(raw.Get(p)); s != "" {
			return s
		}
	}
	return ""
}

func nodeID(r gjson.Result) NodeID {
	switch r.Type {
	case gjson.String:
		return ID(r.Str)
	case gjson.Number:
		return ID(r.Raw)
	default:
		return NodeID{}
	}
}

func citeIndex(r gjson.Result) string {
	if falsy(r) {
		return ""
	}
	return text(r)
}

func falsy(r gjson.Result) bool {
	switch r.Type {
	case gjson.Null, gjson.False:
		return true
	case gjson.String:
		return r.Str == ""
	case gjson.Number:
		return r.Float() == 0
	case gjson.JSON:
		s := strings.TrimSpace(r.Raw)
		return s == "{}" || s == "[]"
	default:
		return !r.Exists()
	}
}
