package floyaml

import (
	"strings"
	"sync"

	gyaml "github.com/goccy/go-yaml"
	"gopkg.in/yaml.v3"
)

// Document is a parsed extended-format document: a queryable, mutable handle
// over the repacked structure. The zero value is not usable; obtain one from
// [Load] or [LoadString].
//
// A Document is safe for concurrent use. Repeated Get calls for the same
// path are served from a memo cache; any Set drops the cache wholesale.
type Document struct {
	mu     sync.RWMutex
	root   gyaml.MapSlice
	indent int
	cache  map[string]any
}

const defaultIndent = 4

// Load parses an extended-format document. The whole pipeline runs to
// completion before returning: the rewrite pass disambiguates duplicate
// siblings and splits inline values apart, the intermediate text is decoded
// as ordinary YAML with insertion order preserved, and the synthetic keys
// are folded back into variant lists. A decoder failure is returned as a
// *ParseError with no partial result.
func Load(data []byte) (*Document, error) {
	srcLines := splitLines(string(data))
	lines, registry := rewrite(srcLines)

	var root gyaml.MapSlice
	text := strings.Join(lines, "\n")
	if err := gyaml.UnmarshalWithOptions([]byte(text), &root, gyaml.UseOrderedMap()); err != nil {
		return nil, &ParseError{Err: err}
	}
	root = Repack(root, registry)

	indent := computeIndentUnit(srcLines)
	if indent == 0 {
		indent = defaultIndent
	}
	return &Document{root: root, indent: indent, cache: map[string]any{}}, nil
}

// LoadString is Load for a string input.
func LoadString(s string) (*Document, error) {
	return Load([]byte(s))
}

// Get resolves path against the document and returns the value it addresses.
// A plain key descends into a mapping, "k[i]" selects the i-th variant at k,
// and a [Val] segment dereferences the own-value slot (mapped over every
// element when k holds a variant list, passed through untouched otherwise).
//
// Results are memoized per path; the returned value shares structure with
// the document and must be treated as read-only.
func (d *Document) Get(path ...Segment) (any, error) {
	key := cacheKey(path)

	d.mu.RLock()
	if v, ok := d.cache[key]; ok {
		d.mu.RUnlock()
		return v, nil
	}
	d.mu.RUnlock()

	d.mu.Lock()
	defer d.mu.Unlock()
	if v, ok := d.cache[key]; ok {
		return v, nil
	}
	v, err := locate(d.root, path)
	if err != nil {
		return nil, err
	}
	d.cache[key] = v
	return v, nil
}

// Set writes value at path. When the current value at the target is a
// mapping holding an own-value slot, only the slot changes and sibling
// children are preserved. The memo cache is invalidated wholesale:
// extraction results alias arbitrary descendants, so prefix-scoped
// invalidation would be unsound.
func (d *Document) Set(value any, path ...Segment) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := assign(d.root, path, value); err != nil {
		return err
	}
	d.cache = map[string]any{}
	return nil
}

// Root returns the live repacked structure. Callers must not mutate it; use
// CopiedRoot for a detached copy or Set for writes.
func (d *Document) Root() gyaml.MapSlice {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.root
}

// CopiedRoot returns a deep copy of the repacked structure.
func (d *Document) CopiedRoot() gyaml.MapSlice {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return copyValue(d.root).(gyaml.MapSlice)
}

// Decode re-encodes the repacked structure as YAML and unmarshals it into
// out, so callers can bind a document to their own types.
func (d *Document) Decode(out any) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	data, err := gyaml.Marshal(d.root)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, out)
}

// IndentUnit reports the indentation unit detected at load time (the default
// when the source document was flat).
func (d *Document) IndentUnit() int {
	return d.indent
}

func copyValue(v any) any {
	switch val := v.(type) {
	case gyaml.MapSlice:
		out := make(gyaml.MapSlice, len(val))
		for i, item := range val {
			out[i] = gyaml.MapItem{Key: item.Key, Value: copyValue(item.Value)}
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = copyValue(item)
		}
		return out
	default:
		return v
	}
}
