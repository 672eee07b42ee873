package floyaml

import (
	"fmt"
	"strings"

	gyaml "github.com/goccy/go-yaml"
)

// Marshal renders a repacked structure back into the extended indentation
// format: an own-value slot becomes the inline scalar on its owner's key
// line, and a variant list re-emits its key once per variant, each followed
// by that variant's nested block. Key order follows the structure's
// insertion order; the round trip is semantic, not byte-for-byte.
func Marshal(v any) ([]byte, error) {
	if d, ok := v.(*Document); ok {
		return d.Marshal()
	}
	return marshalIndent(v, defaultIndent)
}

// Marshal serializes the document using its detected indentation unit.
func (d *Document) Marshal() ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return marshalIndent(d.root, d.indent)
}

func marshalIndent(v any, indent int) ([]byte, error) {
	ms, ok := v.(gyaml.MapSlice)
	if !ok {
		return nil, fmt.Errorf("floyaml: cannot marshal %T as a document root", v)
	}
	var b strings.Builder
	writeMap(&b, ms, 0, indent)
	return []byte(b.String()), nil
}

func writeMap(b *strings.Builder, ms gyaml.MapSlice, level, indent int) {
	for _, item := range ms {
		key := keyString(item.Key)
		if key == ValueKey {
			// Rendered inline on the parent's key line.
			continue
		}
		writeEntry(b, key, item.Value, level, indent)
	}
}

func writeEntry(b *strings.Builder, key string, v any, level, indent int) {
	pad := strings.Repeat(" ", level*indent)
	switch val := v.(type) {
	case gyaml.MapSlice:
		if slot, ok := mapGet(val, ValueKey); ok {
			fmt.Fprintf(b, "%s%s: %v\n", pad, key, slot)
		} else {
			fmt.Fprintf(b, "%s%s:\n", pad, key)
		}
		writeMap(b, val, level+1, indent)
	case []any:
		// Re-duplicate the key, once per variant.
		for _, variant := range val {
			writeEntry(b, key, variant, level, indent)
		}
	default:
		if val == nil {
			fmt.Fprintf(b, "%s%s:\n", pad, key)
		} else {
			fmt.Fprintf(b, "%s%s: %v\n", pad, key, val)
		}
	}
}
