package floyaml

import (
	"fmt"
	"sort"
	"strings"

	gyaml "github.com/goccy/go-yaml"
)

// dupGroup collects the synthetic ids minted for one (parent path, key)
// pair, in allocation order. The first occurrence of the key still lives
// under its original name; the ids name the rest.
type dupGroup struct {
	parentPath []string
	key        string
	ids        []int
	firstID    int
}

// Repack folds the synthetic keys of the decoded intermediate structure back
// into their original keys as ordered variant lists. When every collected
// variant is mapping-shaped the variants are merged field-wise into a
// one-element list (a field repeated across variants becomes a list itself);
// any scalar or sequence variant keeps the collected values as a verbatim
// list instead. That branching is part of the format's contract.
//
// Load calls Repack for you; it is exposed alongside Process for callers
// driving the stages separately. The returned slice is the folded structure;
// the input must not be reused afterwards.
func Repack(root gyaml.MapSlice, registry map[int]string) gyaml.MapSlice {
	ids := make([]int, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	byPath := map[string]*dupGroup{}
	var groups []*dupGroup
	for _, id := range ids {
		parent, key := splitDottedPath(registry[id])
		gk := parent + "\x00" + key
		g, ok := byPath[gk]
		if !ok {
			g = &dupGroup{parentPath: splitSegments(parent), key: key, firstID: id}
			byPath[gk] = g
			groups = append(groups, g)
		}
		g.ids = append(g.ids, id)
	}

	// A node's synthetic children must be folded before the node itself is
	// collected: deepest parent paths first, later-minted groups first when
	// the depth ties.
	sort.SliceStable(groups, func(i, j int) bool {
		if len(groups[i].parentPath) != len(groups[j].parentPath) {
			return len(groups[i].parentPath) > len(groups[j].parentPath)
		}
		return groups[i].firstID > groups[j].firstID
	})

	for _, g := range groups {
		parent, ok := lookupMap(root, g.parentPath)
		if !ok {
			continue
		}
		values := make([]any, 0, len(g.ids)+1)
		if v, ok := mapGet(parent, g.key); ok {
			values = append(values, v)
		}
		for _, id := range g.ids {
			name := syntheticKey(id)
			if v, ok := mapGet(parent, name); ok {
				values = append(values, v)
				parent = mapDelete(parent, name)
			}
		}
		if allMappings(values) {
			parent = mapSet(parent, g.key, []any{mergeMappings(values)})
		} else {
			parent = mapSet(parent, g.key, values)
		}
		root = storeMap(root, g.parentPath, parent)
	}
	return root
}

func allMappings(values []any) bool {
	for _, v := range values {
		if _, ok := v.(gyaml.MapSlice); !ok {
			return false
		}
	}
	return true
}

// mergeMappings folds mapping-shaped variants into one mapping. The first
// sighting of a field keeps its value as-is; later sightings turn the field
// into a list and append, so a field present in only one variant stays
// scalar.
func mergeMappings(values []any) gyaml.MapSlice {
	merged := gyaml.MapSlice{}
	for _, v := range values {
		ms, _ := v.(gyaml.MapSlice)
		for _, item := range ms {
			idx := mapIndex(merged, keyString(item.Key))
			if idx < 0 {
				merged = append(merged, item)
				continue
			}
			if list, ok := merged[idx].Value.([]any); ok {
				merged[idx].Value = append(list, item.Value)
			} else {
				merged[idx].Value = []any{merged[idx].Value, item.Value}
			}
		}
	}
	return merged
}

func splitDottedPath(path string) (parent, key string) {
	if i := strings.LastIndex(path, "."); i >= 0 {
		return path[:i], path[i+1:]
	}
	return "", path
}

func splitSegments(parent string) []string {
	if parent == "" {
		return nil
	}
	return strings.Split(parent, ".")
}

// MapSlice helpers

func keyString(k any) string {
	switch v := k.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func mapIndex(ms gyaml.MapSlice, key string) int {
	for i := range ms {
		if keyString(ms[i].Key) == key {
			return i
		}
	}
	return -1
}

func mapGet(ms gyaml.MapSlice, key string) (any, bool) {
	if i := mapIndex(ms, key); i >= 0 {
		return ms[i].Value, true
	}
	return nil, false
}

// mapSet replaces the value in place when the key exists, keeping its
// position, and appends otherwise.
func mapSet(ms gyaml.MapSlice, key string, v any) gyaml.MapSlice {
	if i := mapIndex(ms, key); i >= 0 {
		ms[i].Value = v
		return ms
	}
	return append(ms, gyaml.MapItem{Key: key, Value: v})
}

func mapDelete(ms gyaml.MapSlice, key string) gyaml.MapSlice {
	if i := mapIndex(ms, key); i >= 0 {
		return append(ms[:i], ms[i+1:]...)
	}
	return ms
}

// lookupMap walks parts down nested mappings. It reports false as soon as a
// part is missing or does not hold a mapping.
func lookupMap(root gyaml.MapSlice, parts []string) (gyaml.MapSlice, bool) {
	cur := root
	for _, part := range parts {
		v, ok := mapGet(cur, part)
		if !ok {
			return nil, false
		}
		sub, ok := v.(gyaml.MapSlice)
		if !ok {
			return nil, false
		}
		cur = sub
	}
	return cur, true
}

// storeMap writes m back at the position parts points to. Folding can change
// a mapping's length, so the rewritten slice has to be reattached up the
// chain rather than mutated through a shared backing array.
func storeMap(root gyaml.MapSlice, parts []string, m gyaml.MapSlice) gyaml.MapSlice {
	if len(parts) == 0 {
		return m
	}
	for i := range root {
		if keyString(root[i].Key) == parts[0] {
			if sub, ok := root[i].Value.(gyaml.MapSlice); ok {
				root[i].Value = storeMap(sub, parts[1:], m)
			}
			return root
		}
	}
	return root
}
