package floyaml

import (
	"fmt"
	"strings"
)

// ValueKey is the reserved child key that holds a node's inline scalar when
// the node also has nested children.
const ValueKey = "__val__"

// syntheticPrefix namespaces the keys substituted for duplicate siblings in
// the intermediate text. User keys starting with this prefix are reserved.
const syntheticPrefix = "floyaml_"

func syntheticKey(id int) string {
	return fmt.Sprintf("%s%d", syntheticPrefix, id)
}

// Process runs the preprocessing pass on its own: it returns the rewritten
// intermediate lines (valid under the ordinary YAML grammar, with no two
// equal sibling keys) and the registry mapping each synthetic key id back to
// the dotted path of the key it disambiguates. Load wires the stages
// together; Process is exposed for callers that want to inspect or decode
// the intermediate form themselves.
func Process(data []byte) ([]string, map[int]string) {
	return rewrite(splitLines(string(data)))
}

func splitLines(s string) []string {
	return strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
}

// computeIndentUnit returns the leading-space count of the first indented
// content line, which the format fixes as the document-wide indentation
// unit. It returns 0 when no line is indented; a flat document never leaves
// depth zero and the unit is irrelevant.
func computeIndentUnit(lines []string) int {
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if n := leadingSpaces(line); n > 0 {
			return n
		}
	}
	return 0
}

func leadingSpaces(line string) int {
	i := 0
	for i < len(line) && line[i] == ' ' {
		i++
	}
	return i
}

func lineDepth(line string, indentUnit int) int {
	if indentUnit == 0 {
		return 0
	}
	return leadingSpaces(line) / indentUnit
}

// classifyLine splits a physical line into its indentation depth, key and
// inline value. Only the first colon separates key from value, so values may
// contain colons. A line with no colon at all is reported as invalid; the
// rewriter drops such lines rather than failing.
func classifyLine(line string, indentUnit int) (ok bool, depth int, key, value string) {
	depth = lineDepth(line, indentUnit)
	key, value, found := strings.Cut(line, ":")
	if !found {
		return false, depth, "", ""
	}
	return true, depth, strings.TrimSpace(key), strings.TrimSpace(value)
}

// rewrite is the single top-to-bottom pass over the document. It tracks the
// dotted path active at each indentation depth, renames the second and later
// occurrences of a key at the same path to synthetic names, and splits any
// line that has both an inline value and deeper children into a parent line
// plus an injected own-value child.
//
// Emitted indentation is normalized against the depth of the first content
// line, so a document carrying one level of base indentation comes out one
// level shallower while a column-zero document keeps its levels.
func rewrite(lines []string) (out []string, registry map[int]string) {
	indentUnit := computeIndentUnit(lines)
	registry = map[int]string{}

	maxDepth, baseDepth := 0, -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		d := lineDepth(line, indentUnit)
		if baseDepth < 0 {
			baseDepth = d
		}
		if d > maxDepth {
			maxDepth = d
		}
	}
	if baseDepth < 0 {
		return nil, registry
	}

	// One active key per indentation depth. A sibling at the same depth
	// overwrites its slot; slots deeper than the current line go stale and
	// are simply never read again.
	paths := make([]string, maxDepth+1)

	seen := map[string]bool{}
	nextID := 0

	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		ok, depth, key, value := classifyLine(line, indentUnit)
		if !ok {
			continue
		}

		paths[depth] = key
		fullPath := joinPath(paths[:depth+1])

		if seen[fullPath] {
			key = syntheticKey(nextID)
			registry[nextID] = fullPath
			nextID++
			paths[depth] = key
		} else {
			seen[fullPath] = true
		}

		hasChildren := false
		for j := i + 1; j < len(lines); j++ {
			if strings.TrimSpace(lines[j]) == "" {
				continue
			}
			hasChildren = lineDepth(lines[j], indentUnit) > depth
			break
		}

		level := depth - baseDepth
		if level < 0 {
			level = 0
		}
		indent := strings.Repeat(" ", level*indentUnit)
		switch {
		case hasChildren && value != "":
			out = append(out, indent+key+":")
			out = append(out, indent+strings.Repeat(" ", indentUnit)+ValueKey+": "+value)
		case value != "":
			out = append(out, indent+key+": "+value)
		default:
			out = append(out, indent+key+":")
		}
	}
	return out, registry
}

// joinPath dot-joins the active keys, skipping slots that were never filled
// (a base-indented document leaves the shallow slots empty).
func joinPath(segs []string) string {
	filled := make([]string, 0, len(segs))
	for _, s := range segs {
		if s != "" {
			filled = append(filled, s)
		}
	}
	return strings.Join(filled, ".")
}
