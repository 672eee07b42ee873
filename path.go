package floyaml

import (
	"fmt"
	"strconv"
	"strings"

	gyaml "github.com/goccy/go-yaml"
)

// Segment is one element of an access path: a plain key ("host"), an indexed
// key ("host[1]"), or either wrapped in a value-extraction marker via [Val].
// The segment grammar is closed; there is no expression evaluation.
type Segment struct {
	key     string
	index   int
	indexed bool
	extract bool
	err     error
}

// Key builds a path segment from "k" or "k[i]". A malformed index surfaces
// as ErrUnsupportedSegment when the segment is resolved.
func Key(spec string) Segment { return parseSegment(spec, false) }

// Val builds a value-extraction segment from "k" or "k[i]". Resolving it
// dereferences the own-value slot of the target variant, or projects the
// slot out of every element when the key holds a variant list.
func Val(spec string) Segment { return parseSegment(spec, true) }

func parseSegment(spec string, extract bool) Segment {
	open := strings.IndexByte(spec, '[')
	if open < 0 {
		return Segment{key: spec, extract: extract}
	}
	seg := Segment{key: spec[:open], extract: extract}
	if !strings.HasSuffix(spec, "]") {
		seg.err = fmt.Errorf("%w: %q", ErrUnsupportedSegment, spec)
		return seg
	}
	idx, err := strconv.Atoi(spec[open+1 : len(spec)-1])
	if err != nil || idx < 0 {
		seg.err = fmt.Errorf("%w: bad index in %q", ErrUnsupportedSegment, spec)
		return seg
	}
	seg.index, seg.indexed = idx, true
	return seg
}

func (s Segment) String() string {
	out := s.key
	if s.indexed {
		out = fmt.Sprintf("%s[%d]", s.key, s.index)
	}
	if s.extract {
		out = "VAL(" + out + ")"
	}
	return out
}

// cacheKey canonicalizes a path for memoization. Segment.String is
// unambiguous, so joining on a separator that cannot occur in rendered
// segments is enough.
func cacheKey(path []Segment) string {
	parts := make([]string, len(path))
	for i, s := range path {
		parts[i] = s.String()
	}
	return strings.Join(parts, "\x1f")
}

// locate resolves a path against the repacked structure, one segment at a
// time.
func locate(current any, path []Segment) (any, error) {
	for _, seg := range path {
		next, err := seg.resolve(current)
		if err != nil {
			return nil, err
		}
		current = next
	}
	return current, nil
}

func (s Segment) resolve(current any) (any, error) {
	if s.err != nil {
		return nil, s.err
	}
	ms, ok := current.(gyaml.MapSlice)
	if !ok {
		return nil, fmt.Errorf("%w: %q (parent is not a mapping)", ErrKeyNotFound, s.key)
	}
	v, ok := mapGet(ms, s.key)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, s.key)
	}

	if s.indexed {
		seq, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: %q is not a sequence", ErrIndexOutOfRange, s.key)
		}
		if s.index >= len(seq) {
			return nil, fmt.Errorf("%w: %s (len %d)", ErrIndexOutOfRange, s, len(seq))
		}
		if s.extract {
			return extractOwnValue(seq[s.index]), nil
		}
		return seq[s.index], nil
	}

	if s.extract {
		seq, ok := v.([]any)
		if !ok {
			// Extraction only unwraps across a variant list; a single
			// value passes through untouched, own-value slot and all.
			return v, nil
		}
		out := make([]any, len(seq))
		for i, item := range seq {
			out[i] = extractOwnValue(item)
		}
		return out, nil
	}

	return v, nil
}

// extractOwnValue projects the own-value slot out of a mapping variant and
// passes anything else through unchanged.
func extractOwnValue(v any) any {
	if ms, ok := v.(gyaml.MapSlice); ok {
		if slot, ok := mapGet(ms, ValueKey); ok {
			return slot
		}
	}
	return v
}

// assign resolves all but the last segment as a read path and applies the
// final segment as a write. When the current value at the target is a
// mapping holding an own-value slot, the slot is updated in place so sibling
// children survive the write; otherwise the target is replaced outright.
func assign(root any, path []Segment, value any) error {
	if len(path) == 0 {
		return fmt.Errorf("%w: empty path", ErrUnsupportedSegment)
	}
	final := path[len(path)-1]
	if final.err != nil {
		return final.err
	}
	target, err := locate(root, path[:len(path)-1])
	if err != nil {
		return err
	}
	ms, ok := target.(gyaml.MapSlice)
	if !ok {
		return fmt.Errorf("%w: %q (parent is not a mapping)", ErrKeyNotFound, final.key)
	}
	i := mapIndex(ms, final.key)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrKeyNotFound, final.key)
	}

	if final.indexed {
		seq, ok := ms[i].Value.([]any)
		if !ok {
			return fmt.Errorf("%w: %q is not a sequence", ErrIndexOutOfRange, final.key)
		}
		if final.index >= len(seq) {
			return fmt.Errorf("%w: %s (len %d)", ErrIndexOutOfRange, final, len(seq))
		}
		if !setOwnValue(seq[final.index], value) {
			seq[final.index] = value
		}
		return nil
	}

	if !setOwnValue(ms[i].Value, value) {
		ms[i].Value = value
	}
	return nil
}

// setOwnValue updates the own-value slot of a mapping variant in place and
// reports whether it did.
func setOwnValue(cur any, value any) bool {
	ms, ok := cur.(gyaml.MapSlice)
	if !ok {
		return false
	}
	j := mapIndex(ms, ValueKey)
	if j < 0 {
		return false
	}
	ms[j].Value = value
	return true
}
