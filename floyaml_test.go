package floyaml

import (
	"errors"
	"testing"

	gyaml "github.com/goccy/go-yaml"
	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"
)

// exampleDoc is a column-zero document exercising both extensions: val2
// carries an inline value plus children, and val3 repeats among siblings.
const exampleDoc = `val1: 1
val2: 2
    val3: 3
    val3: 4
        val5: 5
`

// nestedFixture carries one level of base indentation, the shape the format
// grew up on: three val3 variants, a duplicated val5 inside the third one,
// and a single val5 sibling after the variants.
const nestedFixture = `
    val1: 1
    val2: 2
        val3: 3
        val3: 4
            val5: 5
        val3 : 6
            val5: 10
            val5: 11
        val5: 7
`

func mustLoad(t *testing.T, s string) *Document {
	t.Helper()
	doc, err := LoadString(s)
	if err != nil {
		t.Fatalf("LoadString: %v", err)
	}
	return doc
}

func mustGet(t *testing.T, d *Document, path ...Segment) any {
	t.Helper()
	v, err := d.Get(path...)
	if err != nil {
		t.Fatalf("Get(%v): %v", path, err)
	}
	return v
}

// norm re-encodes a value as YAML and decodes it with yaml.v3, flattening
// MapSlice wrappers and scalar type differences so fixtures can be written
// as YAML literals.
func norm(t *testing.T, v any) any {
	t.Helper()
	data, err := gyaml.Marshal(v)
	if err != nil {
		t.Fatalf("normalize marshal: %v", err)
	}
	var out any
	if err := yaml.Unmarshal(data, &out); err != nil {
		t.Fatalf("normalize unmarshal: %v", err)
	}
	return out
}

func fromYAML(t *testing.T, s string) any {
	t.Helper()
	var v any
	if err := yaml.Unmarshal([]byte(s), &v); err != nil {
		t.Fatalf("bad fixture %q: %v", s, err)
	}
	return v
}

func assertYAML(t *testing.T, want string, got any) {
	t.Helper()
	if diff := cmp.Diff(fromYAML(t, want), norm(t, got)); diff != "" {
		t.Fatalf("value mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadExampleDocument(t *testing.T) {
	doc := mustLoad(t, exampleDoc)

	assertYAML(t, "1", mustGet(t, doc, Key("val1")))
	assertYAML(t, "[3, 4]", mustGet(t, doc, Key("val2"), Val("val3")))
	assertYAML(t, "{__val__: 4, val5: 5}", mustGet(t, doc, Key("val2"), Key("val3[1]")))
	assertYAML(t, "3", mustGet(t, doc, Key("val2"), Val("val3[0]")))
}

func TestLoadNestedFixture(t *testing.T) {
	doc := mustLoad(t, nestedFixture)

	assertYAML(t, "[3, 4, 6]", mustGet(t, doc, Key("val2"), Val("val3")))
	assertYAML(t, "3", mustGet(t, doc, Key("val2"), Val("val3[0]")))
	assertYAML(t, "[10, 11]", mustGet(t, doc, Key("val2"), Key("val3[2]"), Val("val5")))
	assertYAML(t, "11", mustGet(t, doc, Key("val2"), Key("val3[2]"), Key("val5[1]")))
	assertYAML(t, "{__val__: 4, val5: 5}", mustGet(t, doc, Key("val2"), Key("val3[1]")))
	assertYAML(t, "7", mustGet(t, doc, Key("val2"), Key("val5")))
}

func TestSetRefreshesReads(t *testing.T) {
	doc := mustLoad(t, nestedFixture)

	// Prime the cache, then write through the same path.
	assertYAML(t, "[3, 4, 6]", mustGet(t, doc, Key("val2"), Val("val3")))
	if err := doc.Set(4, Key("val2"), Val("val3[0]")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	assertYAML(t, "4", mustGet(t, doc, Key("val2"), Val("val3[0]")))
	assertYAML(t, "[4, 4, 6]", mustGet(t, doc, Key("val2"), Val("val3")))
}

func TestSetPreservesSiblingChildren(t *testing.T) {
	doc := mustLoad(t, exampleDoc)

	if err := doc.Set(42, Key("val2"), Val("val3[1]")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	assertYAML(t, "{__val__: 42, val5: 5}", mustGet(t, doc, Key("val2"), Key("val3[1]")))
}

func TestSetOnPlainKeyUpdatesOwnValueSlot(t *testing.T) {
	doc := mustLoad(t, exampleDoc)

	// val2 holds a mapping with an own-value slot; a plain-key write lands
	// in the slot and keeps the children.
	if err := doc.Set(20, Key("val2")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	assertYAML(t, "{__val__: 20, val3: [3, {__val__: 4, val5: 5}]}", mustGet(t, doc, Key("val2")))
	assertYAML(t, "[3, 4]", mustGet(t, doc, Key("val2"), Val("val3")))
}

func TestMixedShapeDuplicatesStayList(t *testing.T) {
	doc := mustLoad(t, `item: plain
item: nested
    extra: deep
`)

	assertYAML(t, `[plain, {__val__: nested, extra: deep}]`, mustGet(t, doc, Key("item")))
	assertYAML(t, "[plain, nested]", mustGet(t, doc, Val("item")))
	assertYAML(t, "plain", mustGet(t, doc, Key("item[0]")))
}

func TestAllMappingVariantsMerge(t *testing.T) {
	doc := mustLoad(t, `task: operation-alpha
    time_limit: 60min
    action: initiate-alpha
        execute: run-alpha
task: operation-beta
    time_limit: 90min
    action: initiate-beta
        execute: run-beta
`)

	// Mapping-shaped variants merge field-wise into a one-element list.
	tasks := mustGet(t, doc, Key("task"))
	if seq, ok := tasks.([]any); !ok || len(seq) != 1 {
		t.Fatalf("expected one merged variant, got %#v", tasks)
	}
	assertYAML(t, "[60min, 90min]", mustGet(t, doc, Key("task[0]"), Key("time_limit")))
	assertYAML(t, "[initiate-alpha, initiate-beta]", mustGet(t, doc, Key("task[0]"), Val("action")))
	assertYAML(t, "[[operation-alpha, operation-beta]]", mustGet(t, doc, Val("task")))
}

func TestExtractionOverSingleMappingIsNotUnwrapped(t *testing.T) {
	doc := mustLoad(t, exampleDoc)

	// Unindexed extraction only projects across a variant list; val2 is a
	// single mapping and comes back whole, own-value slot included.
	got := mustGet(t, doc, Val("val2"))
	ms, ok := got.(gyaml.MapSlice)
	if !ok {
		t.Fatalf("expected mapping, got %T", got)
	}
	if _, ok := mapGet(ms, ValueKey); !ok {
		t.Fatalf("own-value slot missing from %#v", ms)
	}
}

func TestAccessorErrors(t *testing.T) {
	doc := mustLoad(t, exampleDoc)

	if _, err := doc.Get(Key("nope")); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
	if _, err := doc.Get(Key("val2"), Key("val3[9]")); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
	if _, err := doc.Get(Key("val1[0]")); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange for scalar, got %v", err)
	}
	if _, err := doc.Get(Key("val2"), Key("val3[x]")); !errors.Is(err, ErrUnsupportedSegment) {
		t.Fatalf("expected ErrUnsupportedSegment, got %v", err)
	}
	if err := doc.Set(1); !errors.Is(err, ErrUnsupportedSegment) {
		t.Fatalf("expected ErrUnsupportedSegment for empty path, got %v", err)
	}
	if err := doc.Set(1, Key("nope")); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound on write, got %v", err)
	}
}

func TestLoadParseError(t *testing.T) {
	_, err := LoadString("a: [1,\n")
	if err == nil {
		t.Fatalf("expected parse error")
	}
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %T: %v", err, err)
	}
}

func TestMalformedLinesAreSkipped(t *testing.T) {
	doc := mustLoad(t, `val1: 1
this line has no colon and is dropped
val2: 2
`)
	assertYAML(t, "1", mustGet(t, doc, Key("val1")))
	assertYAML(t, "2", mustGet(t, doc, Key("val2")))
}

func TestFlatDocument(t *testing.T) {
	doc := mustLoad(t, "a: 1\nb: two\n")
	assertYAML(t, "1", mustGet(t, doc, Key("a")))
	assertYAML(t, "two", mustGet(t, doc, Key("b")))
	if doc.IndentUnit() != defaultIndent {
		t.Fatalf("expected default indent for flat document, got %d", doc.IndentUnit())
	}
}

func TestConcurrentGetAndSetAreSafe(t *testing.T) {
	doc := mustLoad(t, exampleDoc)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			if _, err := doc.Get(Key("val2"), Val("val3")); err != nil {
				t.Errorf("Get: %v", err)
				break
			}
		}
		done <- struct{}{}
	}()
	go func() {
		for i := 0; i < 200; i++ {
			if err := doc.Set(i, Key("val1")); err != nil {
				t.Errorf("Set: %v", err)
				break
			}
		}
		done <- struct{}{}
	}()

	<-done
	<-done
}

func TestDecodeIntoStruct(t *testing.T) {
	doc := mustLoad(t, exampleDoc)

	var out struct {
		Val1 int `yaml:"val1"`
		Val2 struct {
			Own  int   `yaml:"__val__"`
			Val3 []any `yaml:"val3"`
		} `yaml:"val2"`
	}
	if err := doc.Decode(&out); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out.Val1 != 1 || out.Val2.Own != 2 || len(out.Val2.Val3) != 2 {
		t.Fatalf("unexpected decode result: %+v", out)
	}
}

func TestCopiedRootIsDetached(t *testing.T) {
	doc := mustLoad(t, exampleDoc)

	dup := doc.CopiedRoot()
	dup[0].Value = 99

	assertYAML(t, "1", mustGet(t, doc, Key("val1")))
}
