// Package floyaml reads and writes a superset of YAML block mappings in
// which two things ordinary YAML forbids are allowed:
//
//   - a key may repeat among its siblings, and the repeats are kept in
//     source order as a list of variants rather than overwriting each other;
//   - a key line may carry an inline scalar and nested children at the same
//     time, with the scalar stored in a reserved own-value slot ("__val__")
//     next to the children.
//
// For example:
//
//	val1: 1
//	val2: 2
//	    val3: 3
//	    val3: 4
//	        val5: 5
//
// loads as
//
//	{
//	    "val1": 1,
//	    "val2": {
//	        "__val__": 2,
//	        "val3": [3, {"__val__": 4, "val5": 5}]
//	    }
//	}
//
// Parsing works in three stages: a preprocessing pass renames repeated
// sibling keys to unique synthetic names and splits inline-value-plus-
// children lines apart, the rewritten text is decoded as ordinary YAML with
// insertion order preserved, and the synthetic keys are folded back into
// variant lists. [Document.Marshal] renders the structure back out in the
// same format; the round trip is semantic rather than byte-for-byte.
package floyaml
