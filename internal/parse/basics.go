package parse

import "github.com/arrlang/nial/internal/array"

// basicDesc describes one entry of the small fixed-index primitive
// table the parser consults to build `basic` nodes (section 6 layout
// `[tag, index, role, prop, bin-index]`). The concrete primitive
// operation library is explicitly out of scope for this core (section
// 1); what belongs here is only the small set of names the parser must
// recognize by spelling so it can route to the basic-binopcall fast
// path and so the evaluator (internal/eval) has a closed index space to
// dispatch on. A hosting program wires the actual arithmetic/array
// behavior behind these indices.
type basicDesc struct {
	name          string
	index         int64
	isTransformer bool
	pervasive     bool // pervasive AND binary: eligible for the basic-binopcall fast path
}

// basics is the fixed table, ordered so index is stable across a
// process's lifetime (parse trees embed the index directly).
var basics = []basicDesc{
	{name: "+", index: 0, pervasive: true},
	{name: "-", index: 1, pervasive: true},
	{name: "*", index: 2, pervasive: true},
	{name: "/", index: 3, pervasive: true},
	{name: "FIRST", index: 4},
	{name: "REST", index: 5},
	{name: "LINK", index: 6},
	{name: "REVERSE", index: 7},
	{name: "TALLY", index: 8},
	{name: "SHAPE", index: 9},
	{name: "EACH", index: 10, isTransformer: true},
	{name: "FOLD", index: 11, isTransformer: true},
	{name: "CATCH", index: 12},
	{name: "THROW", index: 13},
}

var basicByName = func() map[string]basicDesc {
	m := make(map[string]basicDesc, len(basics))
	for _, b := range basics {
		m[b.name] = b
	}
	return m
}()

func lookupBasic(name string) (basicDesc, bool) {
	b, ok := basicByName[name]
	return b, ok
}

// BasicName reverse-looks-up a basic's spelling from its index, for
// internal/deparse to render a `basic` node back to source text.
func BasicName(index int64) (string, bool) {
	for _, b := range basics {
		if b.index == index {
			return b.name, true
		}
	}
	return "", false
}

// node builds this primitive's `basic` parse-tree node.
func (b basicDesc) node(h *array.Heap) (*array.Array, error) {
	role := int64(0)
	if b.isTransformer {
		role = 1
	}
	binIndex := int64(-1)
	if b.pervasive {
		binIndex = b.index
	}
	prop := int64(0)
	if b.pervasive {
		prop = 1
	}
	return NewNode(h, TagBasic, h.IntScalar(b.index), h.IntScalar(role), h.IntScalar(prop), h.IntScalar(binIndex))
}
