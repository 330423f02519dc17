package parse

import (
	"github.com/pkg/errors"

	"github.com/arrlang/nial/internal/array"
)

// NewNode builds the fixed-layout parse-tree node for tag, per the
// table in section 6: a Mixed array whose first item is the integer tag
// and whose remaining items are the tag's fields in the documented
// order. Parse-tree nodes are permanent (section 3): the heap's normal
// refcounting rules apply, but eval never releases a node it did not
// itself allocate.
func NewNode(h *array.Heap, tag Tag, items ...*array.Array) (*array.Array, error) {
	n, err := h.NewMixed([]int{len(items) + 1})
	if err != nil {
		return nil, errors.Wrap(err, "NewNode")
	}
	n.SetItem(h, 0, h.IntScalar(int64(tag)))
	for i, it := range items {
		n.SetItem(h, i+1, it)
	}
	return n, nil
}

// TagOf returns the tag of a parse-tree node.
func TagOf(n *array.Array) Tag {
	return Tag(n.Item(0).Int(0))
}

// Field returns the i'th field of a node, 0-based after the tag (so
// Field(n, 0) is the node's first documented field, i.e. array item 1).
func Field(n *array.Array, i int) *array.Array {
	return n.Item(i + 1)
}

// NumFields returns the number of documented fields (excluding the tag
// item).
func NumFields(n *array.Array) int {
	return n.Tally() - 1
}

// IsTag reports whether n is a parse-tree node carrying tag. Used by
// dispatch sites that need to distinguish a parse tree from ordinary
// data flowing through the same Mixed representation.
func IsTag(n *array.Array, tag Tag) bool {
	return n != nil && n.Kind() == array.Mixed && n.Tally() > 0 && n.Item(0) != nil &&
		n.Item(0).Kind() == array.Integer && n.Item(0).IsAtom() && Tag(n.Item(0).Int(0)) == tag
}
