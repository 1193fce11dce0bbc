// Package mlhmmv implements the multi-level hash-map value (§3): a value
// that is either a terminal mlrval or an ordered key->mlhmmv map. It backs
// both the process-wide oosvar store (the @... namespace) and any local
// variable declared as map. Iteration order is insertion order, matching the
// teacher's ir.Node.Children ordered-slice convention generalized here to a
// lookup-augmented ordered map (O(1) key lookup, per the design note in
// spec.md §9).
package mlhmmv

import "github.com/ichobits/miller/internal/mlrval"

// Node is one level of an mlhmmv: either a terminal leaf holding a scalar
// Mlrval, or a non-terminal ordered map of key Mlrvals to child Nodes.
type Node struct {
	terminal bool
	leaf     mlrval.Mlrval

	keys     []mlrval.Mlrval
	children []*Node
	index    map[string]int
}

// NewMap returns an empty non-terminal node.
func NewMap() *Node {
	return &Node{index: make(map[string]int)}
}

// Leaf returns a terminal node wrapping v.
func Leaf(v mlrval.Mlrval) *Node {
	return &Node{terminal: true, leaf: v}
}

// MlhmmvMarker satisfies mlrval.MapValue.
func (n *Node) MlhmmvMarker() {}

// Len reports the number of entries at this level (0 for a terminal node),
// satisfying mlrval.MapValue.
func (n *Node) Len() int {
	if n == nil || n.terminal {
		return 0
	}
	return len(n.keys)
}

// IsTerminal reports whether n is a leaf.
func (n *Node) IsTerminal() bool { return n != nil && n.terminal }

// LeafValue returns the terminal value. Only meaningful when IsTerminal is true.
func (n *Node) LeafValue() mlrval.Mlrval { return n.leaf }

// Keys returns a copy of this level's keys in insertion order.
func (n *Node) Keys() []mlrval.Mlrval {
	if n == nil || n.terminal {
		return nil
	}
	out := make([]mlrval.Mlrval, len(n.keys))
	copy(out, n.keys)
	return out
}

// Entries returns this level's (key, child) pairs in insertion order. The
// returned slices must not be mutated by the caller.
func (n *Node) Entries() ([]mlrval.Mlrval, []*Node) {
	if n == nil || n.terminal {
		return nil, nil
	}
	return n.keys, n.children
}

// Get looks up key at this level.
func (n *Node) Get(key mlrval.Mlrval) (*Node, bool) {
	if n == nil || n.terminal {
		return nil, false
	}
	i, ok := n.index[key.KeyString()]
	if !ok {
		return nil, false
	}
	return n.children[i], true
}

// Put inserts or replaces the child at key, preserving the key's original
// insertion position on replace and appending on first insert.
func (n *Node) Put(key mlrval.Mlrval, child *Node) {
	ks := key.KeyString()
	if i, ok := n.index[ks]; ok {
		n.children[i] = child
		return
	}
	n.index[ks] = len(n.keys)
	n.keys = append(n.keys, key)
	n.children = append(n.children, child)
}

// Remove deletes key's entry, if present, shifting later entries down to
// preserve insertion order and keep the index dense.
func (n *Node) Remove(key mlrval.Mlrval) bool {
	if n == nil || n.terminal {
		return false
	}
	i, ok := n.index[key.KeyString()]
	if !ok {
		return false
	}
	n.keys = append(n.keys[:i], n.keys[i+1:]...)
	n.children = append(n.children[:i], n.children[i+1:]...)
	delete(n.index, key.KeyString())
	for ks, idx := range n.index {
		if idx > i {
			n.index[ks] = idx - 1
		}
	}
	return true
}

// Clear empties a non-terminal node in place, used by "unset all"/"unset @*"
// (§4.3.5), which clears the oosvar root without replacing its identity.
func (n *Node) Clear() {
	if n == nil || n.terminal {
		return
	}
	n.keys = nil
	n.children = nil
	n.index = make(map[string]int)
}

// DeepCopy returns a structure-preserving, order-identical copy of n, O(size)
// in the subtree rooted at n. Required before for-map-loop iteration (§4.3.3
// step 2): the body may mutate the same path in the original, and iteration
// must not observe such mutation.
func DeepCopy(n *Node) *Node {
	if n == nil {
		return nil
	}
	if n.terminal {
		return Leaf(mlrval.DeepCopyScalar(n.leaf))
	}
	cp := NewMap()
	for i, k := range n.keys {
		cp.Put(k, DeepCopy(n.children[i]))
	}
	return cp
}

// ToMlrval wraps n as a map-tagged Mlrval, or returns its scalar leaf
// directly if n is terminal.
func ToMlrval(n *Node) mlrval.Mlrval {
	if n == nil {
		return mlrval.Absent()
	}
	if n.terminal {
		return n.leaf
	}
	return mlrval.FromMap(n)
}

// FromMlrval unwraps a map-tagged Mlrval back to its *Node, or wraps a
// scalar as a terminal node.
func FromMlrval(v mlrval.Mlrval) *Node {
	if m, ok := v.AsMap(); ok {
		if n, ok := m.(*Node); ok {
			return n
		}
	}
	return Leaf(v)
}
