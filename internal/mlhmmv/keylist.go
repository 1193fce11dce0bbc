package mlhmmv

import "github.com/ichobits/miller/internal/mlrval"

// Keylist is an ordered sequence of Mlrvals addressing a position in an
// mlhmmv, e.g. ["a", 3, "x"] addresses @a[3]["x"] (§3).
type Keylist []mlrval.Mlrval

// GetByKeylist walks root by kl, returning the node at that path. An empty
// keylist returns root itself.
func GetByKeylist(root *Node, kl Keylist) (*Node, bool) {
	n := root
	for _, k := range kl {
		if n == nil || n.terminal {
			return nil, false
		}
		child, ok := n.Get(k)
		if !ok {
			return nil, false
		}
		n = child
	}
	return n, true
}

// PutByKeylist stores val at the path described by kl, autovivifying
// intermediate levels (creating empty maps) as needed. val may be a scalar
// or a map-tagged Mlrval, in which case the wrapped subtree is attached
// directly (FromMlrval). An empty keylist is a no-op; PutByKeylist never
// changes the identity of non-terminal intermediate nodes it walks through,
// only their contents, since the oosvar root and local map slots are held
// by pointer.
func PutByKeylist(root *Node, kl Keylist, val mlrval.Mlrval) {
	if len(kl) == 0 {
		// Root is being replaced wholesale; callers that need this (e.g.
		// "@* = $*" or a bare "@x = {...}") replace their own pointer
		// instead of calling PutByKeylist with an empty keylist.
		return
	}
	n := root
	for i, k := range kl {
		last := i == len(kl)-1
		if n.terminal {
			// A scalar occupied this path; autovivification overwrites it
			// with a fresh map level so the rest of the path can be built.
			n.terminal = false
			n.leaf = mlrval.Mlrval{}
			n.keys = nil
			n.children = nil
			n.index = make(map[string]int)
		}
		if last {
			n.Put(k, FromMlrval(val))
			return
		}
		child, ok := n.Get(k)
		if !ok {
			child = NewMap()
			n.Put(k, child)
		}
		n = child
	}
}

// RemoveByKeylist removes the subtree rooted at kl's path. An empty keylist
// clears the map in place (§3). Returns false if the path did not exist.
func RemoveByKeylist(root *Node, kl Keylist) bool {
	if len(kl) == 0 {
		root.Clear()
		return true
	}
	n := root
	for i := 0; i < len(kl)-1; i++ {
		if n == nil || n.terminal {
			return false
		}
		child, ok := n.Get(kl[i])
		if !ok {
			return false
		}
		n = child
	}
	if n == nil || n.terminal {
		return false
	}
	return n.Remove(kl[len(kl)-1])
}

// HasNull reports whether any element of kl is the absent or error value,
// used by callers to implement the "null key => skip/no-op" rule shared by
// for-loops, emit, and assignment (§7, §4.3.1, §4.3.3).
func HasNull(kl Keylist) bool {
	for _, k := range kl {
		if k.IsAbsent() || k.IsError() {
			return true
		}
	}
	return false
}
