package structure

import "strings"

// Node types.
const (
	TypeDir  = "dir"
	TypeFile = "file"
)

// RootName is the name of the synthetic root directory.
const RootName = "/"

// Node is one entry of the reconstructed tree. Children are unique by name.
type Node struct {
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Children []*Node `json:"children,omitempty"`
}

// Tree builds a Node hierarchy by find-or-create insertion.
type Tree struct {
	Root *Node
	norm Normalizer
}

// NewTree returns a tree holding only the root directory.
func NewTree(norm Normalizer) *Tree {
	return &Tree{
		Root: &Node{Name: RootName, Type: TypeDir},
		norm: norm,
	}
}

// child returns the direct child of n named name, or nil.
func (n *Node) child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Insert adds path to the tree and reports whether any node was created.
//
// Existing nodes are reused as-is: a name first inserted as a file keeps
// type file even when a later path descends through it, and vice versa.
func (t *Tree) Insert(path string) bool {
	path = t.norm.Normalize(path)

	var segs []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}

	created := false
	cur := t.Root
	for i, seg := range segs {
		next := cur.child(seg)
		if next == nil {
			typ := TypeDir
			if i == len(segs)-1 && HasExtension(seg) {
				typ = TypeFile
			}
			next = &Node{Name: seg, Type: typ}
			cur.Children = append(cur.Children, next)
			created = true
		}
		cur = next
	}
	return created
}
