package doctree

// Content is what a node holds. It is sealed: the only implementations are
// *Branch, *Leaves and Empty, so a type switch over them is exhaustive.
type Content interface {
	content()
}

// Branch holds ordered child nodes.
type Branch struct {
	Children []*Node
}

// Leaves holds ordered verse/hadith-level items. A node with leaves is terminal.
type Leaves struct {
	Items []*Leaf
}

// Empty marks a node that has neither children nor leaf items.
type Empty struct{}

func (*Branch) content() {}
func (*Leaves) content() {}
func (Empty) content()   {}
