package doctree

// Walk visits n and its descendants in pre-order. depth is 0 for n itself.
// Returning false from fn skips that node's subtree.
func Walk(n *Node, fn func(node *Node, depth int) bool) {
	walk(n, 0, fn)
}

func walk(n *Node, depth int, fn func(*Node, int) bool) {
	if n == nil || !fn(n, depth) {
		return
	}
	for _, child := range n.Children() {
		walk(child, depth+1, fn)
	}
}

// Clone deep-copies the unindexed shape of n: kinds, titles, descriptions,
// meta and content. Indexer-owned fields are left zero on every copy, so a
// clone behaves like a freshly built tree.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := &Node{
		Kind:         n.Kind,
		Titles:       n.Titles.Clone(),
		Descriptions: n.Descriptions.Clone(),
	}
	if n.Meta != nil {
		out.Meta = make(map[string]string, len(n.Meta))
		for k, v := range n.Meta {
			out.Meta[k] = v
		}
	}

	switch n.Content.(type) {
	case *Branch:
		src := n.Children()
		children := make([]*Node, len(src))
		for i, child := range src {
			children[i] = child.Clone()
		}
		out.Content = &Branch{Children: children}
	case *Leaves:
		src := n.Items()
		items := make([]*Leaf, len(src))
		for i, leaf := range src {
			items[i] = leaf.clone()
		}
		out.Content = &Leaves{Items: items}
	case Empty, *Empty:
		out.Content = Empty{}
	}
	return out
}

func (l *Leaf) clone() *Leaf {
	if l == nil {
		return nil
	}
	out := &Leaf{
		Kind:      l.Kind,
		Text:      l.Text,
		ChainText: l.ChainText,
		SajdaType: l.SajdaType,
	}
	if l.Translations != nil {
		out.Translations = append([]Translation(nil), l.Translations...)
	}
	return out
}

// CopyCrumbs returns a copy of crumbs with room for one more entry.
func CopyCrumbs(crumbs []Crumb) []Crumb {
	out := make([]Crumb, len(crumbs), len(crumbs)+1)
	copy(out, crumbs)
	return out
}
