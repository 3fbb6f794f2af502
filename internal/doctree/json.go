package doctree

import (
	"encoding/json"
	"fmt"
)

// nodeJSON is the wire shape of a Node. Children and Verses are pointers so
// that presence, not length, decides the content variant.
type nodeJSON struct {
	Kind         Kind              `json:"kind"`
	Titles       Titles            `json:"titles,omitempty"`
	Descriptions Titles            `json:"descriptions,omitempty"`
	Meta         map[string]string `json:"meta,omitempty"`
	Children     *[]*Node          `json:"children,omitempty"`
	Verses       *[]*Leaf          `json:"verses,omitempty"`

	Index           int     `json:"index,omitempty"`
	LocalIndex      int     `json:"local_index,omitempty"`
	Path            string  `json:"path,omitempty"`
	VerseStartIndex int     `json:"verse_start_index,omitempty"`
	VerseCount      int     `json:"verse_count,omitempty"`
	Crumbs          []Crumb `json:"crumbs,omitempty"`
}

func (n *Node) MarshalJSON() ([]byte, error) {
	out := nodeJSON{
		Kind:            n.Kind,
		Titles:          n.Titles,
		Descriptions:    n.Descriptions,
		Meta:            n.Meta,
		Index:           n.Index,
		LocalIndex:      n.LocalIndex,
		Path:            n.Path,
		VerseStartIndex: n.VerseStartIndex,
		VerseCount:      n.VerseCount,
		Crumbs:          n.Crumbs,
	}
	switch n.Content.(type) {
	case *Branch:
		children := n.Children()
		if children == nil {
			children = []*Node{}
		}
		out.Children = &children
	case *Leaves:
		items := n.Items()
		if items == nil {
			items = []*Leaf{}
		}
		out.Verses = &items
	case Empty, *Empty, nil:
	default:
		return nil, fmt.Errorf("marshal node %q: unexpected content %T", n.Path, n.Content)
	}
	return json.Marshal(out)
}

func (n *Node) UnmarshalJSON(data []byte) error {
	var in nodeJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if in.Children != nil && in.Verses != nil {
		return fmt.Errorf("node %q declares both children and verses", in.Titles[LangEN])
	}

	*n = Node{
		Kind:            in.Kind,
		Titles:          in.Titles,
		Descriptions:    in.Descriptions,
		Meta:            in.Meta,
		Index:           in.Index,
		LocalIndex:      in.LocalIndex,
		Path:            in.Path,
		VerseStartIndex: in.VerseStartIndex,
		VerseCount:      in.VerseCount,
		Crumbs:          in.Crumbs,
	}
	switch {
	case in.Children != nil:
		n.Content = &Branch{Children: *in.Children}
	case in.Verses != nil:
		n.Content = &Leaves{Items: *in.Verses}
	default:
		n.Content = Empty{}
	}
	return nil
}
