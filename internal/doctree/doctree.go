package doctree

import "fmt"

// Kind tags what a node or leaf represents within a corpus.
type Kind string

const (
	KindVolume      Kind = "volume"
	KindBook        Kind = "book"
	KindChapter     Kind = "chapter"
	KindVerse       Kind = "verse"
	KindHadith      Kind = "hadith"
	KindChapterList Kind = "chapter_list" // Plain list of chapters with no volume/book grouping.
)

var kindLabels = map[Kind]string{
	KindVolume:      "Volume",
	KindBook:        "Book",
	KindChapter:     "Chapter",
	KindVerse:       "Verse",
	KindHadith:      "Hadith",
	KindChapterList: "Chapter",
}

// Valid reports whether k is one of the structural or countable kinds.
func (k Kind) Valid() bool {
	_, ok := kindLabels[k]
	return ok
}

// Label is the display name used in indexed breadcrumb titles.
func (k Kind) Label() string {
	if l, ok := kindLabels[k]; ok {
		return l
	}
	return string(k)
}

// Language codes used as Titles keys.
const (
	LangAR  = "ar"
	LangEN  = "en"
	LangENT = "ent" // English transliteration
	LangFA  = "fa"
)

// Titles maps a language code to a display string.
type Titles map[string]string

// Clone returns a copy of t, or nil for a nil map.
func (t Titles) Clone() Titles {
	if t == nil {
		return nil
	}
	out := make(Titles, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Translation is one rendering of a leaf's text.
type Translation struct {
	Name string `json:"name"`
	Lang string `json:"lang"`
	Text string `json:"text"`
}

// Crumb is one ancestor entry in a node's breadcrumb trail.
type Crumb struct {
	IndexedTitles Titles `json:"indexed_titles"`
	Titles        Titles `json:"titles,omitempty"`
	Path          string `json:"path"`
}

// Leaf is a single verse/hadith-level content unit.
type Leaf struct {
	Kind         Kind          `json:"kind"`
	Text         string        `json:"text"`
	ChainText    string        `json:"chain_text,omitempty"`
	SajdaType    string        `json:"sajda_type,omitempty"`
	Translations []Translation `json:"translations,omitempty"`

	// Assigned by the indexer.
	Index      int    `json:"index,omitempty"`
	LocalIndex int    `json:"local_index,omitempty"`
	Path       string `json:"path,omitempty"`
}

// NewLeaf creates an unindexed leaf.
func NewLeaf(kind Kind, text string, translations ...Translation) *Leaf {
	return &Leaf{Kind: kind, Text: text, Translations: translations}
}

// Node is one structural unit of a corpus: volume, book, chapter or chapter list.
//
// Index, LocalIndex, Path, VerseStartIndex, VerseCount and Crumbs belong to
// the indexer. Builders leave them unset and sinks only read them; the one
// exception is the corpus root, whose Path and Crumbs are supplied through
// SetRoot before indexing.
type Node struct {
	Kind         Kind
	Titles       Titles
	Descriptions Titles
	Meta         map[string]string
	Content      Content

	Index           int
	LocalIndex      int
	Path            string
	VerseStartIndex int
	VerseCount      int
	Crumbs          []Crumb
}

// NewBranch creates a node whose content is an ordered list of child nodes.
func NewBranch(kind Kind, titles Titles, children ...*Node) *Node {
	return &Node{Kind: kind, Titles: titles, Content: &Branch{Children: children}}
}

// NewLeaves creates a terminal node carrying leaf items.
func NewLeaves(kind Kind, titles Titles, items ...*Leaf) *Node {
	return &Node{Kind: kind, Titles: titles, Content: &Leaves{Items: items}}
}

// NewEmpty creates a node with neither children nor leaf items.
func NewEmpty(kind Kind, titles Titles) *Node {
	return &Node{Kind: kind, Titles: titles, Content: Empty{}}
}

// WithDescriptions sets n's descriptions and returns n.
func (n *Node) WithDescriptions(d Titles) *Node {
	n.Descriptions = d
	return n
}

// SetRoot prepares n as a corpus root mounted at path.
func (n *Node) SetRoot(path string, crumbs []Crumb) {
	n.Path = path
	n.Crumbs = crumbs
}

// Children returns n's child nodes, or nil when n is not a branch.
func (n *Node) Children() []*Node {
	if b, ok := n.Content.(*Branch); ok && b != nil {
		return b.Children
	}
	return nil
}

// Items returns n's leaf items, or nil when n is not leaf-bearing.
func (n *Node) Items() []*Leaf {
	if l, ok := n.Content.(*Leaves); ok && l != nil {
		return l.Items
	}
	return nil
}

// Append adds child to a branch node. It panics if n is not a branch; builders
// decide a node's shape when they create it.
func (n *Node) Append(child *Node) {
	b, ok := n.Content.(*Branch)
	if !ok || b == nil {
		panic(fmt.Sprintf("doctree: Append on %s node with %T content", n.Kind, n.Content))
	}
	b.Children = append(b.Children, child)
}

// AppendLeaf adds a leaf item to a leaf-bearing node. It panics if n is not leaf-bearing.
func (n *Node) AppendLeaf(leaf *Leaf) {
	l, ok := n.Content.(*Leaves)
	if !ok || l == nil {
		panic(fmt.Sprintf("doctree: AppendLeaf on %s node with %T content", n.Kind, n.Content))
	}
	l.Items = append(l.Items, leaf)
}

// Title returns the title in lang, falling back to English.
func (n *Node) Title(lang string) string {
	if t := n.Titles[lang]; t != "" {
		return t
	}
	return n.Titles[LangEN]
}
