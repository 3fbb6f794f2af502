package builder

import (
	"strings"
	"unicode"

	"github.com/dgallion1/corpusgest/internal/doctree"
	"golang.org/x/text/unicode/norm"
)

// defaultTranslator names English translations when the corpus does not.
const defaultTranslator = "default"

// section is a heading and what was collected under it before the outline
// is frozen into doctree nodes.
type section struct {
	title    string
	level    int
	children []*section
	leaves   []*doctree.Leaf
}

// outline builds a heading hierarchy from a flat stream of headings and
// paragraphs. Headings nest by level; paragraphs attach to the innermost
// open heading.
type outline struct {
	root       *section
	stack      []*section
	translator string
}

func newOutline(title, translator string) *outline {
	if translator == "" {
		translator = defaultTranslator
	}
	root := &section{title: title}
	return &outline{root: root, stack: []*section{root}, translator: translator}
}

func (o *outline) top() *section {
	return o.stack[len(o.stack)-1]
}

// heading opens a section at level (1 is outermost).
func (o *outline) heading(level int, title string) {
	s := &section{title: clean(title), level: level}
	for len(o.stack) > 1 && o.top().level >= level {
		o.stack = o.stack[:len(o.stack)-1]
	}
	parent := o.top()
	parent.children = append(parent.children, s)
	o.stack = append(o.stack, s)
}

// text adds a paragraph. Right after an Arabic paragraph it becomes that
// hadith's English translation; otherwise it is a verse of its own.
func (o *outline) text(t string) {
	t = clean(t)
	if t == "" {
		return
	}
	s := o.top()
	if n := len(s.leaves); n > 0 && s.leaves[n-1].Kind == doctree.KindHadith {
		last := s.leaves[n-1]
		for i := range last.Translations {
			if last.Translations[i].Lang == doctree.LangEN {
				last.Translations[i].Text += "\n\n" + t
				return
			}
		}
		last.Translations = append(last.Translations, doctree.Translation{
			Name: o.translator,
			Lang: doctree.LangEN,
			Text: t,
		})
		return
	}
	s.leaves = append(s.leaves, doctree.NewLeaf(doctree.KindVerse, t))
}

// arabic starts a new hadith whose text is t.
func (o *outline) arabic(t string) {
	t = clean(t)
	if t == "" {
		return
	}
	s := o.top()
	s.leaves = append(s.leaves, doctree.NewLeaf(doctree.KindHadith, t))
}

// tree freezes the outline. The root is a chapter list when it has
// headings under it and a single chapter otherwise.
func (o *outline) tree() *doctree.Node {
	if len(o.root.children) == 0 {
		return o.root.node(doctree.KindChapter)
	}
	return o.root.node(doctree.KindChapterList)
}

func (s *section) node(branchKind doctree.Kind) *doctree.Node {
	titles := titlesFor(s.title)
	if len(s.children) == 0 {
		if len(s.leaves) == 0 {
			return doctree.NewEmpty(doctree.KindChapter, titles)
		}
		return doctree.NewLeaves(doctree.KindChapter, titles, s.leaves...)
	}

	children := make([]*doctree.Node, len(s.children))
	for i, c := range s.children {
		children[i] = c.node(doctree.KindBook)
	}
	n := doctree.NewBranch(branchKind, titles, children...)
	// Text ahead of the first subheading has no leaf slot in a branch.
	if intro := s.intro(); intro != "" {
		n.WithDescriptions(titlesFor(intro))
	}
	return n
}

func (s *section) intro() string {
	parts := make([]string, 0, len(s.leaves))
	for _, l := range s.leaves {
		parts = append(parts, l.Text)
	}
	return strings.Join(parts, "\n\n")
}

// clean trims t and composes it to NFC so the same word typed with
// decomposed harakat compares equal.
func clean(t string) string {
	return strings.TrimSpace(norm.NFC.String(t))
}

// titlesFor keys t under ar when it is mostly Arabic script, else en.
func titlesFor(t string) doctree.Titles {
	if t == "" {
		return nil
	}
	if isArabic(t) {
		return doctree.Titles{doctree.LangAR: t}
	}
	return doctree.Titles{doctree.LangEN: t}
}

// isArabic reports whether most letters in s are Arabic script.
func isArabic(s string) bool {
	var arabic, letters int
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.Is(unicode.Arabic, r) {
			arabic++
		}
	}
	return letters > 0 && arabic*2 > letters
}
