// Package indexer assigns indices, paths, verse counts and breadcrumbs to a
// doctree and reports chapter-numbering discontinuities found on the way.
package indexer

import (
	"log/slog"
	"regexp"
	"strconv"

	"github.com/dgallion1/corpusgest/internal/doctree"
)

// Indexer holds per-corpus indexing rules. It keeps no traversal state, so
// one Indexer may index several trees, concurrently if each call gets its own
// tree and Counters.
type Indexer struct {
	countable func(doctree.Kind) bool
	pattern   *regexp.Regexp
	scope     Scope
	crumbLang string
	log       *slog.Logger
}

// Option configures an Indexer.
type Option func(*Indexer)

// DefaultCountable counts verses and hadiths.
func DefaultCountable(k doctree.Kind) bool {
	return k == doctree.KindVerse || k == doctree.KindHadith
}

// WithCountable sets the predicate deciding which leaf kinds are counted.
// A nil predicate counts nothing.
func WithCountable(fn func(doctree.Kind) bool) Option {
	return func(ix *Indexer) { ix.countable = fn }
}

// WithSequencePattern sets the regexp used to read chapter numbers from
// English titles. A nil pattern disables the sequence check.
func WithSequencePattern(re *regexp.Regexp) Option {
	return func(ix *Indexer) { ix.pattern = re }
}

// WithSequenceScope sets how far one run of chapter numbers extends.
func WithSequenceScope(s Scope) Option {
	return func(ix *Indexer) { ix.scope = s }
}

// WithCrumbLanguage sets the language key of generated crumb titles.
func WithCrumbLanguage(lang string) Option {
	return func(ix *Indexer) { ix.crumbLang = lang }
}

// WithLogger sets the logger for traversal debug output.
func WithLogger(log *slog.Logger) Option {
	return func(ix *Indexer) { ix.log = log }
}

// New creates an Indexer with default rules, then applies opts.
func New(opts ...Option) *Indexer {
	ix := &Indexer{
		countable: DefaultCountable,
		pattern:   DefaultSequencePattern,
		scope:     ScopeSiblings,
		crumbLang: doctree.LangEN,
		log:       slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Result is the outcome of indexing a whole corpus tree.
type Result struct {
	Root        *doctree.Node
	Counters    Counters
	Diagnostics []Diagnostic
	Nodes       int // structural nodes indexed, root excluded
	Leaves      int // countable leaves indexed
}

// IndexTree indexes root as a corpus mounted at path, starting from zero
// counters at depth 0. The root's crumbs are reset to empty.
func (ix *Indexer) IndexTree(root *doctree.Node, path string) (*Result, error) {
	if root != nil {
		root.SetRoot(path, nil)
	}
	p := ix.newPass()
	counters, err := p.run(root, NewCounters(), 0)
	if err != nil {
		return nil, err
	}
	return &Result{
		Root:        root,
		Counters:    counters,
		Diagnostics: p.diags,
		Nodes:       p.nodes,
		Leaves:      p.leaves,
	}, nil
}

// Index assigns indices below node, whose Path and Crumbs the caller has
// already set, and returns the advanced counters plus any sequence
// diagnostics. node's own Index and Path are never touched.
//
// On error the tree is partially indexed and must be discarded; counters are
// returned as they stood when the violation was found.
func (ix *Indexer) Index(node *doctree.Node, counters Counters, depth int) (Counters, []Diagnostic, error) {
	p := ix.newPass()
	counters, err := p.run(node, counters, depth)
	return counters, p.diags, err
}

// pass is the state of one traversal.
type pass struct {
	*Indexer
	seen   map[*doctree.Node]struct{}
	corpus sequence
	diags  []Diagnostic
	nodes  int
	leaves int
	warned bool
}

func (ix *Indexer) newPass() *pass {
	return &pass{Indexer: ix, seen: make(map[*doctree.Node]struct{})}
}

func (p *pass) run(node *doctree.Node, c Counters, depth int) (Counters, error) {
	if err := p.enter(node, "", depth); err != nil {
		return c, err
	}
	node.VerseStartIndex = c.Leaves()
	return p.index(node, c, depth)
}

// enter rejects nodes the traversal cannot index and marks node as seen.
func (p *pass) enter(node *doctree.Node, path string, depth int) error {
	if node == nil {
		return &NodeError{Path: path, Err: ErrNilNode}
	}
	if path == "" {
		path = node.Path
	}
	if !node.Kind.Valid() {
		return &NodeError{Path: path, Kind: node.Kind, Err: ErrUnknownKind}
	}
	if _, ok := p.seen[node]; ok {
		return &NodeError{Path: path, Kind: node.Kind, Err: ErrCycle}
	}
	p.seen[node] = struct{}{}
	return nil
}

func (p *pass) index(node *doctree.Node, c Counters, depth int) (Counters, error) {
	c = c.clone()
	c.extend(depth)

	switch content := node.Content.(type) {
	case *doctree.Leaves:
		if content == nil {
			return c, &NodeError{Path: node.Path, Kind: node.Kind, Err: ErrMissingContent}
		}
		if p.countable == nil {
			if !p.warned {
				p.log.Warn("no countable predicate, leaf items left unindexed", "path", node.Path)
				p.warned = true
			}
			node.VerseCount = 0
			return c, nil
		}
		local := 0
		for i, leaf := range content.Items {
			if leaf == nil {
				return c, &NodeError{Path: node.Path + ":" + strconv.Itoa(i+1), Err: ErrNilNode}
			}
			if !p.countable(leaf.Kind) {
				continue
			}
			local++
			c.leaves++
			p.leaves++
			leaf.Index = c.next(depth)
			leaf.LocalIndex = local
			leaf.Path = node.Path + ":" + strconv.Itoa(local)
		}
		node.VerseCount = c.Leaves() - node.VerseStartIndex

	case *doctree.Branch:
		if content == nil {
			return c, &NodeError{Path: node.Path, Kind: node.Kind, Err: ErrMissingContent}
		}
		var siblings sequence
		seq := &siblings
		if p.scope == ScopeCorpus {
			seq = &p.corpus
		}

		for i, child := range content.Children {
			local := i + 1
			path := node.Path + ":" + strconv.Itoa(local)
			if err := p.enter(child, path, depth+1); err != nil {
				return c, err
			}

			child.Index = c.next(depth)
			child.LocalIndex = local
			child.Path = path
			child.VerseStartIndex = c.Leaves()
			child.Crumbs = append(doctree.CopyCrumbs(node.Crumbs), doctree.Crumb{
				IndexedTitles: doctree.Titles{p.crumbLang: child.Kind.Label() + " " + strconv.Itoa(local)},
				Titles:        child.Titles,
				Path:          path,
			})
			p.nodes++

			if child.Kind == doctree.KindChapter && p.pattern != nil {
				if d, bad := seq.check(p.pattern, child, c); bad {
					p.log.Debug("chapter sequence mismatch", "path", d.Path, "expected", d.Expected, "found", d.Found)
					p.diags = append(p.diags, d)
				}
			}

			var err error
			c, err = p.index(child, c, depth+1)
			if err != nil {
				return c, err
			}
		}
		node.VerseCount = c.Leaves() - node.VerseStartIndex

	case doctree.Empty, *doctree.Empty:
		node.VerseCount = 0

	default:
		return c, &NodeError{Path: node.Path, Kind: node.Kind, Err: ErrMissingContent}
	}

	return c, nil
}
