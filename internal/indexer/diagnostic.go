package indexer

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/dgallion1/corpusgest/internal/doctree"
)

// DefaultSequencePattern extracts the chapter number from an English title.
var DefaultSequencePattern = regexp.MustCompile(`Chapter (\d+)`)

// Scope decides how far a run of chapter numbers extends.
type Scope int

const (
	// ScopeSiblings restarts the expected sequence under every parent, so
	// numbering that restarts at a new volume or book is not reported.
	ScopeSiblings Scope = iota
	// ScopeCorpus keeps one expected sequence across the whole traversal,
	// for corpora whose chapters are numbered globally.
	ScopeCorpus
)

// Diagnostic is a chapter-numbering discontinuity. It is advisory: the
// traversal records it and carries on.
type Diagnostic struct {
	Path           string         `json:"path"`
	LocalIndex     int            `json:"local_index"`
	Counters       []int          `json:"counters"`
	Previous       int            `json:"previous"`
	Found          int            `json:"found"`
	Expected       int            `json:"expected"`
	PreviousTitles doctree.Titles `json:"previous_titles,omitempty"`
	Titles         doctree.Titles `json:"titles"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s (local %d, counters %v): expected chapter %d after %q, found %d in %q",
		d.Path, d.LocalIndex, d.Counters, d.Expected, d.PreviousTitles[doctree.LangEN], d.Found, d.Titles[doctree.LangEN])
}

// sequence tracks the last chapter number seen in one scope.
type sequence struct {
	prev       int
	have       bool
	prevTitles doctree.Titles
}

// chapterNumber pulls the number out of title using the last capture group
// of pattern, or the whole match when the pattern has no groups.
func chapterNumber(pattern *regexp.Regexp, title string) (int, bool) {
	m := pattern.FindStringSubmatch(title)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[len(m)-1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// check compares child's chapter number against seq and advances seq.
// Titles without a number leave seq untouched.
func (s *sequence) check(pattern *regexp.Regexp, child *doctree.Node, c Counters) (Diagnostic, bool) {
	n, ok := chapterNumber(pattern, child.Titles[doctree.LangEN])
	if !ok {
		return Diagnostic{}, false
	}
	defer func() {
		s.prev = n
		s.have = true
		s.prevTitles = child.Titles
	}()

	if !s.have || n == s.prev+1 {
		return Diagnostic{}, false
	}
	return Diagnostic{
		Path:           child.Path,
		LocalIndex:     child.LocalIndex,
		Counters:       c.Snapshot(),
		Previous:       s.prev,
		Found:          n,
		Expected:       s.prev + 1,
		PreviousTitles: s.prevTitles,
		Titles:         child.Titles,
	}, true
}
