package builder

import (
	"bufio"
	"fmt"
	"io"

	"github.com/dgallion1/corpusgest/internal/doctree"
)

// TextBuilder reads a plain chapter list: blocks separated by blank lines,
// where the first line of a block is the chapter title and every further
// line is one verse.
type TextBuilder struct{}

func (b *TextBuilder) Build(r io.Reader, name string) (*doctree.Node, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	root := doctree.NewBranch(doctree.KindChapterList, titlesFor(baseTitle(name)))
	var block []string

	flush := func() {
		if len(block) == 0 {
			return
		}
		titles := titlesFor(block[0])
		if len(block) == 1 {
			root.Append(doctree.NewEmpty(doctree.KindChapter, titles))
		} else {
			ch := doctree.NewLeaves(doctree.KindChapter, titles)
			for _, line := range block[1:] {
				kind := doctree.KindVerse
				if isArabic(line) {
					kind = doctree.KindHadith
				}
				ch.AppendLeaf(doctree.NewLeaf(kind, line))
			}
			root.Append(ch)
		}
		block = block[:0]
	}

	for scanner.Scan() {
		line := clean(scanner.Text())
		if line == "" {
			flush()
			continue
		}
		block = append(block, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read text: %w", err)
	}
	flush()
	return root, nil
}
