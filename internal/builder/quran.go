package builder

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dgallion1/corpusgest/internal/doctree"
)

// Meta keys set on sura nodes.
const (
	MetaRevelation = "type"
	MetaOrder      = "order"
	MetaRukus      = "rukus"
	MetaSajda      = "sajda_type"
)

var quranTitles = doctree.Titles{
	doctree.LangEN: "The Noble Quran",
	doctree.LangAR: "القرآن الكريم",
}

// QuranBuilder reads a tanzil text (one aya per line, # comments) together
// with the quran-data.xml sura table and any aligned translation files.
type QuranBuilder struct {
	Metadata     string
	Translations []TranslationFile
}

type quranData struct {
	Suras  []quranSura  `xml:"suras>sura"`
	Sajdas []quranSajda `xml:"sajdas>sajda"`
}

type quranSura struct {
	Index int    `xml:"index,attr"`
	Ayas  int    `xml:"ayas,attr"`
	Start int    `xml:"start,attr"`
	Name  string `xml:"name,attr"`
	TName string `xml:"tname,attr"`
	EName string `xml:"ename,attr"`
	Type  string `xml:"type,attr"`
	Order int    `xml:"order,attr"`
	Rukus int    `xml:"rukus,attr"`
}

type quranSajda struct {
	Sura int    `xml:"sura,attr"`
	Aya  int    `xml:"aya,attr"`
	Type string `xml:"type,attr"`
}

func (b *QuranBuilder) Build(r io.Reader, name string) (*doctree.Node, error) {
	if b.Metadata == "" {
		return nil, fmt.Errorf("quran: metadata file is required")
	}
	f, err := os.Open(b.Metadata)
	if err != nil {
		return nil, fmt.Errorf("open quran metadata: %w", err)
	}
	defer f.Close()

	var data quranData
	if err := xml.NewDecoder(f).Decode(&data); err != nil {
		return nil, fmt.Errorf("parse quran metadata: %w", err)
	}

	ayas, err := readAyaLines(r)
	if err != nil {
		return nil, fmt.Errorf("read quran text: %w", err)
	}
	leaves := make([]*doctree.Leaf, len(ayas))
	for i, t := range ayas {
		leaves[i] = doctree.NewLeaf(doctree.KindVerse, t)
	}

	for _, tf := range b.Translations {
		if err := attachTranslation(leaves, tf); err != nil {
			return nil, err
		}
	}
	return quranTree(data, leaves)
}

func attachTranslation(leaves []*doctree.Leaf, tf TranslationFile) error {
	f, err := os.Open(tf.Path)
	if err != nil {
		return fmt.Errorf("open translation %s: %w", tf.Name, err)
	}
	defer f.Close()

	lines, err := readAyaLines(f)
	if err != nil {
		return fmt.Errorf("read translation %s: %w", tf.Name, err)
	}
	if len(lines) != len(leaves) {
		return fmt.Errorf("translation %s has %d lines, text has %d ayas", tf.Name, len(lines), len(leaves))
	}
	for i, t := range lines {
		leaves[i].Translations = append(leaves[i].Translations, doctree.Translation{
			Name: tf.Name,
			Lang: tf.Lang,
			Text: t,
		})
	}
	return nil
}

// quranTree slices the flat aya list into suras.
func quranTree(data quranData, leaves []*doctree.Leaf) (*doctree.Node, error) {
	root := doctree.NewBranch(doctree.KindChapterList, quranTitles.Clone())
	suras := make([]*doctree.Node, len(data.Suras))
	covered := 0

	for i, s := range data.Suras {
		if s.Start != covered {
			return nil, fmt.Errorf("sura %d starts at aya %d, expected %d", s.Index, s.Start, covered)
		}
		if s.Ayas < 0 || s.Start+s.Ayas > len(leaves) {
			return nil, fmt.Errorf("sura %d: ayas %d..%d out of range (text has %d)", s.Index, s.Start, s.Start+s.Ayas, len(leaves))
		}
		titles := doctree.Titles{}
		for lang, t := range map[string]string{doctree.LangAR: s.Name, doctree.LangEN: s.EName, doctree.LangENT: s.TName} {
			if t != "" {
				titles[lang] = t
			}
		}
		items := append([]*doctree.Leaf(nil), leaves[s.Start:s.Start+s.Ayas]...)
		sura := doctree.NewLeaves(doctree.KindChapter, titles, items...)
		sura.Meta = map[string]string{
			MetaRevelation: s.Type,
			MetaOrder:      strconv.Itoa(s.Order),
			MetaRukus:      strconv.Itoa(s.Rukus),
		}
		suras[i] = sura
		root.Append(sura)
		covered += s.Ayas
	}
	if covered != len(leaves) {
		return nil, fmt.Errorf("sura table covers %d ayas, text has %d", covered, len(leaves))
	}

	for _, sj := range data.Sajdas {
		if sj.Sura < 1 || sj.Sura > len(suras) {
			return nil, fmt.Errorf("sajda: sura %d out of range", sj.Sura)
		}
		sura := suras[sj.Sura-1]
		items := sura.Items()
		if sj.Aya < 1 || sj.Aya > len(items) {
			return nil, fmt.Errorf("sajda: sura %d aya %d out of range", sj.Sura, sj.Aya)
		}
		sura.Meta[MetaSajda] = sj.Type
		items[sj.Aya-1].SajdaType = sj.Type
	}
	return root, nil
}

// readAyaLines returns the non-blank, non-comment lines of r.
func readAyaLines(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var out []string
	for scanner.Scan() {
		line := clean(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, scanner.Err()
}
