package builder

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgallion1/corpusgest/internal/doctree"
)

const quranXML = `<?xml version="1.0" encoding="utf-8"?>
<quran type="metadata">
  <suras alias="chapters">
    <sura index="1" ayas="3" start="0" name="الفاتحة" tname="Al-Faatiha" ename="The Opening" type="Meccan" order="5" rukus="1"/>
    <sura index="2" ayas="2" start="3" name="البقرة" tname="Al-Baqara" ename="The Cow" type="Medinan" order="87" rukus="40"/>
  </suras>
  <sajdas>
    <sajda index="1" sura="2" aya="2" type="recommended"/>
  </sajdas>
</quran>`

const quranText = `# tanzil sample
بسم الله
الحمد لله
الرحمن الرحيم

الم
ذلك الكتاب
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestQuranBuilder_SurasAndTranslations(t *testing.T) {
	dir := t.TempDir()
	b := &QuranBuilder{
		Metadata: writeFile(t, dir, "quran-data.xml", quranXML),
		Translations: []TranslationFile{
			{Name: "sahih", Lang: "en", Path: writeFile(t, dir, "en.sahih.txt", "In the name\nPraise\nMerciful\nAlif Lam Mim\nThat is the Book\n")},
		},
	}
	root, err := b.Build(strings.NewReader(quranText), "quran-simple.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if root.Title(doctree.LangEN) != "The Noble Quran" {
		t.Errorf("unexpected root title %q", root.Title(doctree.LangEN))
	}
	suras := root.Children()
	if len(suras) != 2 {
		t.Fatalf("expected 2 suras, got %d", len(suras))
	}

	fatiha := suras[0]
	if fatiha.Titles[doctree.LangENT] != "Al-Faatiha" || fatiha.Titles[doctree.LangAR] != "الفاتحة" {
		t.Errorf("unexpected titles %v", fatiha.Titles)
	}
	if fatiha.Meta[MetaRevelation] != "Meccan" || fatiha.Meta[MetaOrder] != "5" {
		t.Errorf("unexpected meta %v", fatiha.Meta)
	}
	if len(fatiha.Items()) != 3 {
		t.Fatalf("expected 3 ayas, got %d", len(fatiha.Items()))
	}

	baqara := suras[1]
	items := baqara.Items()
	if items[0].Text != "الم" {
		t.Errorf("expected first aya of sura 2, got %q", items[0].Text)
	}
	if items[1].SajdaType != "recommended" || baqara.Meta[MetaSajda] != "recommended" {
		t.Errorf("expected sajda on 2:2, got leaf %q meta %q", items[1].SajdaType, baqara.Meta[MetaSajda])
	}
	if len(items[1].Translations) != 1 || items[1].Translations[0].Text != "That is the Book" {
		t.Errorf("unexpected translations %+v", items[1].Translations)
	}
}

func TestQuranBuilder_Errors(t *testing.T) {
	dir := t.TempDir()
	meta := writeFile(t, dir, "quran-data.xml", quranXML)

	tests := []struct {
		name string
		b    *QuranBuilder
		text string
	}{
		{"no metadata", &QuranBuilder{}, quranText},
		{"missing metadata file", &QuranBuilder{Metadata: filepath.Join(dir, "nope.xml")}, quranText},
		{"too few ayas", &QuranBuilder{Metadata: meta}, "a\nb\n"},
		{"too many ayas", &QuranBuilder{Metadata: meta}, quranText + "extra\n"},
		{
			"translation misaligned",
			&QuranBuilder{Metadata: meta, Translations: []TranslationFile{
				{Name: "short", Lang: "en", Path: writeFile(t, dir, "short.txt", "one\n")},
			}},
			quranText,
		},
		{
			"sajda out of range",
			&QuranBuilder{Metadata: writeFile(t, dir, "bad-sajda.xml",
				strings.Replace(quranXML, `aya="2" type`, `aya="9" type`, 1))},
			quranText,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.b.Build(strings.NewReader(tt.text), "q.txt"); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}
