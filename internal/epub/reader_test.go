package epub

import (
	"archive/zip"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// buildEPUB writes a minimal EPUB archive. The manifest covers every
// document plus every spine id, so a spine id without a document
// exercises the missing-resource path.
func buildEPUB(t *testing.T, title string, spine []string, docs map[string]string) string {
	t.Helper()

	epubPath := filepath.Join(t.TempDir(), "book.epub")
	f, err := os.Create(epubPath)
	if err != nil {
		t.Fatalf("Creating archive failed: %v", err)
	}
	zw := zip.NewWriter(f)

	add := func(name, content string) {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("Adding %s failed: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("Writing %s failed: %v", name, err)
		}
	}

	add("mimetype", "application/epub+zip")
	add("META-INF/container.xml", `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`)

	ids := make(map[string]bool)
	for id := range docs {
		ids[id] = true
	}
	for _, id := range spine {
		ids[id] = true
	}

	var manifest, spineRefs strings.Builder
	for id := range ids {
		fmt.Fprintf(&manifest, `<item id=%q href="%s.xhtml" media-type="application/xhtml+xml"/>`, id, id)
	}
	for _, id := range spine {
		fmt.Fprintf(&spineRefs, `<itemref idref=%q/>`, id)
	}

	add("OEBPS/content.opf", fmt.Sprintf(`<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" xmlns:dc="http://purl.org/dc/elements/1.1/" version="2.0">
  <metadata><dc:title>%s</dc:title><dc:language>en</dc:language></metadata>
  <manifest>%s</manifest>
  <spine>%s</spine>
</package>`, title, manifest.String(), spineRefs.String()))

	for id, content := range docs {
		add("OEBPS/"+id+".xhtml", content)
	}

	if err := zw.Close(); err != nil {
		t.Fatalf("Closing zip failed: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Closing file failed: %v", err)
	}
	return epubPath
}

func chapterDoc(title, body string) string {
	return fmt.Sprintf(`<?xml version="1.0"?>
<html xmlns="http://www.w3.org/1999/xhtml">
<head><title>ignored</title></head>
<body><h1>%s</h1>%s</body>
</html>`, title, body)
}

func TestRead_SpineOrder(t *testing.T) {
	docs := map[string]string{
		"alpha": chapterDoc("Alpha", "<p>Alpha text.</p>"),
		"beta":  chapterDoc("Beta", "<p>Beta text.</p>"),
		"gamma": chapterDoc("Gamma", "<p>Gamma text.</p>"),
	}
	epubPath := buildEPUB(t, "Ordering", []string{"gamma", "alpha", "beta"}, docs)

	book, err := Read(epubPath)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(book.Chapters) != 3 {
		t.Fatalf("Expected 3 chapters, got %d", len(book.Chapters))
	}

	wantTitles := []string{"Gamma", "Alpha", "Beta"}
	for i, want := range wantTitles {
		ch := book.Chapters[i]
		if ch.Title != want {
			t.Errorf("Expected chapter %d title %q, got %q", i, want, ch.Title)
		}
		if ch.Order != i {
			t.Errorf("Expected chapter %d order %d, got %d", i, i, ch.Order)
		}
	}
}

func TestRead_BookMetadata(t *testing.T) {
	docs := map[string]string{"one": chapterDoc("One", "<p>Text.</p>")}
	epubPath := buildEPUB(t, "A Test Book", []string{"one"}, docs)

	book, err := Read(epubPath)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if book.Title != "A Test Book" {
		t.Errorf("Expected title %q, got %q", "A Test Book", book.Title)
	}
	if book.Language != "en" {
		t.Errorf("Expected language en, got %q", book.Language)
	}
}

func TestRead_TitleFallback(t *testing.T) {
	docs := map[string]string{
		"plain": `<html><body><p>No heading anywhere.</p></body></html>`,
	}
	epubPath := buildEPUB(t, "Fallback", []string{"plain"}, docs)

	book, err := Read(epubPath)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got := book.Chapters[0].Title; got != "Chapter 1" {
		t.Errorf("Expected fallback title %q, got %q", "Chapter 1", got)
	}
}

func TestRead_PlainText(t *testing.T) {
	body := `<p>First paragraph with an &amp; entity.</p>
<p>Second <em>emphasized</em> paragraph.</p>
<script>var junk = "never speak this";</script>
<style>.hidden { display: none }</style>`
	docs := map[string]string{"ch": chapterDoc("Markup", body)}
	epubPath := buildEPUB(t, "Text", []string{"ch"}, docs)

	book, err := Read(epubPath)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	text := book.Chapters[0].Text

	if !strings.Contains(text, "First paragraph with an & entity.") {
		t.Errorf("Expected decoded entity in text, got %q", text)
	}
	if !strings.Contains(text, "Second emphasized paragraph.") {
		t.Errorf("Expected inline markup stripped, got %q", text)
	}
	if !strings.Contains(text, ".\n\nSecond") {
		t.Errorf("Expected paragraph break between paragraphs, got %q", text)
	}
	if strings.Contains(text, "junk") || strings.Contains(text, "hidden") {
		t.Errorf("Expected script and style content dropped, got %q", text)
	}
	if strings.Contains(text, "ignored") {
		t.Errorf("Expected head title dropped, got %q", text)
	}
	if strings.Contains(text, "<") {
		t.Errorf("Expected no markup in text, got %q", text)
	}
}

func TestRead_MissingResourceKeepsSpineNumbering(t *testing.T) {
	docs := map[string]string{"real": chapterDoc("Real", "<p>Content.</p>")}
	epubPath := buildEPUB(t, "Gaps", []string{"ghost", "real"}, docs)

	book, err := Read(epubPath)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(book.Chapters) != 1 {
		t.Fatalf("Expected the missing resource to be skipped, got %d chapters", len(book.Chapters))
	}
	if got := book.Chapters[0].Order; got != 1 {
		t.Errorf("Expected surviving chapter to keep spine position 1, got %d", got)
	}
}

func TestRead_NotAnArchive(t *testing.T) {
	bogus := filepath.Join(t.TempDir(), "not.epub")
	if err := os.WriteFile(bogus, []byte("just text"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if _, err := Read(bogus); err == nil {
		t.Error("Expected error for a non-zip file")
	}
}

func TestRead_MissingContainer(t *testing.T) {
	bare := filepath.Join(t.TempDir(), "bare.epub")
	f, err := os.Create(bare)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	zw := zip.NewWriter(f)
	w, err := zw.Create("mimetype")
	if err != nil {
		t.Fatalf("Create member failed: %v", err)
	}
	if _, err := w.Write([]byte("application/epub+zip")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("Close zip failed: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close file failed: %v", err)
	}

	if _, err := Read(bare); !errors.Is(err, ErrNoContainer) {
		t.Errorf("Expected ErrNoContainer, got %v", err)
	}
}

func TestRead_EmptySpine(t *testing.T) {
	docs := map[string]string{"orphan": chapterDoc("Orphan", "<p>Text.</p>")}
	epubPath := buildEPUB(t, "Empty", nil, docs)

	if _, err := Read(epubPath); !errors.Is(err, ErrEmptySpine) {
		t.Errorf("Expected ErrEmptySpine, got %v", err)
	}
}

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"h1", `<h1>The Title</h1>`, "The Title"},
		{"h2 with attrs", `<h2 class="chapter">Second Level</h2>`, "Second Level"},
		{"entities", `<h1>War &amp; Peace</h1>`, "War & Peace"},
		{"whitespace only", `<h1>   </h1>`, "Chapter 5"},
		{"no heading", `<p>body</p>`, "Chapter 5"},
		{"h4 ignored", `<h4>Too Deep</h4>`, "Chapter 5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractTitle(tt.doc, 4); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}
