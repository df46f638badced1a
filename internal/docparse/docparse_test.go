package docparse

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"github.com/felipesantoos/read-it-later-backend/internal/classify"
)

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("create zip entry: %v", err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatalf("write zip entry: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func epubFixture(t *testing.T) []byte {
	return buildZip(t, map[string]string{
		"META-INF/container.xml": `<?xml version="1.0"?>
<container xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles><rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/></rootfiles>
</container>`,
		"OEBPS/content.opf": `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" xmlns:dc="http://purl.org/dc/elements/1.1/">
  <metadata>
    <dc:title>Sample Book</dc:title>
    <dc:title>Alternate Title</dc:title>
    <dc:creator>Jane Roe</dc:creator>
    <dc:description>A short sample.</dc:description>
  </metadata>
  <manifest>
    <item id="ch1" href="ch1.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch2" href="ch2.xhtml" media-type="application/xhtml+xml"/>
    <item id="missing" href="nope.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine>
    <itemref idref="ch1"/>
    <itemref idref="missing"/>
    <itemref idref="ch2"/>
  </spine>
</package>`,
		"OEBPS/ch1.xhtml": `<html><body><h1>Chapter One</h1><p>First chapter text.</p></body></html>`,
		"OEBPS/ch2.xhtml": `<html><body><p>Second chapter text.</p><script>skip()</script></body></html>`,
	})
}

func TestParseEPUB(t *testing.T) {
	doc, err := ParseEPUB(epubFixture(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "Sample Book" {
		t.Fatalf("expected first title entry, got %q", doc.Title)
	}
	if doc.Author != "Jane Roe" {
		t.Fatalf("expected creator, got %q", doc.Author)
	}
	if doc.Description != "A short sample." {
		t.Fatalf("expected description, got %q", doc.Description)
	}
	// The missing chapter is skipped, not fatal.
	if doc.Pages != 2 {
		t.Fatalf("expected 2 extracted chapters, got %d", doc.Pages)
	}
	if !strings.Contains(doc.Content, "First chapter text.") || !strings.Contains(doc.Content, "Second chapter text.") {
		t.Fatalf("expected chapter text in spine order, got %q", doc.Content)
	}
	if strings.Index(doc.Content, "First") > strings.Index(doc.Content, "Second") {
		t.Fatalf("expected spine order preserved")
	}
	if strings.Contains(doc.Content, "skip()") {
		t.Fatalf("expected script content stripped, got %q", doc.Content)
	}
}

func TestParseEPUBMalformed(t *testing.T) {
	if _, err := ParseEPUB([]byte("not a zip")); err == nil {
		t.Fatalf("expected error for malformed archive")
	}
	// Valid zip without a container manifest.
	broken := buildZip(t, map[string]string{"mimetype": "application/epub+zip"})
	if _, err := ParseEPUB(broken); err == nil {
		t.Fatalf("expected error for missing container")
	}
}

func TestParseDOCX(t *testing.T) {
	archive := buildZip(t, map[string]string{
		"word/document.xml": `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>
    <w:p><w:r><w:t>Second</w:t></w:r><w:r><w:t xml:space="preserve"> half.</w:t></w:r></w:p>
  </w:body>
</w:document>`,
	})

	doc, err := ParseDOCX(archive)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(doc.Content, "First paragraph.") {
		t.Fatalf("expected first paragraph, got %q", doc.Content)
	}
	if !strings.Contains(doc.Content, "Second half.") {
		t.Fatalf("expected joined runs, got %q", doc.Content)
	}
	if doc.Pages != 0 {
		t.Fatalf("expected no page count for docx, got %d", doc.Pages)
	}
}

func TestParseDOCXMalformed(t *testing.T) {
	if _, err := ParseDOCX([]byte("junk")); err == nil {
		t.Fatalf("expected error for malformed docx")
	}
}

func TestParsePDFMalformed(t *testing.T) {
	if _, err := ParsePDF([]byte("%PDF-1.4 truncated garbage")); err == nil {
		t.Fatalf("expected error for malformed pdf")
	}
}

func TestRenderMarkdown(t *testing.T) {
	doc, err := RenderMarkdown([]byte("# Heading\n\nsome *emphasis* here"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !doc.IsHTML {
		t.Fatalf("expected html output")
	}
	if !strings.Contains(doc.Content, "<h1") || !strings.Contains(doc.Content, "<em>") {
		t.Fatalf("unexpected rendering: %q", doc.Content)
	}
}

func TestParseDispatch(t *testing.T) {
	doc, err := Parse([]byte("plain words"), "notes.txt", classify.Article)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Content != "plain words" || doc.IsHTML {
		t.Fatalf("expected passthrough text, got %+v", doc)
	}

	doc, err = Parse([]byte("# Title"), "notes.md", classify.Article)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !doc.IsHTML {
		t.Fatalf("expected markdown rendered to html")
	}

	doc, err = Parse([]byte(""), "empty.txt", classify.Article)
	if err != nil {
		t.Fatalf("unexpected error for empty buffer: %v", err)
	}
	if doc.Content != "" {
		t.Fatalf("expected empty content, got %q", doc.Content)
	}
}

func TestBaseName(t *testing.T) {
	if got := BaseName("dir/some.file.pdf"); got != "some.file" {
		t.Fatalf("unexpected base name %q", got)
	}
	if got := BaseName("plain"); got != "plain" {
		t.Fatalf("unexpected base name %q", got)
	}
}
