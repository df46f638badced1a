package docparse

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// EPUB container and OPF package descriptors. Namespaces are ignored on
// purpose: encoding/xml matches local names, which covers both dc: and
// opf: prefixed documents.
type epubContainer struct {
	Rootfiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

type epubPackage struct {
	Metadata struct {
		// Each field may repeat; the first entry wins.
		Titles       []string `xml:"title"`
		Creators     []string `xml:"creator"`
		Descriptions []string `xml:"description"`
	} `xml:"metadata"`
	Manifest struct {
		Items []struct {
			ID   string `xml:"id,attr"`
			Href string `xml:"href,attr"`
		} `xml:"item"`
	} `xml:"manifest"`
	Spine struct {
		Itemrefs []struct {
			IDRef string `xml:"idref,attr"`
		} `xml:"itemref"`
	} `xml:"spine"`
}

// ParseEPUB walks the spine in order, stripping each chapter's markup to
// plain text. A chapter that fails to read or parse is skipped; Pages is
// the count of chapters that extracted successfully.
func ParseEPUB(buf []byte) (Document, error) {
	archive, err := zip.NewReader(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		return Document{}, wrapParseErr("epub", err)
	}

	opfPath, err := epubRootfile(archive)
	if err != nil {
		return Document{}, wrapParseErr("epub", err)
	}

	var pkg epubPackage
	if err := readZipXML(archive, opfPath, &pkg); err != nil {
		return Document{}, wrapParseErr("epub", err)
	}

	hrefs := make(map[string]string, len(pkg.Manifest.Items))
	for _, item := range pkg.Manifest.Items {
		hrefs[item.ID] = item.Href
	}

	opfDir := path.Dir(opfPath)
	var chapters []string
	for _, ref := range pkg.Spine.Itemrefs {
		href, ok := hrefs[ref.IDRef]
		if !ok {
			continue
		}
		text, err := epubChapterText(archive, resolveZipPath(opfDir, href))
		if err != nil || text == "" {
			continue
		}
		chapters = append(chapters, text)
	}

	doc := Document{
		Content: strings.Join(chapters, "\n\n"),
		Pages:   len(chapters),
	}
	doc.Title = firstOf(pkg.Metadata.Titles)
	doc.Author = firstOf(pkg.Metadata.Creators)
	doc.Description = firstOf(pkg.Metadata.Descriptions)
	return doc, nil
}

func epubRootfile(archive *zip.Reader) (string, error) {
	var container epubContainer
	if err := readZipXML(archive, "META-INF/container.xml", &container); err != nil {
		return "", err
	}
	if len(container.Rootfiles) == 0 || container.Rootfiles[0].FullPath == "" {
		return "", errors.New("container has no rootfile")
	}
	return container.Rootfiles[0].FullPath, nil
}

func epubChapterText(archive *zip.Reader, name string) (string, error) {
	data, err := readZipFile(archive, name)
	if err != nil {
		return "", err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	doc.Find("script, style").Remove()
	return strings.Join(strings.Fields(doc.Text()), " "), nil
}

func readZipFile(archive *zip.Reader, name string) ([]byte, error) {
	for _, f := range archive.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	return nil, fmt.Errorf("missing archive entry %q", name)
}

func readZipXML(archive *zip.Reader, name string, out any) error {
	data, err := readZipFile(archive, name)
	if err != nil {
		return err
	}
	return xml.Unmarshal(data, out)
}

func resolveZipPath(dir, href string) string {
	if dir == "." || dir == "" {
		return href
	}
	return path.Join(dir, href)
}

func firstOf(values []string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
