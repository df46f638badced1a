package docparse

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"strings"
)

// ParseDOCX extracts raw text from a Word document, discarding formatting.
// A .docx archive keeps the document body in word/document.xml as runs of
// <w:t> text inside <w:p> paragraphs.
func ParseDOCX(buf []byte) (Document, error) {
	archive, err := zip.NewReader(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		return Document{}, wrapParseErr("docx", err)
	}

	data, err := readZipFile(archive, "word/document.xml")
	if err != nil {
		return Document{}, wrapParseErr("docx", err)
	}

	text, err := docxText(data)
	if err != nil {
		return Document{}, wrapParseErr("docx", err)
	}
	return Document{Content: text}, nil
}

func docxText(data []byte) (string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	var b strings.Builder
	inText := false

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		switch tok := token.(type) {
		case xml.StartElement:
			if tok.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch tok.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				b.Write(tok)
			}
		}
	}

	return strings.TrimSpace(b.String()), nil
}
