package service

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// UTF-8 text types extracted as-is. PDF and DOCX get dedicated parsers below;
// every other type yields empty text so the upload itself never fails on
// extraction.
var textMimeTypes = map[string]struct{}{
	"text/plain":       {},
	"text/markdown":    {},
	"text/csv":         {},
	"application/json": {},
	"application/xml":  {},
	"text/html":        {},
}

var textExtensions = map[string]struct{}{
	".txt":  {},
	".md":   {},
	".csv":  {},
	".json": {},
	".xml":  {},
	".html": {},
}

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

var excessBlankLines = regexp.MustCompile(`\n{3,}`)

// ExtractText returns the searchable text of an uploaded file, or "" when the
// type is not extractable or its content cannot be parsed.
func ExtractText(fileName, mimeType string, data []byte) string {
	mime, _, _ := strings.Cut(mimeType, ";")
	mime = strings.TrimSpace(strings.ToLower(mime))
	ext := strings.ToLower(filepath.Ext(fileName))

	switch {
	case mime == mimePDF || ext == ".pdf":
		return normalizeWhitespace(extractPDF(data))
	case mime == mimeDOCX || ext == ".docx":
		return normalizeWhitespace(extractDOCX(data))
	}

	_, knownMime := textMimeTypes[mime]
	_, knownExt := textExtensions[ext]
	if !knownMime && !knownExt {
		return ""
	}

	if !utf8.Valid(data) {
		return ""
	}
	return normalizeWhitespace(string(data))
}

// extractPDF concatenates the page text of a PDF. The parser panics on some
// malformed files, so failures of any shape degrade to empty text.
func extractPDF(data []byte) (text string) {
	defer func() {
		if recover() != nil {
			text = ""
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ""
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return ""
	}
	var b bytes.Buffer
	if _, err := io.Copy(&b, plain); err != nil {
		return ""
	}
	return b.String()
}

// extractDOCX walks word/document.xml inside the docx zip archive. Run text
// (w:t) is concatenated, paragraph ends and explicit breaks become newlines,
// tabs become spaces. Anything else in the WordprocessingML body is ignored.
func extractDOCX(data []byte) string {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ""
	}

	var doc io.ReadCloser
	for _, f := range archive.File {
		if f.Name == "word/document.xml" {
			rc, err := f.Open()
			if err != nil {
				return ""
			}
			doc = rc
			break
		}
	}
	if doc == nil {
		return ""
	}
	defer doc.Close()

	var b strings.Builder
	decoder := xml.NewDecoder(doc)
	inText := false
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return ""
		}
		switch t := token.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				b.WriteByte(' ')
			case "br":
				b.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
	return b.String()
}

func normalizeWhitespace(value string) string {
	value = strings.ReplaceAll(value, "\r", "\n")
	value = excessBlankLines.ReplaceAllString(value, "\n\n")
	return strings.TrimSpace(value)
}
