package extract

import (
	"bytes"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

// Supported MIME types.
const (
	MIMEPDF  = "application/pdf"
	MIMEDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// ExtractionError 表示文档无法解析（损坏、缺少文本层等）。
type ExtractionError struct {
	MIMEType string
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s text: %v", e.MIMEType, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// pdfText 按页拼接 PDF 的纯文本。
// ledongthuc/pdf 遇到损坏文件可能直接 panic，这里统一转换成错误。
func pdfText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("read pdf page %d: %w", i, err)
		}
		b.WriteString(pageText)
	}
	return b.String(), nil
}

var (
	docxParagraphEnd = regexp.MustCompile(`</w:p>`)
	docxLineBreak    = regexp.MustCompile(`<w:(?:br|cr)\s*/>`)
	docxTab          = regexp.MustCompile(`<w:tab\s*/>`)
	xmlTag           = regexp.MustCompile(`<[^>]+>`)
)

// docxText 读取 word/document.xml，并把段落、换行还原为 \n。
func docxText(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer doc.Close()

	return xmlToText(doc.Editable().GetContent()), nil
}

func xmlToText(raw string) string {
	raw = docxParagraphEnd.ReplaceAllString(raw, "\n")
	raw = docxLineBreak.ReplaceAllString(raw, "\n")
	raw = docxTab.ReplaceAllString(raw, "\t")
	raw = xmlTag.ReplaceAllString(raw, "")
	return html.UnescapeString(raw)
}
