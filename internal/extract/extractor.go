package extract

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"cvintake/internal/resume"
)

// Extractor 从上传的简历中提取段落。实现必须吞掉解析错误并返回空内容。
type Extractor interface {
	Extract(ctx context.Context, data []byte, mimeType string) resume.Content
}

// SectionExtractor 基于正则标题切分文本，支持 PDF 与 DOCX。
type SectionExtractor struct {
	logger *slog.Logger
}

// NewSectionExtractor 返回 SectionExtractor 实例。
func NewSectionExtractor(logger *slog.Logger) *SectionExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &SectionExtractor{logger: logger}
}

// Extract 实现 Extractor。不支持的类型直接返回空内容。
func (e *SectionExtractor) Extract(_ context.Context, data []byte, mimeType string) resume.Content {
	text, err := Text(data, mimeType)
	if err != nil {
		var extractErr *ExtractionError
		if errors.As(err, &extractErr) {
			e.logger.Warn("extract cv text failed",
				slog.String("mime_type", extractErr.MIMEType),
				slog.Any("error", extractErr.Err),
			)
		}
		return resume.EmptyContent()
	}
	if text == "" {
		return resume.EmptyContent()
	}
	return Sections(text)
}

// Text 返回文档的纯文本；不支持的类型返回空字符串且无错误。
func Text(data []byte, mimeType string) (string, error) {
	mimeType = strings.TrimSpace(mimeType)

	var (
		text string
		err  error
	)
	switch mimeType {
	case MIMEPDF:
		text, err = pdfText(data)
	case MIMEDOCX:
		text, err = docxText(data)
	default:
		return "", nil
	}
	if err != nil {
		return "", &ExtractionError{MIMEType: mimeType, Err: err}
	}
	return text, nil
}
