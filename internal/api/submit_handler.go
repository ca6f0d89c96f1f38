package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"cvintake/internal/api/middleware"
	"cvintake/internal/intake"
)

// multipart 表单中超过该大小的部分落到临时文件。
const multipartMemory = 8 << 20

// Submitter 处理一次完整投递。
type Submitter interface {
	Submit(ctx context.Context, log *slog.Logger, sub intake.Submission) (*intake.Result, error)
}

// SubmitHandler 接收简历投递表单。
type SubmitHandler struct {
	service        Submitter
	maxUploadBytes int64
}

func NewSubmitHandler(service Submitter, maxUploadBytes int64) *SubmitHandler {
	return &SubmitHandler{service: service, maxUploadBytes: maxUploadBytes}
}

// Submit 处理 POST /submit 与 POST /api/submit。
// 表单字段：name、email、phone 以及文件字段 cv。
func (h *SubmitHandler) Submit(c *gin.Context) {
	log := middleware.LoggerFromContext(c)

	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			log.Warn("upload exceeds size limit", slog.Int64("limit", tooLarge.Limit))
			uploadFailed(c, fmt.Sprintf("File too large: limit is %d bytes", tooLarge.Limit))
			return
		}
		log.Warn("parse multipart form failed", slog.Any("error", err))
		uploadFailed(c, err.Error())
		return
	}
	if c.Request.MultipartForm != nil {
		defer func() { _ = c.Request.MultipartForm.RemoveAll() }()
	}

	sub := intake.Submission{
		Name:          c.PostForm("name"),
		Email:         c.PostForm("email"),
		Phone:         c.PostForm("phone"),
		CorrelationID: middleware.GetCorrelationID(c),
	}

	if fileHeader, err := c.FormFile("cv"); err == nil {
		data, err := readUpload(fileHeader)
		if err != nil {
			log.Warn("read uploaded cv failed", slog.Any("error", err))
			uploadFailed(c, err.Error())
			return
		}
		sub.File = data
		sub.FileName = fileHeader.Filename
		sub.MIMEType = fileHeader.Header.Get("Content-Type")
	}

	result, err := h.service.Submit(c.Request.Context(), log, sub)
	if err != nil {
		_ = c.Error(err)
		submitError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"message":       "Application processed successfully!",
		"applicationId": result.ApplicationID,
		"cvUrl":         result.CVURL,
	})
}

func readUpload(fileHeader *multipart.FileHeader) ([]byte, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("open uploaded file: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read uploaded file: %w", err)
	}
	return data, nil
}
