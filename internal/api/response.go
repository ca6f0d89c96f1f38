package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"cvintake/internal/intake"
)

func Error(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

func BadRequest(c *gin.Context, msg string) { Error(c, http.StatusBadRequest, msg) }
func Internal(c *gin.Context, msg string)   { Error(c, http.StatusInternalServerError, msg) }

// uploadFailed 对应文件本身无法接收的情况（过大、格式损坏、被扫描拦截）。
func uploadFailed(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "File upload failed",
		"message": msg,
	})
}

// submitError 把 intake 的错误映射为 HTTP 响应。
func submitError(c *gin.Context, err error) {
	var (
		validationErr *intake.ValidationError
		rejectedErr   *intake.UploadRejectedError
		processingErr *intake.ProcessingError
	)
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   intake.MissingFieldsError,
			"details": intake.MissingFieldsDetails,
		})
	case errors.As(err, &rejectedErr):
		uploadFailed(c, rejectedErr.Message)
	case errors.As(err, &processingErr):
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Application processing failed",
			"message": processingErr.Message,
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Application processing failed",
			"message": err.Error(),
		})
	}
}
