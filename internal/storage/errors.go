package storage

import (
	"errors"
	"strings"

	"github.com/minio/minio-go/v7"
)

// IsNoSuchBucket 判断错误是否明确表示 Bucket 不存在（S3/MinIO: NoSuchBucket）。
func IsNoSuchBucket(err error) bool {
	return hasErrorCode(err, "nosuchbucket") ||
		containsAny(err, "nosuchbucket", "specified bucket does not exist")
}

// IsAccessDenied 判断错误是否为凭证或权限问题，通常意味着配置错误而非瞬时故障。
func IsAccessDenied(err error) bool {
	return hasErrorCode(err, "accessdenied", "invalidaccesskeyid", "signaturedoesnotmatch") ||
		containsAny(err, "access denied")
}

func hasErrorCode(err error, codes ...string) bool {
	if err == nil {
		return false
	}
	var s3Err minio.ErrorResponse
	if !errors.As(err, &s3Err) {
		return false
	}
	code := strings.ToLower(strings.TrimSpace(s3Err.Code))
	for _, c := range codes {
		if code == c {
			return true
		}
	}
	return false
}

// 兜底：不同网关/代理可能会把错误包装成字符串。
func containsAny(err error, needles ...string) bool {
	if err == nil {
		return false
	}
	lower := strings.ToLower(err.Error())
	for _, n := range needles {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return false
}
