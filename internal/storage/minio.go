package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"cvintake/internal/config"
)

// CVURLTTL 是简历下载链接的有效期，也是 S3 预签名允许的上限。
const CVURLTTL = 7 * 24 * time.Hour

type objectAPI interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
}

// Client 封装 S3 兼容存储，负责保存简历并生成限时链接。
type Client struct {
	internalClient objectAPI
	publicClient   objectAPI
	bucketName     string
	now            func() time.Time
}

// CVUpload 描述一次简历上传。
type CVUpload struct {
	Data        []byte
	FileName    string
	ContentType string
	Uploader    string
}

// StoredFile 是上传后的对象信息。应用只持有 Key 与 URL。
type StoredFile struct {
	Key       string
	URL       string
	ExpiresAt time.Time
}

// ApplicationID 返回对象 Key 的时间戳前缀。
func (f StoredFile) ApplicationID() string {
	id, _, _ := strings.Cut(f.Key, "_")
	return id
}

// NewClient 根据配置初始化存储客户端，并确保目标 Bucket 存在。
func NewClient(cfg config.StorageConfig) (*Client, error) {
	internalClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init internal s3 client: %w", err)
	}

	publicClient := internalClient
	if strings.TrimSpace(cfg.PublicEndpoint) != "" {
		parsed, err := url.Parse(cfg.PublicEndpoint)
		if err != nil {
			return nil, fmt.Errorf("parse s3 public endpoint: %w", err)
		}
		if parsed.Host == "" {
			return nil, fmt.Errorf("invalid s3 public endpoint, host missing")
		}
		publicClient, err = minio.New(parsed.Host, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
			Secure: parsed.Scheme == "https",
			Region: cfg.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("init public s3 client: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := internalClient.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %q: %w", cfg.Bucket, err)
	}
	if !exists {
		if !cfg.AutoCreateBucket {
			return nil, fmt.Errorf("bucket %q does not exist (auto create disabled)", cfg.Bucket)
		}
		if err := internalClient.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("make bucket %q: %w", cfg.Bucket, err)
		}
	}

	return &Client{
		internalClient: internalClient,
		publicClient:   publicClient,
		bucketName:     cfg.Bucket,
		now:            time.Now,
	}, nil
}

// SaveCV 上传简历并返回 7 天有效的下载链接。
// Key 形如 "<毫秒时间戳>_<URL 编码的原文件名>"，同一毫秒同名文件会互相覆盖。
func (c *Client) SaveCV(ctx context.Context, upload CVUpload) (*StoredFile, error) {
	now := c.now()
	key := ObjectKey(now, upload.FileName)

	contentType := upload.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	opts := minio.PutObjectOptions{
		ContentType: contentType,
		UserMetadata: map[string]string{
			"originalname": upload.FileName,
			"uploadedby":   upload.Uploader,
		},
	}

	if _, err := c.internalClient.PutObject(ctx, c.bucketName, key, bytes.NewReader(upload.Data), int64(len(upload.Data)), opts); err != nil {
		switch {
		case IsNoSuchBucket(err):
			return nil, fmt.Errorf("put object %q: bucket %q is gone: %w", key, c.bucketName, err)
		case IsAccessDenied(err):
			return nil, fmt.Errorf("put object %q: credentials rejected: %w", key, err)
		}
		return nil, fmt.Errorf("put object %q: %w", key, err)
	}

	signedURL, err := c.GeneratePresignedURL(ctx, key, CVURLTTL)
	if err != nil {
		return nil, err
	}

	return &StoredFile{
		Key:       key,
		URL:       signedURL,
		ExpiresAt: now.Add(CVURLTTL),
	}, nil
}

// GeneratePresignedURL 生成对象的限时下载链接。
func (c *Client) GeneratePresignedURL(ctx context.Context, objectKey string, duration time.Duration) (string, error) {
	presignedURL, err := c.publicClient.PresignedGetObject(ctx, c.bucketName, objectKey, duration, nil)
	if err != nil {
		return "", fmt.Errorf("generate presigned url for %q: %w", objectKey, err)
	}
	return presignedURL.String(), nil
}

// ObjectKey 由提交时间与原始文件名组成对象 Key。
func ObjectKey(now time.Time, fileName string) string {
	return strconv.FormatInt(now.UnixMilli(), 10) + "_" + encodeURIComponent(fileName)
}

// encodeURIComponent 与 JS 同名函数一致：字母数字与 -_.!~*'() 原样保留，
// 其余按 UTF-8 字节编码为大写 %XX。
func encodeURIComponent(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if uriUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func uriUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}
