// Package scan 在简历写入存储前交给 clamd 做病毒扫描。
package scan

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dutchcoders/go-clamd"
)

// ErrInfected 表示文件被 clamd 判定为恶意。
var ErrInfected = errors.New("malicious file detected")

type streamScanner interface {
	ScanStream(r io.Reader, abort chan bool) (chan *clamd.ScanResult, error)
}

// Clamd 通过 INSTREAM 扫描内存中的文件。
type Clamd struct {
	client streamScanner
}

// NewClamd 返回扫描器，addr 形如 "tcp://127.0.0.1:3310"。
func NewClamd(addr string) *Clamd {
	return &Clamd{client: clamd.NewClamd(addr)}
}

// Scan 返回 nil 表示干净，ErrInfected 表示命中特征，其他错误表示扫描器不可用。
func (c *Clamd) Scan(ctx context.Context, data []byte) error {
	abort := make(chan bool)
	defer close(abort)

	results, err := c.client.ScanStream(bytes.NewReader(data), abort)
	if err != nil {
		return fmt.Errorf("clamd scan: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("clamd scan: %w", ctx.Err())
		case result, ok := <-results:
			if !ok {
				return nil
			}
			switch result.Status {
			case clamd.RES_OK:
			case clamd.RES_FOUND:
				return fmt.Errorf("%w: %s", ErrInfected, result.Description)
			default:
				return fmt.Errorf("clamd scan: status %s: %s", result.Status, result.Description)
			}
		}
	}
}
