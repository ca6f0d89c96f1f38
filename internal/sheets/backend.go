package sheets

import (
	"context"
	"fmt"

	"cvintake/internal/config"
)

// 可选的落表后端。
const (
	BackendGoogle = "google"
	BackendXLSX   = "xlsx"
)

// NewAppender 按配置构造落表后端。
func NewAppender(ctx context.Context, cfg config.SheetsConfig) (Appender, error) {
	switch cfg.Backend {
	case BackendGoogle:
		return NewGoogleSheets(ctx, []byte(cfg.Credentials), cfg.SpreadsheetID, cfg.Range)
	case BackendXLSX:
		return NewWorkbook(cfg.XLSXPath, cfg.Range)
	default:
		return nil, fmt.Errorf("unknown sheets backend %q", cfg.Backend)
	}
}
