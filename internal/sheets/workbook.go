package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"
)

// Workbook 把申请记录追加到本地 xlsx 文件，适合没有 Google 凭证的部署。
// 每次写入都重新打开文件，mu 保证同一进程内的追加串行执行。
type Workbook struct {
	mu    sync.Mutex
	path  string
	sheet string
}

// NewWorkbook 解析 "Sheet1!A1" 形式的范围，只使用其中的工作表名。
func NewWorkbook(path, writeRange string) (*Workbook, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("workbook path is required")
	}
	sheet, _, _ := strings.Cut(writeRange, "!")
	sheet = strings.Trim(strings.TrimSpace(sheet), "'")
	if sheet == "" {
		sheet = "Sheet1"
	}
	return &Workbook{path: path, sheet: sheet}, nil
}

// Append 实现 Appender。
func (w *Workbook) Append(_ context.Context, row Row) error {
	cells, err := row.Cells()
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := w.open()
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := f.GetRows(w.sheet)
	if err != nil {
		return fmt.Errorf("read rows of %s: %w", w.sheet, err)
	}
	cell, err := excelize.CoordinatesToCellName(1, len(rows)+1)
	if err != nil {
		return fmt.Errorf("resolve next row: %w", err)
	}
	values := make([]interface{}, len(cells))
	for i, c := range cells {
		values[i] = c
	}
	if err := f.SetSheetRow(w.sheet, cell, &values); err != nil {
		return fmt.Errorf("write row %s: %w", cell, err)
	}
	if err := f.SaveAs(w.path); err != nil {
		return fmt.Errorf("save workbook %s: %w", w.path, err)
	}
	return nil
}

func (w *Workbook) open() (*excelize.File, error) {
	f, err := excelize.OpenFile(w.path)
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist):
		f = excelize.NewFile()
	default:
		return nil, fmt.Errorf("open workbook %s: %w", w.path, err)
	}

	idx, err := f.GetSheetIndex(w.sheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("lookup sheet %s: %w", w.sheet, err)
	}
	if idx == -1 {
		if _, err := f.NewSheet(w.sheet); err != nil {
			f.Close()
			return nil, fmt.Errorf("create sheet %s: %w", w.sheet, err)
		}
	}
	return f, nil
}
