// Package sheets appends one application row per submission to a spreadsheet.
package sheets

import (
	"context"

	"cvintake/internal/resume"
)

// Appender 向表格追加一行。没有幂等键，重复调用会产生重复行。
type Appender interface {
	Append(ctx context.Context, row Row) error
}

// Row 是写入表格的一行，列顺序固定。
type Row struct {
	Name           string
	Email          string
	Phone          string
	CVURL          string
	Education      []string
	Qualifications []string
	Projects       []string
}

// NewRow 由表单字段、文件链接和提取结果组装一行。
func NewRow(name, email, phone, cvURL string, content resume.Content) Row {
	content.Normalize()
	return Row{
		Name:           name,
		Email:          email,
		Phone:          phone,
		CVURL:          cvURL,
		Education:      content.Education,
		Qualifications: content.Qualifications,
		Projects:       content.Projects,
	}
}

// Cells 返回按列排列的单元格，三个段落各自序列化为 JSON 字符串。
func (r Row) Cells() ([]string, error) {
	cells := []string{r.Name, r.Email, r.Phone, r.CVURL}
	for _, section := range [][]string{r.Education, r.Qualifications, r.Projects} {
		encoded, err := resume.SectionJSON(section)
		if err != nil {
			return nil, err
		}
		cells = append(cells, string(encoded))
	}
	return cells, nil
}
