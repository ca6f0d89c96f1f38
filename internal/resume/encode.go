package resume

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// SectionJSON 把段落编码为 JSON 数组，nil 视为 []。
// 不转义 & < >，存进表格和流水的文本保持原样可读。
func SectionJSON(section []string) ([]byte, error) {
	if section == nil {
		section = []string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(section); err != nil {
		return nil, fmt.Errorf("encode section: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
