package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

// GoogleSheets 通过 Sheets API v4 追加行，使用服务账号凭证。
type GoogleSheets struct {
	values        *gsheets.SpreadsheetsValuesService
	spreadsheetID string
	writeRange    string
}

// NewGoogleSheets 解析服务账号 JSON 并创建 Sheets 客户端。
func NewGoogleSheets(ctx context.Context, credentialsJSON []byte, spreadsheetID, writeRange string) (*GoogleSheets, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("spreadsheet id is required")
	}
	creds, err := google.CredentialsFromJSON(ctx, credentialsJSON, gsheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse google credentials: %w", err)
	}
	svc, err := gsheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("init sheets service: %w", err)
	}
	return &GoogleSheets{
		values:        svc.Spreadsheets.Values,
		spreadsheetID: spreadsheetID,
		writeRange:    writeRange,
	}, nil
}

// Append 实现 Appender，以 RAW 方式写入，避免表格把 JSON 或电话号码再解析一遍。
func (g *GoogleSheets) Append(ctx context.Context, row Row) error {
	cells, err := row.Cells()
	if err != nil {
		return err
	}
	values := make([]interface{}, len(cells))
	for i, c := range cells {
		values[i] = c
	}

	resp, err := g.values.Append(g.spreadsheetID, g.writeRange, &gsheets.ValueRange{
		Values: [][]interface{}{values},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", g.writeRange, err)
	}
	if resp.Updates != nil && resp.Updates.UpdatedRows != 1 {
		return fmt.Errorf("append to %s: expected 1 updated row, got %d", g.writeRange, resp.Updates.UpdatedRows)
	}
	return nil
}
