package registry

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/domain"
)

const sheetName = "Backends"

// SheetHeader columns of the operator spreadsheet
var SheetHeader = []string{"Subdomain", "Endpoint", "Credential", "Backend Name"}

// LoadStaticXLSX builds a Static registry from the first sheet of r.
// Rows without subdomain, endpoint or credential are skipped and reported.
func LoadStaticXLSX(r io.Reader) (*Static, []string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse Excel file: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, nil, fmt.Errorf("excel file has no sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read rows: %w", err)
	}

	static := NewStatic(nil)
	if len(rows) == 0 {
		return static, nil, nil
	}

	col := map[string]int{}
	for i, h := range rows[0] {
		col[strings.TrimSpace(h)] = i
	}
	for _, required := range SheetHeader[:3] {
		if _, ok := col[required]; !ok {
			return nil, nil, fmt.Errorf("missing column %q", required)
		}
	}
	cell := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var skipped []string
	for idx, row := range rows[1:] {
		sub := normalize(cell(row, "Subdomain"))
		conn := domain.Connection{
			Endpoint:    cell(row, "Endpoint"),
			Credential:  cell(row, "Credential"),
			BackendName: cell(row, "Backend Name"),
		}
		if sub == "" && !conn.Valid() {
			continue // blank row
		}
		if sub == "" || !conn.Valid() {
			skipped = append(skipped, fmt.Sprintf("row %d: subdomain, endpoint and credential are required", idx+2))
			continue
		}
		static.Register(sub, conn)
	}
	return static, skipped, nil
}

// ExportXLSX writes entries as a spreadsheet LoadStaticXLSX can read back.
// Credentials are written only when includeCredentials is set.
func ExportXLSX(entries map[string]domain.Connection, includeCredentials bool) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for i, h := range SheetHeader {
		cellName, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cellName, h); err != nil {
			return nil, err
		}
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(SheetHeader), 1)
	if err := f.SetCellStyle(sheetName, "A1", lastHeader, headerStyle); err != nil {
		return nil, err
	}

	subs := make([]string, 0, len(entries))
	for sub := range entries {
		subs = append(subs, sub)
	}
	sort.Strings(subs)

	for r, sub := range subs {
		c := entries[sub]
		credential := ""
		if includeCredentials {
			credential = c.Credential
		}
		for i, v := range []string{sub, c.Endpoint, credential, c.BackendName} {
			cellName, _ := excelize.CoordinatesToCellName(i+1, r+2)
			if err := f.SetCellValue(sheetName, cellName, v); err != nil {
				return nil, err
			}
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return buf.Bytes(), nil
}
