package service

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"querypad/helper"
	"querypad/internal/model"
	"querypad/internal/render"
)

const maxColumnWidth = 60

// ExportTables writes every named table to dir as <table>.csv and returns the
// paths written. An empty table gives an empty file.
func ExportTables(ctx context.Context, db DBClient, r *render.Renderer, dir string, tables []string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "export")
	}

	var written []string
	for _, table := range tables {
		if err := helper.CheckIdentifier("table", table); err != nil {
			return written, errors.Wrap(err, "export")
		}

		rs, err := db.RunQuery(ctx, "SELECT * FROM "+table)
		if err != nil {
			return written, errors.Wrapf(err, "export %s", table)
		}

		path := filepath.Join(dir, table+".csv")
		if err := os.WriteFile(path, []byte(r.CSV(rs)), 0o644); err != nil {
			return written, errors.Wrapf(err, "export %s", table)
		}
		written = append(written, path)
	}
	return written, nil
}

// ExportWorkbook writes the named tables into one .xlsx file, a sheet per
// table in the given order, columns sized to their widest cell.
func ExportWorkbook(ctx context.Context, db DBClient, r *render.Renderer, path string, tables []string) error {
	if len(tables) == 0 {
		return errors.New("export: no tables")
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, table := range tables {
		if err := helper.CheckIdentifier("table", table); err != nil {
			return errors.Wrap(err, "export")
		}

		rs, err := db.RunQuery(ctx, "SELECT * FROM "+table)
		if err != nil {
			return errors.Wrapf(err, "export %s", table)
		}

		// A new workbook starts with one default sheet; reuse it for the first table.
		if i == 0 {
			err = f.SetSheetName(f.GetSheetName(0), table)
		} else {
			_, err = f.NewSheet(table)
		}
		if err != nil {
			return errors.Wrapf(err, "export %s", table)
		}

		if err := writeSheet(f, table, rs, r.Policy()); err != nil {
			return errors.Wrapf(err, "export %s", table)
		}
	}

	f.SetActiveSheet(0)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "export")
	}
	return errors.Wrap(f.SaveAs(path), "export")
}

func writeSheet(f *excelize.File, sheet string, rs model.ResultSet, p render.Policy) error {
	columns := render.Columns(rs, p)
	if len(columns) == 0 {
		return nil
	}

	widths := make([]int, len(columns))
	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c
		widths[i] = len(c)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	for n, row := range rs {
		values := make([]any, len(columns))
		for i, c := range columns {
			v, _ := row.Get(c)
			values[i] = sheetValue(v)
			widths[i] = max(widths[i], len(render.Display(v)))
		}

		cell, err := excelize.CoordinatesToCellName(1, n+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}

	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, float64(min(w+2, maxColumnWidth))); err != nil {
			return err
		}
	}
	return nil
}

// sheetValue keeps numbers and booleans typed so the spreadsheet can compute
// with them; anything else is written as its display text.
func sheetValue(v any) any {
	switch v := v.(type) {
	case nil:
		return nil
	case string, bool, int, int32, int64, uint32, uint64, float32, float64:
		return v
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
		if n, err := v.Float64(); err == nil {
			return n
		}
		return v.String()
	default:
		return render.Display(v)
	}
}

// SchemaTableNames returns the names of Tables in creation order.
func SchemaTableNames() []string {
	names := make([]string, 0, len(Tables))
	for _, t := range Tables {
		names = append(names, t.Name)
	}
	return names
}
