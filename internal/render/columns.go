package render

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"querypad/internal/model"
)

// Policy decides which columns a result set is displayed with.
type Policy int

const (
	// FirstRow takes the keys of the first row, in order. Values under keys the
	// first row does not have are never shown.
	FirstRow Policy = iota
	// Union takes every key of every row, in first-seen order.
	Union
)

func (p Policy) String() string {
	switch p {
	case Union:
		return "union"
	default:
		return "first-row"
	}
}

func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "first-row", "firstrow", "first":
		return FirstRow, nil
	case "union":
		return Union, nil
	}
	return FirstRow, errors.Errorf("unknown column policy %q", s)
}

// Columns derives the header of rs under policy p.
func Columns(rs model.ResultSet, p Policy) []string {
	if len(rs) == 0 {
		return nil
	}
	if p != Union {
		return rs[0].Keys()
	}

	var columns []string
	seen := map[string]bool{}
	for _, row := range rs {
		for _, k := range row.Keys() {
			if !seen[k] {
				seen[k] = true
				columns = append(columns, k)
			}
		}
	}
	return columns
}

// Cells lays row out along columns. A missing key or a null value gives an
// empty cell; keys outside columns are dropped.
func Cells(row *model.Row, columns []string) []string {
	cells := make([]string, len(columns))
	for i, c := range columns {
		if v, ok := row.Get(c); ok {
			cells[i] = Display(v)
		}
	}
	return cells
}

// Display coerces a scalar to its display text. Numbers and strings are not
// formatted differently beyond their plain decimal form.
func Display(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(x)
	case []byte:
		return string(x)
	}

	serialized, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(serialized)
}
