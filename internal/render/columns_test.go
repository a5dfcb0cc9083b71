package render

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"querypad/internal/model"
)

func TestColumns(t *testing.T) {
	rs := model.ResultSet{
		model.NewRow().Set("id", 1).Set("name", "a"),
		model.NewRow().Set("name", "b").Set("extra", true),
		nil,
	}

	assert.Equal(t, []string{"id", "name"}, Columns(rs, FirstRow))
	assert.Equal(t, []string{"id", "name", "extra"}, Columns(rs, Union))
	assert.Nil(t, Columns(nil, FirstRow))
	assert.Nil(t, Columns(model.ResultSet{}, Union))
}

func TestCells(t *testing.T) {
	columns := []string{"id", "name"}

	assert.Equal(t, []string{"2", ""}, Cells(model.NewRow().Set("id", 2), columns))
	assert.Equal(t, []string{"", "x"}, Cells(model.NewRow().Set("name", "x").Set("other", 9), columns))
	assert.Equal(t, []string{"", ""}, Cells(nil, columns))
}

func TestDisplay(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"text", "text"},
		{true, "true"},
		{int64(42), "42"},
		{float64(1), "1"},
		{2.5, "2.5"},
		{json.Number("7"), "7"},
		{[]byte("raw"), "raw"},
		{map[string]any{"type": "bytes"}, `{"type":"bytes"}`},
		{[]any{1, "a"}, `[1,"a"]`},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, Display(tc.in))
	}
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	assert.NoError(t, err)
	assert.Equal(t, FirstRow, p)

	p, err = ParsePolicy("Union")
	assert.NoError(t, err)
	assert.Equal(t, Union, p)
	assert.Equal(t, "union", p.String())

	_, err = ParsePolicy("all")
	assert.Error(t, err)
}
