package model

import (
	"bytes"
	"encoding/json"

	"github.com/Velocidex/ordereddict"
	"github.com/pkg/errors"
)

var (
	ErrNotArray  = errors.New("result set is not a JSON array")
	ErrNotObject = errors.New("row is not a JSON object")
)

// Row is one record of a result set: column name to scalar value. Keys keep the
// order in which they were set or decoded, so the first row of a result set
// carries the column order of the query.
//
// A nil *Row behaves as a row with no keys.
type Row struct {
	dict *ordereddict.Dict
}

func NewRow() *Row {
	return &Row{dict: ordereddict.NewDict()}
}

func (r *Row) Set(key string, value any) *Row {
	if r.dict == nil {
		r.dict = ordereddict.NewDict()
	}
	r.dict.Set(key, value)
	return r
}

func (r *Row) Get(key string) (any, bool) {
	if r == nil || r.dict == nil {
		return nil, false
	}
	return r.dict.Get(key)
}

func (r *Row) Keys() []string {
	if r == nil || r.dict == nil {
		return nil
	}
	return r.dict.Keys()
}

func (r *Row) Len() int {
	return len(r.Keys())
}

func (r *Row) MarshalJSON() ([]byte, error) {
	if r == nil || r.dict == nil {
		return []byte("{}"), nil
	}
	return r.dict.MarshalJSON()
}

func (r *Row) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return errors.WithStack(ErrNotObject)
	}
	dict := ordereddict.NewDict()
	if err := dict.UnmarshalJSON(data); err != nil {
		return errors.Wrap(err, "decode row")
	}
	r.dict = dict
	return nil
}

// ResultSet is the ordered sequence of rows returned by a query.
type ResultSet []*Row

// ParseResultSet decodes a JSON array of objects. Any other shape is an error.
func ParseResultSet(data []byte) (ResultSet, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		return nil, errors.WithStack(ErrNotArray)
	}

	rs := ResultSet{}
	if err := json.Unmarshal(data, &rs); err != nil {
		return nil, errors.Wrap(err, "decode result set")
	}
	return rs, nil
}
