package model

// Column describes one column of a table managed by querypad's schema setup.
// Type is dialect neutral; "serial" marks an auto-incrementing primary key.
type Column struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	ForeignKey string `json:"foreign_key"` // e.g. "patients(patient_id)"
}

type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

func (t Table) ColumnNames() []string {
	names := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		names = append(names, c.Name)
	}
	return names
}
