package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"querypad/internal/model"
)

// Tables is the device monitoring schema, in creation order.
var Tables = []model.Table{
	{
		Name: "patients",
		Columns: []model.Column{
			{Name: "patient_id", Type: "serial"},
			{Name: "age", Type: "INTEGER"},
			{Name: "sex", Type: "VARCHAR(10)"},
			{Name: "weight", Type: "DECIMAL(5, 2)"},
			{Name: "height", Type: "DECIMAL(5, 2)"},
			{Name: "diagnosis_code", Type: "VARCHAR(10)"},
		},
	},
	{
		Name: "devices",
		Columns: []model.Column{
			{Name: "device_id", Type: "serial"},
			{Name: "patient_id", Type: "INTEGER", ForeignKey: "patients(patient_id)"},
			{Name: "device_type", Type: "VARCHAR(50)"},
			{Name: "implant_date", Type: "DATE"},
			{Name: "manufacturer", Type: "VARCHAR(50)"},
		},
	},
	{
		Name: "readings",
		Columns: []model.Column{
			{Name: "reading_id", Type: "serial"},
			{Name: "device_id", Type: "INTEGER", ForeignKey: "devices(device_id)"},
			{Name: "timestamp", Type: "TIMESTAMP"},
			{Name: "heart_rate", Type: "INTEGER"},
			{Name: "blood_pressure", Type: "VARCHAR(7)"},
			{Name: "battery_level", Type: "INTEGER"},
		},
	},
	{
		Name: "outcomes",
		Columns: []model.Column{
			{Name: "outcome_id", Type: "serial"},
			{Name: "device_id", Type: "INTEGER", ForeignKey: "devices(device_id)"},
			{Name: "complication_occurred", Type: "BOOLEAN"},
			{Name: "device_replacement_needed", Type: "BOOLEAN"},
			{Name: "time_to_failure", Type: "INTEGER"},
			{Name: "readmission_within_30_days", Type: "BOOLEAN"},
		},
	},
}

var serialTypes = map[string]string{
	"postgres": "SERIAL PRIMARY KEY",
	"sqlite":   "INTEGER PRIMARY KEY AUTOINCREMENT",
}

func createTableSQL(driver string, t model.Table) (string, error) {
	serial, ok := serialTypes[driver]
	if !ok {
		return "", errors.Errorf("schema setup is not supported for driver %q", driver)
	}

	defs := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		typ := c.Type
		if typ == "serial" {
			typ = serial
		}
		def := fmt.Sprintf("%s %s", c.Name, typ)
		if c.ForeignKey != "" {
			def += " REFERENCES " + c.ForeignKey
		}
		defs = append(defs, def)
	}
	return fmt.Sprintf("CREATE TABLE %s (\n\t%s\n)", t.Name, strings.Join(defs, ",\n\t")), nil
}

// InitSchema drops and recreates every table in Tables. All existing data in
// them is lost.
func (p *SQLClient) InitSchema(ctx context.Context) error {
	if p.db == nil {
		return ErrNotConnected
	}

	stmts := make([]string, 0, 2*len(Tables))
	for i := len(Tables) - 1; i >= 0; i-- {
		stmts = append(stmts, "DROP TABLE IF EXISTS "+Tables[i].Name)
	}
	for _, t := range Tables {
		create, err := createTableSQL(p.driver, t)
		if err != nil {
			return err
		}
		stmts = append(stmts, create)
	}

	for _, stmt := range stmts {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "init schema: %s", strings.SplitN(stmt, "(", 2)[0])
		}
	}
	return nil
}
