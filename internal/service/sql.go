package service

import (
	"context"
	"database/sql"
	"encoding/base64"
	"sort"
	"time"
	"unicode/utf8"

	_ "github.com/ClickHouse/clickhouse-go/v2"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/microsoft/go-mssqldb"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"querypad/internal/model"
)

var ErrNotConnected = errors.New("not connected")

type dialect struct {
	// sqlDriver is the name the driver registers with database/sql.
	sqlDriver string
	// listTables takes the schema as its only argument unless ignoresSchema.
	listTables    string
	ignoresSchema bool
}

var dialects = map[string]dialect{
	"postgres": {
		sqlDriver:  "postgres",
		listTables: `SELECT table_name FROM information_schema.tables WHERE table_schema = $1 ORDER BY table_name`,
	},
	"sqlite": {
		sqlDriver:     "sqlite",
		listTables:    `SELECT name FROM sqlite_schema WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`,
		ignoresSchema: true,
	},
	"mysql": {
		sqlDriver:  "mysql",
		listTables: `SELECT table_name FROM information_schema.tables WHERE table_schema = ? ORDER BY table_name`,
	},
	"sqlserver": {
		sqlDriver:  "sqlserver",
		listTables: `SELECT table_name FROM information_schema.tables WHERE table_schema = @p1 ORDER BY table_name`,
	},
	"clickhouse": {
		sqlDriver:  "clickhouse",
		listTables: `SELECT name FROM system.tables WHERE database = ? ORDER BY name`,
	},
}

// Drivers lists the driver names NewSQLClient accepts.
func Drivers() []string {
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SQLClient runs text queries against any database/sql driver querypad knows.
type SQLClient struct {
	driver  string
	dialect dialect
	db      *sql.DB
}

func NewSQLClient(driver string) (*SQLClient, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, errors.Errorf("unsupported driver %q", driver)
	}
	return &SQLClient{driver: driver, dialect: d}, nil
}

func (p *SQLClient) Driver() string {
	return p.driver
}

func (p *SQLClient) Connect(ctx context.Context, dsn string) error {
	db, err := sql.Open(p.dialect.sqlDriver, dsn)
	if err != nil {
		return errors.Wrapf(err, "open %s", p.driver)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return errors.Wrapf(err, "ping %s", p.driver)
	}

	p.db = db
	return nil
}

func (p *SQLClient) Disconnect() error {
	if p.db != nil {
		err := p.db.Close()
		p.db = nil
		return err
	}
	return nil
}

func (p *SQLClient) ListTables(ctx context.Context, schema string) ([]string, error) {
	if p.db == nil {
		return nil, ErrNotConnected
	}
	if schema == "" {
		schema = "public"
	}

	var args []any
	if !p.dialect.ignoresSchema {
		args = append(args, schema)
	}

	rows, err := p.db.QueryContext(ctx, p.dialect.listTables, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// RunQuery executes query and returns every row with its columns in result
// order. Statements that produce no columns give an empty result set.
func (p *SQLClient) RunQuery(ctx context.Context, query string) (model.ResultSet, error) {
	if p.db == nil {
		return nil, ErrNotConnected
	}

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	results := model.ResultSet{}
	for rows.Next() {
		columns := make([]any, len(cols))
		columnPointers := make([]any, len(cols))
		for i := range columns {
			columnPointers[i] = &columns[i]
		}

		if err := rows.Scan(columnPointers...); err != nil {
			return nil, err
		}

		row := model.NewRow()
		for i, colName := range cols {
			row.Set(colName, jsonSafe(columns[i]))
		}
		results = append(results, row)
	}

	return results, rows.Err()
}

// jsonSafe converts driver values into something encoding/json renders as a
// scalar a table cell can display.
func jsonSafe(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case []byte:
		if utf8.Valid(x) {
			return string(x)
		}
		return map[string]any{
			"type":   "bytes",
			"base64": base64.StdEncoding.EncodeToString(x),
		}
	case time.Time:
		return x.Format(time.RFC3339Nano)
	default:
		return x
	}
}
