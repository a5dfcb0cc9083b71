package service

import (
	"context"

	"querypad/internal/model"
)

type DBClient interface {
	Connect(ctx context.Context, dsn string) error
	Disconnect() error
	ListTables(ctx context.Context, schema string) ([]string, error)
	RunQuery(ctx context.Context, query string) (model.ResultSet, error)
}
