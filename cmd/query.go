package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kingpin/v2"
	"github.com/sirupsen/logrus"

	"querypad/internal/client"
	"querypad/internal/config"
	"querypad/internal/render"
)

var (
	query       = app.Command("query", "Send a query to the API server and print the rows.")
	queryText   = query.Arg("text", "SQL text, sent as is.").Required().String()
	queryFormat = query.Flag("format", "Output format.").Default("text").Enum(render.Formats...)

	tables       = app.Command("tables", "List the tables the API server can see.")
	tablesSchema = tables.Flag("schema", "Schema to list; defaults to the server's.").String()
)

func newAPIClient(cfg config.WebConfig, log logrus.FieldLogger) *client.Client {
	c, err := client.New(client.Config{
		BaseURL: cfg.APIURL,
		Timeout: cfg.Timeout,
		Retries: cfg.Retries,
		Logger:  log,
	})
	kingpin.FatalIfError(err, "API_URL")
	return c
}

func doQuery() {
	cfg, log := setup()

	policy, err := render.ParsePolicy(cfg.Web.ColumnPolicy)
	kingpin.FatalIfError(err, "COLUMN_POLICY")

	rs, err := newAPIClient(cfg.Web, log).Query(context.Background(), *queryText)
	if err != nil {
		log.WithError(err).Error("query submission failed")
		os.Exit(1)
	}

	kingpin.FatalIfError(render.New(policy).Format(*queryFormat, rs, os.Stdout), "Unable to print results")
	if len(rs) == 0 {
		fmt.Fprintln(os.Stderr, "(0 rows)")
	}
}

func doTables() {
	cfg, log := setup()

	names, err := newAPIClient(cfg.Web, log).Tables(context.Background(), *tablesSchema)
	kingpin.FatalIfError(err, "Unable to list tables")
	if len(names) > 0 {
		fmt.Println(strings.Join(names, "\n"))
	}
}

func init() {
	commandHandlers = append(commandHandlers, func(command string) bool {
		switch command {
		case query.FullCommand():
			doQuery()
		case tables.FullCommand():
			doTables()
		default:
			return false
		}
		return true
	})
}
