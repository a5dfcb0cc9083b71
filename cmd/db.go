package main

import (
	"context"
	"fmt"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/sirupsen/logrus"

	"querypad/internal/config"
	"querypad/internal/render"
	"querypad/internal/service"
)

var (
	initDB       = app.Command("init-db", "Recreate the patients, devices, readings and outcomes tables.")
	initDBSeed   = initDB.Flag("seed", "Number of synthetic patients to insert.").Default("0").Int()
	initDBRandom = initDB.Flag("random-seed", "Fix the data generator; 0 picks one from the clock.").Default("0").Uint64()

	export       = app.Command("export", "Write tables to CSV files.")
	exportDir    = export.Flag("dir", "Output directory.").Default("export").String()
	exportXLSX   = export.Flag("xlsx", "Write a single workbook with a sheet per table to this path instead.").String()
	exportTables = export.Arg("tables", "Tables to export. Defaults to the schema tables.").Strings()
)

func connectDB(ctx context.Context, cfg config.DBConfig, log logrus.FieldLogger) (*service.SQLClient, error) {
	db, err := service.NewSQLClient(cfg.Driver)
	if err != nil {
		return nil, err
	}
	if err := db.Connect(ctx, cfg.DSN); err != nil {
		return nil, err
	}
	log.WithField("driver", cfg.Driver).Info("Connected to database")
	return db, nil
}

func doInitDB() {
	cfg, log := setup()
	ctx := context.Background()

	db, err := connectDB(ctx, cfg.DB, log)
	kingpin.FatalIfError(err, "Unable to connect to database")
	defer db.Disconnect()

	kingpin.FatalIfError(db.InitSchema(ctx), "Unable to create schema")
	log.WithField("tables", service.SchemaTableNames()).Info("Schema created")

	if *initDBSeed <= 0 {
		return
	}

	start := time.Now()
	stats, err := db.Seed(ctx, service.SeedOptions{Patients: *initDBSeed, Seed: *initDBRandom})
	kingpin.FatalIfError(err, "Unable to seed database")
	log.WithFields(logrus.Fields{
		"patients": stats.Patients,
		"devices":  stats.Devices,
		"readings": stats.Readings,
		"outcomes": stats.Outcomes,
		"took":     time.Since(start).Round(time.Millisecond),
	}).Info("Database seeded")
}

func doExport() {
	cfg, log := setup()
	ctx := context.Background()

	policy, err := render.ParsePolicy(cfg.Web.ColumnPolicy)
	kingpin.FatalIfError(err, "COLUMN_POLICY")

	db, err := connectDB(ctx, cfg.DB, log)
	kingpin.FatalIfError(err, "Unable to connect to database")
	defer db.Disconnect()

	names := *exportTables
	if len(names) == 0 {
		names = service.SchemaTableNames()
	}

	if *exportXLSX != "" {
		kingpin.FatalIfError(service.ExportWorkbook(ctx, db, render.New(policy), *exportXLSX, names), "Export failed")
		fmt.Println(*exportXLSX)
		return
	}

	written, err := service.ExportTables(ctx, db, render.New(policy), *exportDir, names)
	for _, path := range written {
		fmt.Println(path)
	}
	kingpin.FatalIfError(err, "Export failed")
}

func init() {
	commandHandlers = append(commandHandlers, func(command string) bool {
		switch command {
		case initDB.FullCommand():
			doInitDB()
		case export.FullCommand():
			doExport()
		default:
			return false
		}
		return true
	})
}
