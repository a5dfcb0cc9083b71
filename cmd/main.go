package main

import (
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"querypad/internal/config"
	"querypad/internal/logging"
)

// CommandHandler runs command if it owns it and reports whether it did.
type CommandHandler func(command string) bool

var (
	app = kingpin.New("querypad",
		"Run SQL against the device monitoring database and view the rows as a table.")

	envFile  = app.Flag("env", "Path to a .env file.").Default(".env").String()
	logLevel = app.Flag("log-level", "Overrides LOG_LEVEL.").String()

	commandHandlers []CommandHandler
)

// setup loads the configuration and builds the process logger.
func setup() (*config.Config, *logrus.Logger) {
	cfg := config.LoadConfig(*envFile)

	level := cfg.Log.Level
	if *logLevel != "" {
		level = *logLevel
	}
	log, err := logging.New(level, cfg.Log.Format, os.Stderr)
	kingpin.FatalIfError(err, "Unable to set up logging")

	if !log.IsLevelEnabled(logrus.DebugLevel) {
		gin.SetMode(gin.ReleaseMode)
	}
	return cfg, log
}

func main() {
	app.HelpFlag.Short('h')
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	for _, handler := range commandHandlers {
		if handler(command) {
			break
		}
	}
}
