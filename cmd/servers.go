package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"querypad/internal/config"
	"querypad/internal/handler"
	"querypad/internal/render"
	"querypad/internal/service"
	"querypad/internal/view"
	"querypad/internal/web"
)

const shutdownTimeout = 5 * time.Second

var (
	apiCommand   = app.Command("api", "Run the API server.")
	webCommand   = app.Command("web", "Run the web front end.")
	serveCommand = app.Command("serve", "Run the API server and the web front end.")
)

// newAPIServer connects to the configured database and builds the API
// server. A failed connection is logged and the server answers 503 on the
// database routes.
func newAPIServer(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*http.Server, func()) {
	var db service.DBClient
	cleanup := func() {}

	client, err := connectDB(ctx, cfg.DB, log)
	if err != nil {
		log.WithError(err).WithField("driver", cfg.DB.Driver).Error("No database connection")
	} else {
		db = client
		cleanup = func() {
			if err := client.Disconnect(); err != nil {
				log.WithError(err).Warn("Disconnect")
			}
		}
	}

	h := handler.New(db, handler.Options{
		Message:     cfg.API.Message,
		Schema:      cfg.API.Schema,
		CORSOrigins: cfg.API.CORSOrigins,
		Logger:      log.WithField("component", "api"),
	})
	return &http.Server{Addr: cfg.API.Addr, Handler: h.Router()}, cleanup
}

func newWebServer(cfg *config.Config, log *logrus.Logger) *http.Server {
	policy, err := render.ParsePolicy(cfg.Web.ColumnPolicy)
	kingpin.FatalIfError(err, "COLUMN_POLICY")

	wlog := log.WithField("component", "web")
	v := view.New(newAPIClient(cfg.Web, wlog), wlog)

	s := web.New(v, render.New(policy), web.Options{
		ShowErrors:      cfg.Web.ShowErrors,
		GreetingTimeout: cfg.Web.Timeout,
		Logger:          wlog,
	})
	return &http.Server{Addr: cfg.Web.Addr, Handler: s.Router()}
}

// runServer serves until ctx is done, then shuts srv down.
func runServer(ctx context.Context, srv *http.Server, log logrus.FieldLogger) error {
	errc := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("Listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrapf(err, "listen on %s", srv.Addr)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func doServe(withAPI, withWeb bool) error {
	cfg, log := setup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	if withAPI {
		srv, cleanup := newAPIServer(ctx, cfg, log)
		defer cleanup()
		g.Go(func() error { return runServer(ctx, srv, log.WithField("component", "api")) })
	}
	if withWeb {
		srv := newWebServer(cfg, log)
		g.Go(func() error { return runServer(ctx, srv, log.WithField("component", "web")) })
	}

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("Shut down")
	return nil
}

func init() {
	commandHandlers = append(commandHandlers, func(command string) bool {
		var err error
		switch command {
		case apiCommand.FullCommand():
			err = doServe(true, false)
		case webCommand.FullCommand():
			err = doServe(false, true)
		case serveCommand.FullCommand():
			err = doServe(true, true)
		default:
			return false
		}
		kingpin.FatalIfError(err, "Server stopped")
		return true
	})
}
