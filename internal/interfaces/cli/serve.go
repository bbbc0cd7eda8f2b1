package cli

import (
	"context"
	"errors"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/whoiskiwi/PatentSearch/internal/bootstrap"
	"github.com/whoiskiwi/PatentSearch/internal/infrastructure/monitoring/logging"
	httpapi "github.com/whoiskiwi/PatentSearch/internal/interfaces/http"
	"github.com/whoiskiwi/PatentSearch/internal/interfaces/http/handlers"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	var (
		host string
		port int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the search API until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cliCtx.Config.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cliCtx.Config.Server.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := cliCtx.App(ctx)
			if err != nil {
				return err
			}
			ln, err := net.Listen("tcp", cliCtx.Config.Server.Addr())
			if err != nil {
				return err
			}
			return Serve(ctx, app, ln)
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "listen host (overrides server.host)")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides server.port)")
	return cmd
}

// NewRouter assembles the HTTP API for app.
func NewRouter(app *bootstrap.App) *gin.Engine {
	cfg := app.Config
	rc := httpapi.RouterConfig{
		SearchHandler: handlers.NewSearchHandler(app.Handle, handlers.WithSearchLogger(app.Logger)),
		PatentHandler: handlers.NewPatentHandler(app.Handle),
		HealthHandler: handlers.NewHealthHandler(Version,
			handlers.CheckFunc("corpus", func(context.Context) error {
				_, err := app.ResolveDataFile()
				return err
			}),
			handlers.CheckFunc("engine", func(context.Context) error {
				if app.Handle.Current() == nil {
					return errors.New("search engine not loaded")
				}
				return nil
			}),
		),
		Logger:         app.Logger.Named("http"),
		CORSOrigins:    cfg.Server.CORSOrigins,
		RequestTimeout: cfg.Server.RequestTimeout,
	}
	if app.Metrics != nil {
		rc.Metrics = app.Metrics
		rc.MetricsHandler = app.Collector.Handler()
		rc.MetricsPath = cfg.Metrics.Path
	}
	return httpapi.NewRouter(rc)
}

// Serve runs the API on ln, loads the engine in the background and follows
// the data directory, until ctx is cancelled or the server fails.
func Serve(ctx context.Context, app *bootstrap.App, ln net.Listener) error {
	gin.SetMode(app.Config.Server.Mode)
	srv := httpapi.NewServer(app.Config.Server, NewRouter(app), app.Logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Serve(ln) })
	g.Go(func() error {
		<-gctx.Done()
		return srv.Stop(context.Background())
	})
	g.Go(func() error {
		if _, err := app.Handle.Engine(gctx); err != nil {
			app.Logger.Warn("Initial engine load failed, waiting for a new data file", logging.Err(err))
		}
		return nil
	})
	if w := app.Watcher(); w != nil {
		g.Go(func() error {
			if err := w.Run(gctx); err != nil {
				app.Logger.Error("Data watcher stopped", logging.Err(err))
			}
			return nil
		})
	}
	return g.Wait()
}
