package command

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/apex/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"

	smartcache "github.com/probablyarth/smartcache-go"
	"github.com/probablyarth/smartcache-go/internal/backend"
	"github.com/probablyarth/smartcache-go/internal/config"
	"github.com/probablyarth/smartcache-go/internal/server"
	"github.com/probablyarth/smartcache-go/prom"
)

const shutdownTimeout = 5 * time.Second

// ServeCommandBuilder returns the "serve" subcommand, which runs the HTTP
// record server until ctx is cancelled.
func ServeCommandBuilder(cfgPath string) *cli.Command {
	flags := append(CacheFlags(cfgPath), BackendFlags(cfgPath)...)
	flags = append(flags, &cli.StringFlag{
		Name:    "listen",
		Aliases: []string{"l"},
		Usage:   "address to listen on",
		Value:   config.DefaultListen,
		Sources: sources(cfgPath, "SMARTCACHE_LISTEN", "server.listen"),
	})

	return &cli.Command{
		Name:   "serve",
		Usage:  "serve cached records over HTTP",
		Flags:  flags,
		Action: ServeCommandAction,
	}
}

// ServeCommandAction is the action handler for the "serve" subcommand.
func ServeCommandAction(ctx context.Context, cmd *cli.Command) error {
	metrics := prom.NewMetrics("smartcache", prometheus.DefaultRegisterer)

	records, err := smartcache.New[string, backend.Record](
		smartcache.WithConfig(cacheConfig(cmd)),
		smartcache.WithObserver(metrics.Observer("records")),
	)
	if err != nil {
		return err
	}
	defer records.Close()
	metrics.Track("records", records.Stats)

	be := &backend.Backend{
		Latency:    cmd.Duration("latency"),
		FailPrefix: cmd.String("fail-prefix"),
	}
	srv := server.New(records, be.Fetch)
	srv.Handle("GET /metrics", promhttp.Handler())

	httpSrv := &http.Server{
		Addr:              cmd.String("listen"),
		Handler:           srv,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- httpSrv.ListenAndServe()
	}()

	cfg := records.Config()
	log.WithFields(log.Fields{
		"listen":      httpSrv.Addr,
		"ttl":         cfg.TTL,
		"max_cached":  cfg.MaxCached,
		"max_pending": cfg.MaxPending,
	}).Info("serving")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Info("stopped")
	return nil
}
