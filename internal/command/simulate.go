package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	smartcache "github.com/probablyarth/smartcache-go"
	"github.com/probablyarth/smartcache-go/internal/backend"
)

// SimulateCommandBuilder returns the "simulate" subcommand, which drives an
// in-process cache with concurrent requests and reports how much backend
// work was saved.
func SimulateCommandBuilder(cfgPath string) *cli.Command {
	flags := append(CacheFlags(cfgPath), BackendFlags(cfgPath)...)
	flags = append(flags,
		&cli.IntFlag{
			Name:    "requests",
			Aliases: []string{"n"},
			Usage:   "total number of requests",
			Value:   10000,
		},
		&cli.IntFlag{
			Name:    "keys",
			Aliases: []string{"k"},
			Usage:   "number of distinct keys requested",
			Value:   100,
		},
		&cli.IntFlag{
			Name:    "concurrency",
			Aliases: []string{"c"},
			Usage:   "requests in flight at once",
			Value:   64,
		},
	)

	return &cli.Command{
		Name:  "simulate",
		Usage: "run a concurrent load against an in-process cache",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			sim := Simulation{
				Cache:       cacheConfig(cmd),
				Latency:     cmd.Duration("latency"),
				FailPrefix:  cmd.String("fail-prefix"),
				Requests:    cmd.Int("requests"),
				Keys:        cmd.Int("keys"),
				Concurrency: cmd.Int("concurrency"),
			}
			report, err := sim.Run(ctx)
			if err != nil {
				return err
			}
			report.Write(cmd.Root().Writer)
			return nil
		},
	}
}

// Simulation describes one load run. Request i asks for key "key-<i mod Keys>".
type Simulation struct {
	Cache       smartcache.Config
	Latency     time.Duration
	FailPrefix  string
	Requests    int
	Keys        int
	Concurrency int
}

// Report summarises a Simulation.
type Report struct {
	Requests int64
	Fetches  int64
	Failed   int64
	Busy     int64
	Events   map[smartcache.Event]int64
	Elapsed  time.Duration
}

type tally [smartcache.EventEvict + 1]atomic.Int64

func (t *tally) On(e smartcache.EventData) {
	t[e.Event].Add(int64(e.Count))
}

// Run executes the simulation. Busy rejections and backend failures are
// counted, not returned.
func (s Simulation) Run(ctx context.Context) (Report, error) {
	if s.Keys < 1 || s.Requests < 0 || s.Concurrency < 1 {
		return Report{}, fmt.Errorf("keys and concurrency must be positive, requests non-negative")
	}

	var events tally
	c, err := smartcache.New[string, backend.Record](
		smartcache.WithConfig(s.Cache),
		smartcache.WithObserver(&events),
	)
	if err != nil {
		return Report{}, err
	}
	defer c.Close()

	be := &backend.Backend{Latency: s.Latency, FailPrefix: s.FailPrefix}
	var failed, busy atomic.Int64

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.Concurrency)
	for i := range s.Requests {
		key := fmt.Sprintf("key-%d", i%s.Keys)
		g.Go(func() error {
			_, err := c.Do(gctx, key, be.Fetch)
			switch {
			case err == nil:
			case errors.Is(err, smartcache.ErrBusy):
				busy.Add(1)
			case errors.Is(err, backend.ErrUnavailable):
				failed.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	report := Report{
		Requests: int64(s.Requests),
		Fetches:  be.Calls(),
		Failed:   failed.Load(),
		Busy:     busy.Load(),
		Events:   make(map[smartcache.Event]int64),
		Elapsed:  time.Since(start),
	}
	for e := range events {
		report.Events[smartcache.Event(e)] = events[e].Load()
	}
	return report, nil
}

// Write prints the report in a human-friendly form.
func (r Report) Write(w io.Writer) {
	saved := 0.0
	if r.Requests > 0 {
		saved = 100 * float64(r.Requests-r.Fetches) / float64(r.Requests)
	}
	fmt.Fprintf(w, "requests:  %s in %s\n", humanize.Comma(r.Requests), r.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "fetches:   %s (%.1f%% saved)\n", humanize.Comma(r.Fetches), saved)
	fmt.Fprintf(w, "failed:    %s\n", humanize.Comma(r.Failed))
	fmt.Fprintf(w, "busy:      %s\n", humanize.Comma(r.Busy))
	for e := smartcache.EventHit; e <= smartcache.EventEvict; e++ {
		fmt.Fprintf(w, "%-10s %s\n", e.String()+":", humanize.Comma(r.Events[e]))
	}
}
