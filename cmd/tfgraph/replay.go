package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/tfgraph/internal/config"
	"github.com/banshee-data/tfgraph/internal/db"
	"github.com/banshee-data/tfgraph/internal/ingest"
	"github.com/banshee-data/tfgraph/internal/monitor"
	"github.com/banshee-data/tfgraph/internal/monitoring"
	"github.com/banshee-data/tfgraph/internal/replay"
	"github.com/banshee-data/tfgraph/internal/tf"
	"github.com/banshee-data/tfgraph/internal/tfservice"
)

type replayOptions struct {
	recording  string
	configPath string
	dbPath     string
	target     string
	source     string
	at         string
	rate       float64
	serve      bool
	plotDir    string
}

func newReplayCmd() *cobra.Command {
	var opts replayOptions
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay a recording and look up a transform",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runReplay(ctx, cmd.OutOrStdout(), opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.recording, "recording", "", "JSON-lines recording to replay")
	f.StringVar(&opts.configPath, "config", "", "session config (.yaml or .json)")
	f.StringVar(&opts.dbPath, "db", "", "SQLite database for static links and sessions (overrides db_path)")
	f.StringVar(&opts.target, "target", "", "frame to express the result in (defaults to fixed_frame)")
	f.StringVar(&opts.source, "source", "", "frame to look up")
	f.StringVar(&opts.at, "at", "", "lookup stamp as sec[.fraction] (defaults to the newest stamp)")
	f.Float64Var(&opts.rate, "rate", 0, "playback rate; 0 plays as fast as possible")
	f.BoolVar(&opts.serve, "serve", false, "keep serving gRPC and the HTTP monitor after playback")
	f.StringVar(&opts.plotDir, "plot-dir", "", "write a translation plot of the source frame into this directory")
	_ = cmd.MarkFlagRequired("recording")
	return cmd
}

// newConfigWatcher is replaced in tests.
var newConfigWatcher = config.NewWatcher

func loadConfig(path string) (*config.SessionConfig, error) {
	if path == "" {
		return config.EmptySessionConfig(), nil
	}
	return config.Load(path)
}

func runReplay(ctx context.Context, out io.Writer, opts replayOptions) error {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	accOpts := []ingest.Option{
		ingest.WithRetention(cfg.GetRetention()),
		ingest.WithMaxSamplesPerFrame(cfg.GetMaxSamplesPerFrame()),
		ingest.WithMetrics(ingest.NewMetrics(reg)),
	}

	var (
		database *db.DB
		stored   []tf.Link
	)
	dbPath := opts.dbPath
	if dbPath == "" {
		dbPath = cfg.GetDBPath()
	}
	if dbPath != "" {
		database, err = db.Open(dbPath)
		if err != nil {
			return err
		}
		defer database.Close()
		stored, err = db.NewStaticLinkStore(database).Links()
		if err != nil {
			return err
		}
		accOpts = append(accOpts, ingest.WithSessionRecorder(db.NewSessionStore(database)))
		monitoring.Logf("[tfgraph] using database %s (%d stored links)", dbPath, len(stored))
	}
	accOpts = append(accOpts, ingest.WithStaticLinks(mergeLinks(cfg.Links(), stored)))

	reader, err := replay.Open(opts.recording)
	if err != nil {
		return err
	}

	latest := &ingest.Latest{}
	acc := ingest.NewAccumulator(accOpts...)
	defer acc.Close()

	linkUpdates := make(chan []tf.Link, 1)
	player := replay.NewPlayer(reader, acc,
		replay.WithRate(opts.rate),
		replay.WithPublish(latest),
		replay.WithLinkUpdates(linkUpdates),
	)

	if !opts.serve {
		if err := player.Run(ctx); err != nil {
			return err
		}
		return report(out, latest.Snapshot(), cfg, opts)
	}

	var watcher *config.Watcher
	if opts.configPath != "" {
		watcher, err = newConfigWatcher(opts.configPath)
		if err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return tfservice.Serve(gctx, cfg.GetGRPCListen(), latest)
	})

	var webOpts []monitor.Option
	if database != nil {
		webOpts = append(webOpts, monitor.WithAdminRoutes(database))
	}
	web := monitor.NewWebServer(latest, reg, webOpts...)
	g.Go(func() error {
		return web.Start(gctx, cfg.GetHTTPListen())
	})

	if watcher != nil {
		g.Go(func() error {
			err := watcher.Run(gctx)
			if gctx.Err() != nil {
				return nil
			}
			return err
		})
		g.Go(func() error {
			forwardLinkUpdates(watcher.Updates(), stored, linkUpdates)
			return nil
		})
	}

	g.Go(func() error {
		if err := player.Run(gctx); err != nil {
			if gctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := report(out, latest.Snapshot(), cfg, opts); err != nil {
			log.Printf("[tfgraph] %v", err)
		}
		log.Printf("[tfgraph] playback finished; serving until interrupted")
		return nil
	})
	return g.Wait()
}

// mergeLinks returns config links followed by database links. Later links
// for the same child win when the accumulator applies them.
func mergeLinks(configured, stored []tf.Link) []tf.Link {
	out := make([]tf.Link, 0, len(configured)+len(stored))
	out = append(out, configured...)
	return append(out, stored...)
}

// forwardLinkUpdates turns reloaded configs into static link sets until
// updates is closed. Stored links are kept on every reload. Only the newest
// pending set is held in out.
func forwardLinkUpdates(updates <-chan *config.SessionConfig, stored []tf.Link, out chan []tf.Link) {
	for updated := range updates {
		select {
		case <-out:
		default:
		}
		out <- mergeLinks(updated.Links(), stored)
	}
}

// report prints the requested lookup and writes the optional plot.
func report(out io.Writer, snap *tf.Snapshot, cfg *config.SessionConfig, opts replayOptions) error {
	if snap == nil {
		return fmt.Errorf("recording produced no snapshot")
	}
	fmt.Fprintf(out, "session %s generation %d: %d frames\n", snap.SessionID(), snap.Generation(), snap.Len())

	if opts.plotDir != "" && opts.source != "" {
		if f := snap.Frame(opts.source); f != nil && f.Len() > 0 {
			path, err := monitor.NewTrajectoryPlotter().SavePNG(opts.plotDir, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "plot: %s\n", path)
		}
	}

	if opts.source == "" {
		for _, info := range snap.Describe() {
			fmt.Fprintf(out, "  %-24s parent=%-16s samples=%d\n", info.ID, info.Parent, info.Samples)
		}
		return nil
	}

	target := opts.target
	if target == "" {
		target = cfg.GetFixedFrame()
	}
	stamp := snap.NewestStamp()
	if opts.at != "" {
		parsed, err := tf.ParseTime(opts.at)
		if err != nil {
			return err
		}
		stamp = parsed
	}

	pose, err := snap.LookupTransform(stamp, target, opts.source)
	if err != nil {
		return err
	}
	t, q := pose.Translation, pose.Rotation
	fmt.Fprintf(out, "%s in %s at %s\n", tf.CanonicalFrameID(opts.source), tf.CanonicalFrameID(target), stamp)
	fmt.Fprintf(out, "  translation: [%.6f, %.6f, %.6f]\n", t.X, t.Y, t.Z)
	fmt.Fprintf(out, "  rotation:    [%.6f, %.6f, %.6f, %.6f]\n", q.Imag, q.Jmag, q.Kmag, q.Real)
	m := pose.RowMajor()
	for r := 0; r < 4; r++ {
		fmt.Fprintf(out, "  | %9.4f %9.4f %9.4f %9.4f |\n", m[r*4], m[r*4+1], m[r*4+2], m[r*4+3])
	}
	return nil
}
