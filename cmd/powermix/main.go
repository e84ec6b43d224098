package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"

	"github.com/signalsfoundry/powermix/core"
	"github.com/signalsfoundry/powermix/geo"
	"github.com/signalsfoundry/powermix/internal/config"
	"github.com/signalsfoundry/powermix/internal/logging"
	"github.com/signalsfoundry/powermix/internal/observability"
	"github.com/signalsfoundry/powermix/internal/tables"
	"github.com/signalsfoundry/powermix/kb"
	"github.com/signalsfoundry/powermix/scenario"
)

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error: ", err)
		os.Exit(1)
	}
}

// Transform modes selected by the subcommands.
const (
	modeMarkets    = "markets"
	modeEfficiency = "efficiency"
	modeRun        = "run"
)

// options are the resolved command line settings of one invocation.
type options struct {
	configPath      string
	dbPath          string
	outPath         string
	reportPath      string
	metricsAddr     string
	metricsTextfile string
	mode            string
}

func newApp(stdout io.Writer) *cli.App {
	ioFlags := []cli.Flag{
		&cli.StringFlag{
			Name:  "db",
			Usage: "inventory JSON to transform (overrides the run file)",
		},
		&cli.StringFlag{
			Name:  "out",
			Usage: "where to write the transformed inventory JSON (overrides the run file)",
		},
		&cli.StringFlag{
			Name:  "report",
			Usage: "write the diagnostic report as JSON to this path",
		},
	}
	command := func(mode, usage string) *cli.Command {
		return &cli.Command{
			Name:  mode,
			Usage: usage,
			Flags: ioFlags,
			Action: func(c *cli.Context) error {
				opts := options{
					configPath:      c.String("config"),
					dbPath:          c.String("db"),
					outPath:         c.String("out"),
					reportPath:      c.String("report"),
					metricsAddr:     c.String("metrics-addr"),
					metricsTextfile: c.String("metrics-textfile"),
					mode:            mode,
				}
				return run(c.Context, opts, logging.NewFromEnv(), c.App.Writer)
			},
		}
	}

	return &cli.App{
		Name:      "powermix",
		Usage:     "Integrate energy scenario projections into a life-cycle inventory",
		Writer:    stdout,
		ErrWriter: os.Stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Required: true,
				Usage:    "specify the YAML run file",
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "serve Prometheus /metrics on this address while the run lasts",
			},
			&cli.StringFlag{
				Name:  "metrics-textfile",
				Usage: "write metrics for the node exporter textfile collector (overrides the run file)",
			},
		},
		Commands: []*cli.Command{
			command(modeMarkets, "Replace electricity markets with scenario-based market groups"),
			command(modeEfficiency, "Rescale power plants to scenario efficiencies and emissions"),
			command(modeRun, "Rescale power plants, then replace electricity markets"),
		},
	}
}

func run(ctx context.Context, opts options, base logging.Logger, stdout io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, log := logging.WithRunLogger(ctx, base)

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.dbPath != "" {
		cfg.Inventory = opts.dbPath
	}
	if opts.outPath != "" {
		cfg.Output = opts.outPath
	}
	if opts.metricsTextfile != "" {
		cfg.MetricsTextfile = opts.metricsTextfile
	}
	if cfg.Inventory == "" {
		return errors.New("no inventory given: set inventory in the run file or pass --db")
	}

	shutdown, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(ctx, shutdown, log)

	ctx, span := observability.StartRun(ctx, opts.mode, cfg.Scenario, cfg.Year)
	defer span.End()

	collector, err := observability.NewTransformCollector(prometheus.NewRegistry())
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	if srv := serveMetrics(ctx, opts.metricsAddr, collector, log); srv != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	env, err := buildEnv(ctx, cfg, log)
	if err != nil {
		return err
	}
	env.Metrics = collector

	tr, err := core.NewTransformer(env)
	if err != nil {
		return err
	}
	switch opts.mode {
	case modeMarkets:
		err = tr.UpdateMarkets(ctx)
	case modeEfficiency:
		err = tr.UpdateEfficiency(ctx)
	default:
		_, err = tr.Run(ctx)
	}
	if err != nil {
		span.RecordError(err)
		return err
	}
	report := tr.Report()

	if cfg.Output != "" {
		if err := writeInventory(env.Inventory, cfg.Output); err != nil {
			return err
		}
		log.Info(ctx, "wrote inventory", logging.String("path", cfg.Output), logging.Int("datasets", env.Inventory.Len()))
	}
	if opts.reportPath != "" {
		if err := writeReport(report, opts.reportPath); err != nil {
			return err
		}
	}
	if cfg.MetricsTextfile != "" {
		if err := collector.WriteTextfile(cfg.MetricsTextfile); err != nil {
			log.Warn(ctx, "failed to write metrics textfile", logging.String("path", cfg.MetricsTextfile), logging.Err(err))
		}
	}

	fmt.Fprint(stdout, report.Summary())
	return nil
}

// buildEnv loads every table the run file names and the inventory itself.
func buildEnv(ctx context.Context, cfg *config.Config, log logging.Logger) (*core.Env, error) {
	mapping, err := tables.LoadRegionMapping(cfg.Tables.RegionMapping)
	if err != nil {
		return nil, err
	}
	population, err := tables.LoadPopulation(cfg.Tables.Population)
	if err != nil {
		return nil, err
	}
	lhv, err := tables.LoadHeatingValues(cfg.Tables.HeatingValues)
	if err != nil {
		return nil, err
	}
	var extra tables.Aggregates
	if cfg.Tables.Aggregates != "" {
		if extra, err = tables.LoadAggregates(cfg.Tables.Aggregates); err != nil {
			return nil, err
		}
	}
	topo := geo.NewTopology(mapping, geo.Merge(geo.DefaultAggregates(), extra))

	sc, err := loadScenario(cfg)
	if err != nil {
		return nil, err
	}

	inv := kb.NewInventory()
	f, err := os.Open(cfg.Inventory)
	if err != nil {
		return nil, fmt.Errorf("open inventory: %w", err)
	}
	defer f.Close()
	summary, err := kb.LoadJSON(inv, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.Inventory, err)
	}
	log.Info(ctx, "loaded inventory",
		logging.String("path", cfg.Inventory),
		logging.Int("datasets", summary.Datasets),
		logging.Int("exchanges", summary.Exchanges),
		logging.Strings("databases", summary.Databases),
	)

	return &core.Env{
		Inventory:     inv,
		Resolver:      geo.NewResolver(topo, log),
		Allocator:     core.NewAllocator(population),
		Scenario:      sc,
		Technologies:  cfg.TechnologyMap(),
		Emissions:     cfg.EmissionMap(),
		HeatingValues: lhv,
		Strict:        cfg.Strict,
		Logger:        log,
	}, nil
}

func loadScenario(cfg *config.Config) (*scenario.Scenario, error) {
	sc := &scenario.Scenario{Name: cfg.Scenario, Year: cfg.Year}

	var err error
	if sc.Supply, sc.SupplyLabels, err = loadCube(cfg.Scenarios.Supply, cfg.Labels.Supply); err != nil {
		return nil, err
	}
	if cfg.Scenarios.Efficiency != "" {
		if sc.Efficiency, sc.EfficiencyLabels, err = loadCube(cfg.Scenarios.Efficiency, cfg.Labels.Efficiency); err != nil {
			return nil, err
		}
	}
	if cfg.Scenarios.Emission != "" {
		if sc.Emission, sc.EmissionLabels, err = loadCube(cfg.Scenarios.Emission, cfg.Labels.Emission); err != nil {
			return nil, err
		}
	}
	return sc, nil
}

func loadCube(path string, labels map[string]string) (*scenario.Cube, *scenario.Labels, error) {
	cube, embedded, err := scenario.LoadCubeFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("scenario cube: %w", err)
	}
	if len(labels) > 0 {
		return cube, scenario.NewLabels(labels), nil
	}
	return cube, embedded, nil
}

func writeInventory(inv *kb.Inventory, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := kb.WriteJSON(inv, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeReport(report *core.Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func serveMetrics(ctx context.Context, addr string, collector *observability.TransformCollector, log logging.Logger) *http.Server {
	if addr == "" || collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(ctx, "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(ctx, "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
