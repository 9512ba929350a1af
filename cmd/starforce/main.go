// Command starforce simulates starforce upgrade walks and prints percentile
// tables of the resulting costs, attempts and booms.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/xtding233/starforce/internal/config"
	"github.com/xtding233/starforce/internal/logger"
	"github.com/xtding233/starforce/internal/ruleset"
	"github.com/xtding233/starforce/internal/service"
	"github.com/xtding233/starforce/internal/starforce"
	"github.com/xtding233/starforce/internal/storage"
)

type options struct {
	configPath string
	start      int
	end        int
	lvl        int
	n          int
	parallel   bool
	workers    int
	seed       uint64
	progress   bool
	rulesetDir string
	ruleset    string
	chanceTime int
	boomFloor  int
	save       bool
	load       string
	list       bool
	hist       bool
	bins       int
	metric     string
	fit        string
	remote     string
}

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", "starforce.yaml", "path to config file")
	flag.IntVar(&o.start, "start", 15, "starting star level")
	flag.IntVar(&o.end, "end", 22, "target star level")
	flag.IntVar(&o.lvl, "lvl", 150, "item level")
	flag.IntVar(&o.n, "n", 0, "number of trials (default from config)")
	flag.BoolVar(&o.parallel, "parallel", false, "run trials on a worker pool (default from config)")
	flag.IntVar(&o.workers, "workers", 0, "worker count, 0 means one per CPU")
	flag.Uint64Var(&o.seed, "seed", 0, "root RNG seed, 0 draws a fresh one")
	flag.BoolVar(&o.progress, "progress", false, "show a progress line on stderr")
	flag.StringVar(&o.rulesetDir, "ruleset-dir", "", "directory holding default.yaml and rulesets/")
	flag.StringVar(&o.ruleset, "ruleset", "", "ruleset name (default from config)")
	flag.IntVar(&o.chanceTime, "chance-time", -1, "override consecutive drops before a guaranteed success")
	flag.IntVar(&o.boomFloor, "boom-floor", -1, "override the level a boom resets to")
	flag.BoolVar(&o.save, "save", false, "persist the result and print its id")
	flag.StringVar(&o.load, "load", "", "print a saved result instead of simulating")
	flag.BoolVar(&o.list, "list", false, "list saved results")
	flag.BoolVar(&o.hist, "hist", false, "print a histogram of -metric")
	flag.IntVar(&o.bins, "bins", 20, "histogram bins")
	flag.StringVar(&o.metric, "metric", "costs", "metric for -hist and -fit: costs, attempts or booms")
	flag.StringVar(&o.fit, "fit", "", "fit a model to -metric: normal or lognormal")
	flag.StringVar(&o.remote, "remote", "", "simulate on a starforce server at this gRPC address")
	flag.Parse()

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if err := run(o, set); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(o options, set map[string]bool) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if err := logger.Initialize(cfg.Logging); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	applyConfig(&o, set, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case o.list:
		return listSaved(ctx, cfg)
	case o.load != "":
		return loadSaved(ctx, cfg, o)
	case o.remote != "":
		return simulateRemote(ctx, o)
	}
	return simulateLocal(ctx, cfg, o)
}

// applyConfig fills flags the user did not set from the config file.
func applyConfig(o *options, set map[string]bool, cfg *config.Config) {
	if !set["n"] {
		o.n = cfg.Simulation.Trials
	}
	if !set["parallel"] {
		o.parallel = cfg.Simulation.Parallel
	}
	if !set["workers"] {
		o.workers = cfg.Simulation.Workers
	}
	if !set["seed"] {
		o.seed = cfg.Simulation.Seed
	}
	if !set["ruleset-dir"] {
		o.rulesetDir = cfg.Ruleset.Dir
	}
	if !set["ruleset"] {
		o.ruleset = cfg.Ruleset.Name
	}
}

func overrides(o options) ruleset.Overrides {
	var ov ruleset.Overrides
	if o.chanceTime >= 0 {
		ct := o.chanceTime
		ov.ChanceTime = &ct
	}
	if o.boomFloor >= 0 {
		floor := o.boomFloor
		ov.BoomFloor = &floor
	}
	return ov
}

func simulateLocal(ctx context.Context, cfg *config.Config, o options) error {
	rs, err := ruleset.NewLoader(o.rulesetDir).Load(o.ruleset, overrides(o))
	if err != nil {
		return err
	}
	seed := o.seed
	if seed == 0 {
		if seed, err = starforce.NewSeed(); err != nil {
			return err
		}
	}
	runner := starforce.Runner{
		Workers:   o.workers,
		ShardSize: cfg.Simulation.ShardSize,
		Seed:      seed,
	}

	var bar *progressBar
	var onProgress starforce.ProgressFunc
	if o.progress {
		bar = newProgressBar(os.Stderr)
		onProgress = bar.Update
	}

	started := time.Now()
	res, err := starforce.Simulate(ctx, rs, starforce.Request{
		Start:     o.start,
		End:       o.end,
		ItemLevel: o.lvl,
		Trials:    o.n,
		Parallel:  o.parallel,
	}, runner, onProgress)
	if bar != nil {
		bar.Done()
	}
	if err != nil {
		return err
	}
	logger.Info("simulation finished", "ruleset", rs.Name, "trials", o.n, "seed", seed, "elapsed", time.Since(started))

	if err := report(res, o); err != nil {
		return err
	}
	if o.save {
		store, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()
		id, err := store.Save(ctx, res)
		if err != nil {
			return err
		}
		fmt.Println("saved:", id)
	}
	return nil
}

func report(res *starforce.ResultSet, o options) error {
	text, err := res.Overview()
	if err != nil {
		return err
	}
	fmt.Print(text)

	if !o.hist && o.fit == "" {
		return nil
	}
	m, err := starforce.ParseMetric(o.metric)
	if err != nil {
		return err
	}
	if o.hist {
		h, err := res.Histogram(m, o.bins)
		if err != nil {
			return err
		}
		fmt.Println()
		writeHistogram(os.Stdout, h, 50)
	}
	if o.fit != "" {
		f, err := starforce.FitterByName(o.fit)
		if err != nil {
			return err
		}
		fit, err := res.Fit(m, f)
		if err != nil {
			return err
		}
		fmt.Printf("\nFIT %s (%s): mu=%.4f sigma=%.4f\n", fit.Model, m, fit.Params["mu"], fit.Params["sigma"])
	}
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (*storage.Store, error) {
	return storage.Open(ctx, storage.Config{
		Driver:      storage.DialectType(cfg.Storage.Driver),
		SQLitePath:  cfg.Storage.SQLitePath,
		PostgresDSN: cfg.Storage.PostgresDSN,
	})
}

func loadSaved(ctx context.Context, cfg *config.Config, o options) error {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	res, err := store.Load(ctx, o.load)
	if err != nil {
		return err
	}
	return report(res, o)
}

func listSaved(ctx context.Context, cfg *config.Config) error {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	recs, err := store.List(ctx, 0)
	if err != nil {
		return err
	}
	for _, r := range recs {
		fmt.Printf("%s  %s  %2d -> %2d  lvl%-3d  n=%-9d  %s\n",
			r.ID, r.CreatedAt.Format(time.RFC3339), r.Start, r.End, r.ItemLevel, r.Size, r.Ruleset)
	}
	return nil
}

func simulateRemote(ctx context.Context, o options) error {
	if o.chanceTime >= 0 || o.boomFloor >= 0 {
		return errors.New("-chance-time and -boom-floor only apply to local runs")
	}
	conn, err := grpc.NewClient(o.remote, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("dial %s: %w", o.remote, err)
	}
	defer conn.Close()
	client := service.NewClient(conn)

	req := map[string]any{
		"start":      o.start,
		"end":        o.end,
		"item_level": o.lvl,
		"trials":     o.n,
		"parallel":   o.parallel,
		"ruleset":    o.ruleset,
		"save":       o.save,
	}
	if o.seed != 0 {
		req["seed"] = fmt.Sprint(o.seed)
	}
	out, err := client.Call(ctx, "Simulate", req)
	if err != nil {
		return err
	}
	id, _ := out["id"].(string)
	ov, err := client.Call(ctx, "Overview", map[string]any{"id": id})
	if err != nil {
		return err
	}
	fmt.Print(ov["text"])
	if o.save {
		fmt.Println("saved:", id)
	}
	return nil
}
