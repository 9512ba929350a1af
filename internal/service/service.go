// Package service exposes simulations and result queries over gRPC and HTTP.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xtding233/starforce/internal/logger"
	"github.com/xtding233/starforce/internal/ruleset"
	"github.com/xtding233/starforce/internal/starforce"
	"github.com/xtding233/starforce/internal/storage"
	"github.com/xtding233/starforce/internal/telemetry"
)

// ErrNotFound is returned for unknown result ids.
var ErrNotFound = storage.ErrNotFound

const defaultCacheSize = 64

// ResultStore persists results beyond the in-memory cache.
type ResultStore interface {
	Save(ctx context.Context, r *starforce.ResultSet) (string, error)
	Load(ctx context.Context, id string) (*starforce.ResultSet, error)
}

// Options configures a Service.
type Options struct {
	Loader         *ruleset.Loader
	DefaultRuleset string
	Store          ResultStore // optional
	Runner         starforce.Runner
	MaxTrials      int // 0 means no cap
	CacheSize      int // results kept in memory; 0 means defaultCacheSize
	Logger         *slog.Logger
}

// Service runs simulations and answers queries on their results.
type Service struct {
	loader         *ruleset.Loader
	defaultRuleset string
	store          ResultStore
	runner         starforce.Runner
	maxTrials      int
	log            *slog.Logger
	tracer         trace.Tracer

	mu        sync.RWMutex
	results   map[string]*starforce.ResultSet
	order     []string // insertion order for eviction
	cacheSize int
}

// New creates a Service. A nil Loader reads only the built-in ruleset.
func New(opts Options) *Service {
	s := &Service{
		loader:         opts.Loader,
		defaultRuleset: opts.DefaultRuleset,
		store:          opts.Store,
		runner:         opts.Runner,
		maxTrials:      opts.MaxTrials,
		log:            opts.Logger,
		tracer:         telemetry.Tracer(),
		results:        make(map[string]*starforce.ResultSet),
		cacheSize:      opts.CacheSize,
	}
	if s.loader == nil {
		s.loader = ruleset.NewLoader("")
	}
	if s.defaultRuleset == "" {
		s.defaultRuleset = ruleset.DefaultName
	}
	if s.log == nil {
		s.log = logger.L()
	}
	if s.cacheSize <= 0 {
		s.cacheSize = defaultCacheSize
	}
	return s
}

// SimulateParams is one simulation request.
type SimulateParams struct {
	Start     int
	End       int
	ItemLevel int
	Trials    int
	Parallel  bool
	Ruleset   string
	Seed      uint64 // 0 uses the service runner's seed, or a fresh one
	Save      bool
}

// Simulate runs a batch, caches the result under a new id and optionally
// persists it.
func (s *Service) Simulate(ctx context.Context, p SimulateParams) (res *starforce.ResultSet, err error) {
	ctx, span := s.tracer.Start(ctx, "starforce.Simulate", trace.WithAttributes(
		attribute.Int("starforce.start", p.Start),
		attribute.Int("starforce.end", p.End),
		attribute.Int("starforce.item_level", p.ItemLevel),
		attribute.Int("starforce.trials", p.Trials),
		attribute.Bool("starforce.parallel", p.Parallel),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, err.Error())
		}
		span.End()
	}()

	if s.maxTrials > 0 && p.Trials > s.maxTrials {
		return nil, fmt.Errorf("%w: trials must be <= %d, received %d", starforce.ErrInvalidArgument, s.maxTrials, p.Trials)
	}
	name := p.Ruleset
	if name == "" {
		name = s.defaultRuleset
	}
	rs, err := s.loader.Load(name, ruleset.Overrides{})
	if err != nil {
		return nil, err
	}

	runner := s.runner
	switch {
	case p.Seed != 0:
		runner.Seed = p.Seed
	case runner.Seed == 0:
		if runner.Seed, err = starforce.NewSeed(); err != nil {
			return nil, err
		}
	}
	span.SetAttributes(attribute.String("starforce.ruleset", rs.Name))

	started := time.Now()
	res, err = starforce.Simulate(ctx, rs, starforce.Request{
		Start:     p.Start,
		End:       p.End,
		ItemLevel: p.ItemLevel,
		Trials:    p.Trials,
		Parallel:  p.Parallel,
	}, runner, func(done, total int) {
		s.log.Debug("simulate progress", "done", done, "total", total)
	})
	if err != nil {
		return nil, err
	}
	res.ID = uuid.NewString()
	span.SetAttributes(attribute.String("starforce.result_id", res.ID))
	s.log.Info("simulation finished",
		"id", res.ID, "ruleset", res.Ruleset, "start", p.Start, "end", p.End,
		"item_level", p.ItemLevel, "trials", p.Trials, "seed", runner.Seed,
		"elapsed", time.Since(started))

	if p.Save {
		if s.store == nil {
			return nil, fmt.Errorf("%w: no result store configured", starforce.ErrInvalidArgument)
		}
		if _, err := s.store.Save(ctx, res); err != nil {
			return nil, err
		}
	}
	s.remember(res)
	return res, nil
}

// Result returns the result with id from the cache or the store.
func (s *Service) Result(ctx context.Context, id string) (*starforce.ResultSet, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: id is required", starforce.ErrInvalidArgument)
	}
	s.mu.RLock()
	res, ok := s.results[id]
	s.mu.RUnlock()
	if ok {
		return res, nil
	}
	if s.store == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	res, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	s.remember(res)
	return res, nil
}

func (s *Service) remember(res *starforce.ResultSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.results[res.ID]; ok {
		return
	}
	s.results[res.ID] = res
	s.order = append(s.order, res.ID)
	for len(s.order) > s.cacheSize {
		delete(s.results, s.order[0])
		s.order = s.order[1:]
	}
}

// Percentile answers a nearest-rank percentile query.
func (s *Service) Percentile(ctx context.Context, id string, p float64, metric string) (int64, error) {
	res, m, err := s.resultMetric(ctx, id, metric)
	if err != nil {
		return 0, err
	}
	return res.Percentile(p, m)
}

// Probability answers P(X < c) or P(X > c); dir is "less" or "greater".
func (s *Service) Probability(ctx context.Context, id string, c float64, metric, dir string) (float64, error) {
	res, m, err := s.resultMetric(ctx, id, metric)
	if err != nil {
		return 0, err
	}
	switch dir {
	case "", "less":
		return res.ProbabilityLess(c, m)
	case "greater":
		return res.ProbabilityGreater(c, m)
	}
	return 0, fmt.Errorf("%w: direction must be less or greater, received %q", starforce.ErrInvalidArgument, dir)
}

// Histogram bins one metric of a result.
func (s *Service) Histogram(ctx context.Context, id, metric string, bins int) (starforce.Histogram, error) {
	res, m, err := s.resultMetric(ctx, id, metric)
	if err != nil {
		return starforce.Histogram{}, err
	}
	return res.Histogram(m, bins)
}

// Overview renders the percentile table of a result.
func (s *Service) Overview(ctx context.Context, id string) (string, error) {
	res, err := s.Result(ctx, id)
	if err != nil {
		return "", err
	}
	return res.Overview()
}

// Fit estimates a parametric model of one metric.
func (s *Service) Fit(ctx context.Context, id, metric, model string) (starforce.Fit, error) {
	res, m, err := s.resultMetric(ctx, id, metric)
	if err != nil {
		return starforce.Fit{}, err
	}
	f, err := starforce.FitterByName(model)
	if err != nil {
		return starforce.Fit{}, err
	}
	return res.Fit(m, f)
}

func (s *Service) resultMetric(ctx context.Context, id, metric string) (*starforce.ResultSet, starforce.Metric, error) {
	if metric == "" {
		metric = starforce.Costs.String()
	}
	m, err := starforce.ParseMetric(metric)
	if err != nil {
		return nil, 0, err
	}
	res, err := s.Result(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	return res, m, nil
}

// WatchRulesets drops cached rulesets whenever any ruleset file changes,
// including named rulesets other than the default.
// The returned function stops watching.
func (s *Service) WatchRulesets(interval time.Duration) (stop func()) {
	w := ruleset.NewFileWatcher(nil, interval, func(path string) {
		s.loader.Invalidate()
		s.log.Info("ruleset changed, cache invalidated", "path", path)
	})
	w.Patterns = s.loader.WatchPatterns()
	w.Start()
	return w.Stop
}

// summaryView is the JSON/Struct shape of a simulation result.
func summaryView(res *starforce.ResultSet) (map[string]any, error) {
	metrics := make(map[string]any, len(starforce.Metrics))
	for _, m := range starforce.Metrics {
		st, err := res.Summary(m)
		if err != nil {
			return nil, err
		}
		metrics[m.String()] = map[string]any{
			"mean":   st.Mean,
			"stddev": st.StdDev,
			"min":    st.Min,
			"max":    st.Max,
			"p50":    st.P50,
			"p90":    st.P90,
			"p99":    st.P99,
		}
	}
	return map[string]any{
		"id":         res.ID,
		"size":       res.Size(),
		"start":      res.Start,
		"end":        res.End,
		"item_level": res.ItemLevel,
		"ruleset":    res.Ruleset,
		"seed":       fmt.Sprint(res.Seed),
		"summary":    metrics,
	}, nil
}

func histogramView(h starforce.Histogram) map[string]any {
	edges := make([]any, len(h.Edges))
	for i, e := range h.Edges {
		edges[i] = e
	}
	counts := make([]any, len(h.Counts))
	for i, c := range h.Counts {
		counts[i] = c
	}
	return map[string]any{
		"metric": h.Metric.String(),
		"min":    h.Min,
		"max":    h.Max,
		"width":  h.Width,
		"edges":  edges,
		"counts": counts,
	}
}

func fitView(f starforce.Fit) map[string]any {
	params := make(map[string]any, len(f.Params))
	for k, v := range f.Params {
		params[k] = v
	}
	return map[string]any{"model": f.Model, "params": params}
}

// isNotFound reports an unknown result id from any layer.
func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
