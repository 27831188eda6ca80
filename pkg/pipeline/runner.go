package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/structmine/structmine/pkg/cache"
	"github.com/structmine/structmine/pkg/decomp"
	"github.com/structmine/structmine/pkg/detect"
	"github.com/structmine/structmine/pkg/errors"
	"github.com/structmine/structmine/pkg/mip"
	"github.com/structmine/structmine/pkg/observability"
	"github.com/structmine/structmine/pkg/score"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API can use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Runs execute strictly sequentially; callers on
// concurrent paths serialize Execute themselves.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete parse → detect → score pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	r.applyLogger(&opts)
	hooks := observability.Pipeline()

	result := &Result{}

	// Stage 1: Parse
	parseStart := time.Now()
	hooks.OnParseStart(ctx, opts.source())
	model, hash, err := r.Parse(ctx, opts)
	result.Stats.ParseTime = time.Since(parseStart)
	nc, nv := 0, 0
	if model != nil {
		nc, nv = model.NConss(), model.NVars()
	}
	hooks.OnParseComplete(ctx, opts.source(), nc, nv, result.Stats.ParseTime, err)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	result.Model = model
	result.ModelHash = hash

	m, err := decomp.Build(model)
	if err != nil {
		return nil, fmt.Errorf("build incidence matrix: %w", err)
	}
	result.Matrix = m
	result.Stats.NConss = m.NConss()
	result.Stats.NVars = m.NVars()
	result.Stats.NNonzeros = m.NNonzeros()

	if opts.UseConssAdjacency {
		m.BuildConssAdjacency(opts.AdjacencyThreshold)
	}
	for _, n := range opts.BlockCandidates {
		m.AddCandidateNBlocks(n, decomp.UserVotes)
	}
	if cands := m.BlockCandidates(); len(cands) > 0 {
		r.Logger.Debug("block-count candidates", "candidates", cands)
	}

	r.Logger.Info("parsed model",
		"conss", m.NConss(),
		"vars", m.NVars(),
		"nonzeros", m.NNonzeros(),
		"duration", result.Stats.ParseTime)

	// Stage 2: Detect
	detectStart := time.Now()
	hooks.OnDetectStart(ctx, opts.Registry.Len(), opts.MaxRounds)
	hit, err := r.detectWithCache(ctx, m, hash, opts, result)
	result.Stats.DetectTime = time.Since(detectStart)
	hooks.OnDetectComplete(ctx, len(m.FinishedDecomps()), result.Stats.DetectTime, err)
	if err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}
	result.CacheInfo.DetectionHit = hit

	finished := m.FinishedDecomps()
	r.Logger.Info("detection finished",
		"decomps", len(finished),
		"cached", hit,
		"duration", result.Stats.DetectTime)

	// Stage 3: Score
	scoreStart := time.Now()
	s, err := score.ByName(opts.Score)
	if err != nil {
		return nil, err
	}
	hooks.OnScoreStart(ctx, opts.Score, len(finished))
	ranked, err := score.Rank(s, finished)
	result.Stats.ScoreTime = time.Since(scoreStart)
	best := 0.0
	if len(ranked) > 0 {
		best = ranked[0].Value
	}
	hooks.OnScoreComplete(ctx, opts.Score, best, result.Stats.ScoreTime, err)
	if err != nil {
		return nil, fmt.Errorf("score: %w", err)
	}
	result.Decomps = ranked
	if len(ranked) > 0 {
		result.Best = ranked[0].Decomp
		result.BestValue = ranked[0].Value
	}

	r.Logger.Info("ranked decompositions",
		"score", opts.Score,
		"best", best,
		"duration", result.Stats.ScoreTime)

	return result, nil
}

// Parse reads the model from opts and returns it with its content hash.
func (r *Runner) Parse(_ context.Context, opts Options) (*mip.Model, string, error) {
	raw := opts.Source
	name := opts.Name
	if len(raw) == 0 {
		data, err := os.ReadFile(opts.Path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, "", errors.Wrap(errors.ErrCodeFileNotFound, err, "model file %s", opts.Path)
			}
			return nil, "", err
		}
		raw = data
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(opts.Path), filepath.Ext(opts.Path))
		}
	}
	if name == "" {
		name = "model"
	}
	model, err := mip.ReadMPS(bytes.NewReader(raw), name)
	if err != nil {
		return nil, "", err
	}
	return model, cache.Hash(raw), nil
}

// detectWithCache fills m's finished pool, from the cache when possible.
// Reports whether the result came from cache.
func (r *Runner) detectWithCache(ctx context.Context, m *decomp.Matrix, modelHash string, opts Options, result *Result) (bool, error) {
	cacheHooks := observability.Cache()
	key := r.Keyer.DetectionKey(modelHash, opts.DetectionKeyOpts())

	if !opts.Refresh {
		var data []byte
		var hit bool
		err := cache.RetryWithBackoff(ctx, func() error {
			var err error
			data, hit, err = r.Cache.Get(ctx, key)
			return err
		})
		if err == nil && hit {
			if err := unmarshalFinished(m, data); err == nil {
				cacheHooks.OnCacheHit(ctx, "detect")
				return true, nil
			}
			// Corrupt entry: drop it and recompute.
			_ = r.Cache.Delete(ctx, key)
		}
		cacheHooks.OnCacheMiss(ctx, "detect")
	}

	pl, err := detect.NewPipeline(m, opts.Registry, detect.Options{
		MaxRounds: opts.MaxRounds,
		Logger:    opts.Logger,
	})
	if err != nil {
		return false, err
	}
	stats, err := pl.Run(ctx)
	result.Stats.Detect = stats
	if err != nil {
		return false, err
	}

	if data, err := marshalFinished(m.FinishedDecomps()); err == nil {
		err := cache.RetryWithBackoff(ctx, func() error {
			return r.Cache.Set(ctx, key, data, cache.TTLDetection)
		})
		if err == nil {
			cacheHooks.OnCacheSet(ctx, "detect", len(data))
		}
	}
	return false, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// source names the model input for logs and hooks.
func (o *Options) source() string {
	if o.Path != "" {
		return o.Path
	}
	if o.Name != "" {
		return o.Name
	}
	return "inline"
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
