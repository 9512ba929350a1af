package starforce

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultShardSize        = 4096
	DefaultProgressInterval = 100 * time.Millisecond
)

// ProgressFunc receives the number of finished trials out of total.
// It is called from a single goroutine, never from the trial loop.
type ProgressFunc func(done, total int)

// Runner executes batches of independent trials.
//
// Trials are cut into contiguous shards of ShardSize. Shard k always draws from
// stream k of Seed, in sequential and parallel mode alike, so both modes
// produce the same results for the same seed.
type Runner struct {
	Workers          int // parallel workers; <= 0 means GOMAXPROCS
	ShardSize        int // trials per shard; <= 0 means DefaultShardSize
	Seed             uint64
	ProgressInterval time.Duration // <= 0 means DefaultProgressInterval
}

func (r Runner) shardSize() int {
	if r.ShardSize <= 0 {
		return DefaultShardSize
	}
	return r.ShardSize
}

func (r Runner) interval() time.Duration {
	if r.ProgressInterval <= 0 {
		return DefaultProgressInterval
	}
	return r.ProgressInterval
}

// workers returns the pool size for shards shards.
func (r Runner) workers(shards int) int {
	w := r.Workers
	if w <= 0 {
		w = runtime.GOMAXPROCS(0)
	}
	if w > shards {
		w = shards
	}
	if w < 1 {
		w = 1
	}
	return w
}

// Run performs n trials from start to end. The result holds exactly n entries.
// A cancelled context stops new shards from starting; the run then returns
// ctx.Err() and no results.
func (r Runner) Run(ctx context.Context, t *Table, start, end, n int, parallel bool, onProgress ProgressFunc) ([]TrialResult, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: trials must be >= 1, received %d", ErrInvalidArgument, n)
	}
	if t == nil || start < 0 || end > t.Levels() || start >= end {
		return nil, fmt.Errorf("%w: walk %d -> %d does not fit the table", ErrInvalidArgument, start, end)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	out := make([]TrialResult, n)
	size := r.shardSize()
	shards := (n + size - 1) / size

	if !parallel || r.workers(shards) == 1 {
		if err := r.runSequential(ctx, t, start, end, out, shards, onProgress); err != nil {
			return nil, err
		}
	} else {
		if err := r.runParallel(ctx, t, start, end, out, shards, onProgress); err != nil {
			return nil, err
		}
	}
	if onProgress != nil {
		onProgress(n, n)
	}
	return out, nil
}

// shard returns the output range of shard k.
func (r Runner) shard(k, n int) (lo, hi int) {
	size := r.shardSize()
	lo = k * size
	hi = lo + size
	if hi > n {
		hi = n
	}
	return lo, hi
}

func (r Runner) runShard(t *Table, start, end int, out []TrialResult, rng *StreamRNG, k int) {
	rng.Reseed(r.Seed, uint64(k))
	for i := range out {
		out[i] = RunTrial(t, start, end, rng)
	}
}

func (r Runner) runSequential(ctx context.Context, t *Table, start, end int, out []TrialResult, shards int, onProgress ProgressFunc) error {
	n := len(out)
	rng := NewStreamRNG(r.Seed, 0)
	every := r.interval()
	last := time.Now()
	for k := 0; k < shards; k++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lo, hi := r.shard(k, n)
		r.runShard(t, start, end, out[lo:hi], rng, k)
		if onProgress != nil && hi < n && time.Since(last) >= every {
			onProgress(hi, n)
			last = time.Now()
		}
	}
	return nil
}

// runParallel lets a fixed pool claim shard indices from an atomic counter.
// Each worker owns one RNG and writes only its shard's disjoint range of out.
func (r Runner) runParallel(ctx context.Context, t *Table, start, end int, out []TrialResult, shards int, onProgress ProgressFunc) error {
	n := len(out)
	var next, done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < r.workers(shards); w++ {
		g.Go(func() error {
			rng := NewStreamRNG(r.Seed, 0)
			for {
				if err := gctx.Err(); err != nil {
					return err
				}
				k := int(next.Add(1) - 1)
				if k >= shards {
					return nil
				}
				lo, hi := r.shard(k, n)
				r.runShard(t, start, end, out[lo:hi], rng, k)
				done.Add(int64(hi - lo))
			}
		})
	}

	stop := make(chan struct{})
	var reporter sync.WaitGroup
	if onProgress != nil {
		reporter.Add(1)
		go func() {
			defer reporter.Done()
			ticker := time.NewTicker(r.interval())
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					onProgress(int(done.Load()), n)
				case <-stop:
					return
				}
			}
		}()
	}

	err := g.Wait()
	close(stop)
	reporter.Wait()
	return err
}
