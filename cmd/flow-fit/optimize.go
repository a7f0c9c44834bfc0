package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cwbudde/mayfly"
	"golang.org/x/sync/errgroup"
)

type optimizationConfig struct {
	objective   func(vals []float64) (float64, error)
	dims        int
	initial     []float64
	seed        int64
	timeBudget  time.Duration
	maxEvals    int
	variant     string
	pop         int
	roundEvals  int
	workers     int
	reportEvery int
}

type optimizationResult struct {
	best      []float64
	bestScore float64
	evals     int
	elapsed   time.Duration
}

type optimizationState struct {
	mu    sync.Mutex
	best  []float64
	score float64
}

func (s *optimizationState) offer(vals []float64, score float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if score >= s.score {
		return false
	}
	s.best = append(s.best[:0], vals...)
	s.score = score
	return true
}

func (s *optimizationState) current() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.score
}

// runOptimization runs independent mayfly rounds on cfg.workers goroutines
// until the evaluation or time budget is spent. Each round starts from a
// fresh population; the best point across all rounds wins.
func runOptimization(ctx context.Context, cfg *optimizationConfig) (*optimizationResult, error) {
	start := time.Now()
	variant := strings.ToLower(cfg.variant)
	if _, err := newMayflyConfig(variant, cfg.pop, cfg.dims, 1); err != nil {
		return nil, err
	}

	initScore, err := cfg.objective(cfg.initial)
	if err != nil {
		return nil, fmt.Errorf("initial evaluation failed: %w", err)
	}
	fmt.Printf("Start distance=%.3f dB\n", initScore)

	state := &optimizationState{
		best:  append([]float64(nil), cfg.initial...),
		score: initScore,
	}
	var evals int64 = 1
	var rounds int64

	ctx, cancel := context.WithTimeout(ctx, cfg.timeBudget)
	defer cancel()

	workers := cfg.workers
	if workers < 1 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for gctx.Err() == nil {
				remaining := cfg.maxEvals - int(atomic.LoadInt64(&evals))
				if remaining <= 0 {
					return nil
				}
				round := atomic.AddInt64(&rounds, 1)
				budget := remaining
				if cfg.roundEvals < budget {
					budget = cfg.roundEvals
				}
				iters := budget / (2 * cfg.pop)
				if iters < 1 {
					iters = 1
				}

				mcfg, err := newMayflyConfig(variant, cfg.pop, cfg.dims, iters)
				if err != nil {
					return err
				}
				mcfg.Rand = rand.New(rand.NewSource(cfg.seed + round*7919))
				mcfg.ObjectiveFunc = func(pos []float64) float64 {
					if gctx.Err() != nil {
						return state.current() + 1
					}
					n, ok := reserveEval(&evals, cfg.maxEvals)
					if !ok {
						return state.current() + 1
					}
					score, err := cfg.objective(pos)
					if err != nil || math.IsNaN(score) {
						return state.current() + 1
					}
					if state.offer(pos, score) {
						fmt.Printf("Improved eval=%d distance=%.3f dB\n", n, score)
					}
					if cfg.reportEvery > 0 && n%int64(cfg.reportEvery) == 0 {
						fmt.Printf("Progress round=%d eval=%d elapsed=%.1fs best=%.3f dB\n", round, n, time.Since(start).Seconds(), state.current())
					}
					return score
				}

				if _, err := runMayfly(mcfg); err != nil {
					return fmt.Errorf("mayfly round %d: %w", round, err)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	return &optimizationResult{
		best:      append([]float64(nil), state.best...),
		bestScore: state.score,
		evals:     int(atomic.LoadInt64(&evals)),
		elapsed:   time.Since(start),
	}, nil
}

func reserveEval(evals *int64, maxEvals int) (int64, bool) {
	for {
		cur := atomic.LoadInt64(evals)
		if cur >= int64(maxEvals) {
			return 0, false
		}
		if atomic.CompareAndSwapInt64(evals, cur, cur+1) {
			return cur + 1, true
		}
	}
}

func newMayflyConfig(variant string, pop int, dims int, iters int) (*mayfly.Config, error) {
	var cfg *mayfly.Config
	switch variant {
	case "ma":
		cfg = mayfly.NewDefaultConfig()
	case "desma":
		cfg = mayfly.NewDESMAConfig()
	case "olce":
		cfg = mayfly.NewOLCEConfig()
	case "eobbma":
		cfg = mayfly.NewEOBBMAConfig()
	case "gsasma":
		cfg = mayfly.NewGSASMAConfig()
	case "mpma":
		cfg = mayfly.NewMPMAConfig()
	case "aoblmoa":
		cfg = mayfly.NewAOBLMOAConfig()
	default:
		return nil, fmt.Errorf("unsupported variant %q", variant)
	}
	if pop < 2 {
		pop = 2
	}
	cfg.ProblemSize = dims
	cfg.LowerBound = 0.0
	cfg.UpperBound = 1.0
	cfg.MaxIterations = iters
	cfg.NPop = pop
	cfg.NPopF = pop
	// NC/2 parent pairs are drawn from both populations.
	cfg.NC = 2 * pop
	cfg.NM = int(math.Max(1, math.Round(0.05*float64(pop))))
	return cfg, nil
}

func runMayfly(cfg *mayfly.Config) (_ *mayfly.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mayfly panic: %v", r)
		}
	}()
	return mayfly.Optimize(cfg)
}
