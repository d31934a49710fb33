package exercise

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
	"github.com/samber/lo"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/benz9527/rbindex/lib/infra"
	"github.com/benz9527/rbindex/lib/tree"
	"github.com/benz9527/rbindex/xlog"
)

// FixedKeys is the manual driver sequence. Every key is inserted in
// order and then removed in the same order.
var FixedKeys = []int64{50, 30, 55, 60, 62, 53, 35, 37, 31, 25, 10, 20, 23, 15, 13, 99, 1092}

type Report struct {
	Runs  int64
	Steps int64
	Stats tree.RBStats
}

// Runner drives scenarios against fresh trees and validates every
// tree after every mutation. A tree is owned by exactly one scenario.
type Runner struct {
	cfg    *runnerCfg
	logger xlog.XLogger
	totals *StatsTotals
	runs   atomic.Int64
	steps  atomic.Int64
}

func NewRunner(opts ...Option) (*Runner, error) {
	cfg := &runnerCfg{
		policy:     tree.BorrowPred,
		notFound:   tree.ReportNotFound,
		fixedKeys:  slices.Clone(FixedKeys),
		randomKeys: 256,
		seed:       1,
		workers:    8,
	}
	for _, o := range opts {
		if o == nil {
			continue
		}
		if err := o(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.logger == nil {
		cfg.logger = xlog.NewXLogger()
	}
	return &Runner{
		cfg:    cfg,
		logger: cfg.logger,
		totals: &StatsTotals{},
	}, nil
}

func (r *Runner) Totals() *StatsTotals {
	return r.totals
}

func (r *Runner) Report() Report {
	return Report{
		Runs:  r.runs.Load(),
		Steps: r.steps.Load(),
		Stats: r.totals.Stats(),
	}
}

func (r *Runner) newTree() tree.RBTree[int64] {
	opts := []tree.RBTreeOpt[int64]{
		tree.WithRBTreeNotFoundPolicy[int64](r.cfg.notFound),
	}
	if r.cfg.policy == tree.BorrowSucc {
		opts = append(opts, tree.WithRBTreeRemoveBorrowSucc[int64]())
	}
	return tree.NewRBTree[int64](opts...)
}

// verify validates rbtree after a single mutation.
func (r *Runner) verify(rbtree tree.RBTree[int64], scenario, op string, key int64) (int, error) {
	r.steps.Add(1)
	bh := tree.Check[int64](rbtree)
	err := tree.ValidateAll[int64](rbtree)
	if err == nil && bh == tree.InvalidBlackHeight {
		err = infra.NewErrorStack("[exercise] invalid black height")
	}
	if err != nil {
		err = infra.WrapErrorStackWithMessage(err, fmt.Sprintf("[exercise] %s %s %d", scenario, op, key))
		r.logger.ErrorStack(err, "[exercise] validation failed",
			zap.String("scenario", scenario),
			zap.String("preorder", tree.PreorderString[int64](rbtree)),
		)
	}
	return bh, err
}

// RunFixed replays FixedKeys, logging the preorder dump after each step.
// An absent key panics under AbortOnNotFound.
func (r *Runner) RunFixed(ctx context.Context) error {
	const scenario = "fixed"
	rbtree := r.newTree()
	defer rbtree.Release()

	var merr error
	step := func(op string, key int64) {
		bh, err := r.verify(rbtree, scenario, op, key)
		merr = multierr.Append(merr, err)
		r.logger.Info("[exercise] "+op,
			zap.Int64("key", key),
			zap.Bool("valid", err == nil),
			zap.Int("blackHeight", bh),
			zap.String("preorder", tree.PreorderString[int64](rbtree)),
		)
	}

	for _, key := range r.cfg.fixedKeys {
		if err := ctx.Err(); err != nil {
			return multierr.Append(merr, err)
		}
		if !rbtree.Insert(key) {
			r.logger.Warn("[exercise] duplicate key ignored", zap.Int64("key", key))
		}
		step("insert", key)
	}
	size := rbtree.Len()
	r.totals.collect(rbtree, size)

	for _, key := range r.cfg.fixedKeys {
		if err := ctx.Err(); err != nil {
			r.totals.collect(rbtree, -size)
			return multierr.Append(merr, err)
		}
		if err := rbtree.Remove(key); err != nil {
			r.logger.Warn("[exercise] "+err.Error(), zap.Int64("key", key))
		}
		step("remove", key)
	}
	r.totals.collect(rbtree, -size)
	r.runs.Add(1)
	return merr
}

// RunRandom executes the seeded randomized scenarios on a worker pool.
// Run i uses the PCG stream (seed, i), so results are reproducible
// regardless of scheduling.
func (r *Runner) RunRandom(ctx context.Context) error {
	if r.cfg.randomRuns <= 0 {
		return nil
	}
	pool, err := ants.NewPool(r.cfg.workers, ants.WithLogger(xlog.NewAntsXLogger(r.logger)))
	if err != nil {
		return infra.WrapErrorStackWithMessage(err, "[exercise] worker pool")
	}
	defer pool.Release()

	fails := &failures{}
	wg := sync.WaitGroup{}
	for run := 0; run < r.cfg.randomRuns; run++ {
		if err := ctx.Err(); err != nil {
			fails.append(err)
			break
		}
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			fails.append(r.safeRandomRun(run))
		}); err != nil {
			wg.Done()
			fails.append(infra.WrapErrorStackWithMessage(err, "[exercise] submit run "+strconv.Itoa(run)))
		}
	}
	wg.Wait()
	return fails.error()
}

func (r *Runner) safeRandomRun(run int) (err error) {
	defer func() {
		if p := recover(); p != nil {
			if perr, ok := p.(error); ok {
				err = infra.WrapErrorStackWithMessage(perr, "[exercise] random run "+strconv.Itoa(run)+" panic")
			} else {
				err = infra.NewErrorStack(fmt.Sprintf("[exercise] random run %d panic: %v", run, p))
			}
			r.logger.ErrorStack(err, "[exercise] random run aborted")
		}
	}()
	return r.randomRun(run)
}

func (r *Runner) randomRun(run int) error {
	scenario := "random-" + strconv.Itoa(run)
	rng := rand.New(rand.NewPCG(r.cfg.seed, uint64(run)))
	n := int64(r.cfg.randomKeys)
	keys := make([]int64, n)
	for i := range keys {
		// Half-open range [-n, 3n) yields duplicates and negative keys.
		keys[i] = rng.Int64N(4*n) - n
	}
	uniq := lo.Uniq(keys)

	rbtree := r.newTree()
	defer rbtree.Release()

	var merr error
	for _, key := range keys {
		rbtree.Insert(key)
		_, err := r.verify(rbtree, scenario, "insert", key)
		merr = multierr.Append(merr, err)
	}
	if rbtree.Len() != int64(len(uniq)) {
		merr = multierr.Append(merr, infra.NewErrorStack(
			fmt.Sprintf("[exercise] %s size %d, expected %d", scenario, rbtree.Len(), len(uniq))))
	}
	sorted := slices.Clone(uniq)
	slices.Sort(sorted)
	if !slices.Equal(sorted, tree.Keys[int64](rbtree)) {
		merr = multierr.Append(merr, infra.NewErrorStack("[exercise] "+scenario+" inorder keys mismatch"))
	}
	size := rbtree.Len()
	r.totals.collect(rbtree, size)

	rng.Shuffle(len(uniq), func(i, j int) {
		uniq[i], uniq[j] = uniq[j], uniq[i]
	})
	for i, key := range uniq {
		policy := tree.RemovePolicy(rng.IntN(2))
		if err := rbtree.RemoveWithPolicy(key, policy); err != nil {
			merr = multierr.Append(merr, err)
		}
		_, err := r.verify(rbtree, scenario, "remove", key)
		merr = multierr.Append(merr, err)

		if r.cfg.notFound == tree.ReportNotFound && i%16 == 0 {
			before := rbtree.Len()
			if err := rbtree.Remove(key); !errors.Is(err, tree.ErrKeyNotFound) || rbtree.Len() != before {
				merr = multierr.Append(merr, infra.NewErrorStack(
					fmt.Sprintf("[exercise] %s absent key %d changed the tree", scenario, key)))
			}
		}
	}
	if rbtree.Len() != 0 {
		merr = multierr.Append(merr, infra.NewErrorStack(
			fmt.Sprintf("[exercise] %s %d keys left", scenario, rbtree.Len())))
	}
	stats := rbtree.Stats()
	r.totals.collect(rbtree, -size)
	r.runs.Add(1)

	r.logger.Debug("[exercise] random run finished",
		zap.Int("run", run),
		zap.Int64("keys", size),
		zap.Int64("removeFixups", stats.RemoveFixups()),
		zap.Bool("valid", merr == nil),
	)
	return merr
}

// Run executes the fixed scenario followed by the randomized ones.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	err := multierr.Combine(r.RunFixed(ctx), r.RunRandom(ctx))
	report := r.Report()
	fields := []zap.Field{
		zap.Int64("runs", report.Runs),
		zap.Int64("steps", report.Steps),
		zap.Int64("insertFixups", report.Stats.InsertFixups()),
		zap.Int64("removeFixups", report.Stats.RemoveFixups()),
		zap.Int64("rotations", report.Stats.Rotations),
	}
	if err != nil {
		r.logger.Error(err, "[exercise] failed",
			append(fields, zap.Int("failures", len(multierr.Errors(err))))...)
		return report, err
	}
	r.logger.Info("[exercise] passed", fields...)
	return report, nil
}
