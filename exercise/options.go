package exercise

import (
	"github.com/benz9527/rbindex/lib/infra"
	"github.com/benz9527/rbindex/lib/tree"
	"github.com/benz9527/rbindex/xlog"
)

type runnerCfg struct {
	policy     tree.RemovePolicy
	notFound   tree.NotFoundPolicy
	fixedKeys  []int64
	randomRuns int
	randomKeys int
	seed       uint64
	workers    int
	logger     xlog.XLogger
}

type Option func(*runnerCfg) error

func WithRemovePolicy(policy tree.RemovePolicy) Option {
	return func(cfg *runnerCfg) error {
		if policy != tree.BorrowPred && policy != tree.BorrowSucc {
			return infra.NewErrorStack("[exercise] unknown remove policy " + policy.String())
		}
		cfg.policy = policy
		return nil
	}
}

func WithNotFoundPolicy(policy tree.NotFoundPolicy) Option {
	return func(cfg *runnerCfg) error {
		if policy != tree.ReportNotFound && policy != tree.AbortOnNotFound {
			return infra.NewErrorStack("[exercise] unknown not found policy " + policy.String())
		}
		cfg.notFound = policy
		return nil
	}
}

// WithFixedKeys replaces the keys of the fixed scenario.
func WithFixedKeys(keys ...int64) Option {
	return func(cfg *runnerCfg) error {
		cfg.fixedKeys = keys
		return nil
	}
}

func WithRandomRuns(runs int) Option {
	return func(cfg *runnerCfg) error {
		if runs < 0 {
			return infra.NewErrorStack("[exercise] negative random runs")
		}
		cfg.randomRuns = runs
		return nil
	}
}

func WithRandomKeys(keys int) Option {
	return func(cfg *runnerCfg) error {
		if keys <= 0 {
			return infra.NewErrorStack("[exercise] random keys must be positive")
		}
		cfg.randomKeys = keys
		return nil
	}
}

func WithSeed(seed uint64) Option {
	return func(cfg *runnerCfg) error {
		cfg.seed = seed
		return nil
	}
}

func WithWorkers(workers int) Option {
	return func(cfg *runnerCfg) error {
		if workers <= 0 {
			return infra.NewErrorStack("[exercise] workers must be positive")
		}
		cfg.workers = workers
		return nil
	}
}

func WithLogger(logger xlog.XLogger) Option {
	return func(cfg *runnerCfg) error {
		cfg.logger = logger
		return nil
	}
}
