package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	_ "go.uber.org/automaxprocs"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/benz9527/rbindex/exercise"
	"github.com/benz9527/rbindex/lib/infra"
	"github.com/benz9527/rbindex/lib/tree"
	"github.com/benz9527/rbindex/observability"
	"github.com/benz9527/rbindex/xlog"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

type banner struct{}

func (banner) JSON() string {
	return `{"app":"rbexercise"}`
}

func (banner) PlainText() string {
	return `
 ____  ____  _____                     _
|  _ \| __ )| ____|_  _____ _ __ ___(_)___  ___
| |_) |  _ \|  _| \ \/ / _ \ '__/ __| / __|/ _ \
|  _ <| |_) | |___ >  <  __/ | | (__| \__ \  __/
|_| \_\____/|_____/_/\_\___|_|  \___|_|___/\___|
`
}

// cliOptions is the parsed command line.
type cliOptions struct {
	policy      tree.RemovePolicy
	notFound    tree.NotFoundPolicy
	randomRuns  int
	randomKeys  int
	seed        uint64
	workers     int
	metrics     observability.MetricsExporterType
	metricsAddr string
	linger      time.Duration
	profile     observability.ProfileType
	profileOut  string
	logLevel    xlog.LogLevel
	logEncoder  xlog.LogEncoderType
}

func parseFlags(args []string) (*cliOptions, error) {
	fs := pflag.NewFlagSet("rbexercise", pflag.ContinueOnError)
	var (
		policy     = fs.String("policy", "pred", "replacement for removed nodes with two children: pred|succ")
		notFound   = fs.String("not-found", "report", "absent key on remove: report|abort")
		metrics    = fs.String("metrics", "none", "metrics exporter: none|stdout|prometheus")
		profile    = fs.String("profile", "none", "profile the run: none|cpu|mem")
		logLevel   = fs.String("log-level", "", "DEBUG|INFO|WARN|ERROR, defaults to $XLOG_LVL")
		logEncoder = fs.String("log-encoder", "json", "json|text")
	)
	opts := &cliOptions{}
	fs.IntVar(&opts.randomRuns, "random-runs", 0, "number of seeded randomized scenarios")
	fs.IntVar(&opts.randomKeys, "random-keys", 256, "keys per randomized scenario")
	fs.Uint64Var(&opts.seed, "seed", 1, "base seed of the randomized scenarios")
	fs.IntVar(&opts.workers, "workers", 8, "worker pool size")
	fs.StringVar(&opts.metricsAddr, "metrics-addr", ":9464", "prometheus scrape endpoint address")
	fs.DurationVar(&opts.linger, "linger", 0, "keep the scrape endpoint up after the run")
	fs.StringVar(&opts.profileOut, "profile-out", "rbexercise.pprof", "profile output file")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	switch *policy {
	case "pred":
		opts.policy = tree.BorrowPred
	case "succ":
		opts.policy = tree.BorrowSucc
	default:
		return nil, infra.NewErrorStack("[rbexercise] unknown policy " + *policy)
	}
	switch *notFound {
	case "report":
		opts.notFound = tree.ReportNotFound
	case "abort":
		opts.notFound = tree.AbortOnNotFound
	default:
		return nil, infra.NewErrorStack("[rbexercise] unknown not-found policy " + *notFound)
	}
	var err error
	if opts.metrics, err = observability.ParseMetricsExporter(*metrics); err != nil {
		return nil, err
	}
	if opts.profile, err = observability.ParseProfileType(*profile); err != nil {
		return nil, err
	}
	opts.logLevel = xlog.ParseLogLevel(*logLevel)
	opts.logEncoder = xlog.ParseLogEncoder(*logEncoder)
	return opts, nil
}

func newLogger(opts *cliOptions) xlog.XLogger {
	logger := xlog.NewXLogger(
		xlog.WithXLoggerLevel(opts.logLevel),
		xlog.WithXLoggerEncoder(opts.logEncoder),
		xlog.WithXLoggerStdOutWriter(),
	)
	logger.Banner(banner{})
	return logger
}

func newRunner(opts *cliOptions, logger xlog.XLogger) (*exercise.Runner, error) {
	return exercise.NewRunner(
		exercise.WithRemovePolicy(opts.policy),
		exercise.WithNotFoundPolicy(opts.notFound),
		exercise.WithRandomRuns(opts.randomRuns),
		exercise.WithRandomKeys(opts.randomKeys),
		exercise.WithSeed(opts.seed),
		exercise.WithWorkers(opts.workers),
		exercise.WithLogger(logger),
	)
}

type metricsShutdown func(ctx context.Context) error

// newMetricsExporter installs the global meter provider selected by opts.
// The handler is nil unless the exporter is scraped.
var newMetricsExporter = func(opts *cliOptions) (metricsShutdown, http.Handler, error) {
	switch opts.metrics {
	case observability.ConsoleExporter:
		shutdown, err := observability.NewConsoleMetricsExporter(10*time.Second, 5*time.Second)
		return shutdown, nil, err
	case observability.PrometheusExporter:
		return observability.NewPrometheusMetricsExporter(promclient.NewRegistry())
	default:
	}
	return nil, nil, infra.NewErrorStack("[rbexercise] unknown metrics exporter " + opts.metrics.String())
}

var treeStatsMeter = func() metric.Meter {
	return otel.Meter("rbindex/exercise")
}

func registerMetrics(lc fx.Lifecycle, opts *cliOptions, logger xlog.XLogger, runner *exercise.Runner) error {
	if opts.metrics == observability.NoneExporter {
		return nil
	}
	shutdown, handler, err := newMetricsExporter(opts)
	if err != nil {
		return err
	}

	appCtx, cancel := context.WithCancel(context.Background())
	observability.InitAppStats(appCtx, "rbexercise", nil)
	reg, err := observability.RegisterTreeStats(treeStatsMeter(), runner.Totals())
	if err != nil {
		cancel()
		return multierr.Append(err, shutdown(context.Background()))
	}

	var srv *http.Server
	if handler != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", handler)
		srv = &http.Server{Addr: opts.metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if srv == nil {
				return nil
			}
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return infra.WrapErrorStackWithMessage(err, "[rbexercise] metrics listen")
			}
			logger.Info("[rbexercise] serving metrics", zap.String("addr", ln.Addr().String()))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error(err, "[rbexercise] metrics server")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			defer cancel()
			var err error
			if srv != nil {
				err = srv.Shutdown(ctx)
			}
			return multierr.Combine(err, reg.Unregister(), shutdown(ctx))
		},
	})
	return nil
}

// exitCode carries the run result out of the fx graph.
type exitCode struct {
	code int
}

func runExercise(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	opts *cliOptions,
	logger xlog.XLogger,
	runner *exercise.Runner,
	result *exitCode,
) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			var out *os.File
			stopProfile := func() error { return nil }
			if opts.profile != observability.NoProfile {
				var err error
				if out, err = os.Create(opts.profileOut); err != nil {
					return infra.WrapErrorStackWithMessage(err, "[rbexercise] profile output")
				}
				if stopProfile, err = observability.StartProfile(opts.profile, out); err != nil {
					_ = out.Close()
					return err
				}
			}
			go func() {
				defer close(done)
				_, err := runner.Run(ctx)
				if perr := stopProfile(); perr != nil {
					logger.ErrorStack(perr, "[rbexercise] profile")
				}
				if out != nil {
					_ = out.Close()
				}
				result.code = exitOK
				if err != nil {
					result.code = exitFailure
				}
				if opts.metrics == observability.PrometheusExporter && opts.linger > 0 {
					logger.Info("[rbexercise] lingering", zap.Duration("linger", opts.linger))
					select {
					case <-ctx.Done():
					case <-time.After(opts.linger):
					}
				}
				_ = shutdowner.Shutdown(fx.ExitCode(result.code))
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return logger.Sync()
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}

// run wires the app and returns the process exit code.
func run(args []string) int {
	opts, err := parseFlags(args)
	if errors.Is(err, pflag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}

	result := &exitCode{code: exitFailure}
	app := fx.New(
		fx.Supply(opts, result),
		fx.Provide(newLogger, newRunner),
		fx.WithLogger(func(logger xlog.XLogger) fxevent.Logger {
			return xlog.NewFxXLogger(logger)
		}),
		fx.Invoke(registerMetrics, runExercise),
	)
	if err = app.Err(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		return exitFailure
	}

	startCtx, cancel := context.WithTimeout(context.Background(), fx.DefaultTimeout)
	defer cancel()
	if err = app.Start(startCtx); err != nil {
		return exitFailure
	}
	sig := <-app.Wait()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), fx.DefaultTimeout)
	defer stopCancel()
	if err = app.Stop(stopCtx); err != nil {
		return exitFailure
	}
	if sig.ExitCode != exitOK {
		return sig.ExitCode
	}
	return result.code
}

func main() {
	os.Exit(run(os.Args[1:]))
}
