package observability

import (
	"context"
	"runtime"
	"strings"
	"sync"

	"github.com/samber/lo"
	otelruntime "go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/benz9527/rbindex/lib/tree"
)

var (
	once sync.Once
)

type appStats struct {
	ctx              context.Context
	shutdownCallback func(ctx context.Context) error
	goroutines       metric.Int64ObservableUpDownCounter
	processes        metric.Int64ObservableUpDownCounter
}

func (stats *appStats) waitForShutdown() {
	if stats == nil || stats.shutdownCallback == nil {
		return
	}
	go func() {
		<-stats.ctx.Done()
		_ = stats.shutdownCallback(context.Background())
	}()
}

func appMeterName(name string) string {
	builder := &strings.Builder{}
	builder.WriteString("rbindex/app/")
	if len(strings.TrimSpace(name)) > 0 {
		builder.WriteString(name)
	} else {
		builder.WriteString("default")
	}
	return builder.String()
}

// InitAppStats registers the process level instruments on the global
// meter provider. Only the first call takes effect. shutdown, if not nil,
// runs once ctx is done.
func InitAppStats(ctx context.Context, name string, shutdown func(ctx context.Context) error) {
	once.Do(func() {
		meter := otel.Meter(
			appMeterName(name),
			metric.WithInstrumentationVersion(otelruntime.Version()),
		)
		stats := &appStats{
			ctx:              ctx,
			shutdownCallback: shutdown,
			goroutines: lo.Must[metric.Int64ObservableUpDownCounter](meter.Int64ObservableUpDownCounter(
				"app.core.goroutines",
				metric.WithDescription(`The application goroutines' info.`),
				metric.WithInt64Callback(func(ctx context.Context, ob metric.Int64Observer) error {
					ob.Observe(int64(runtime.NumGoroutine()))
					return nil
				}),
			)),
			processes: lo.Must[metric.Int64ObservableUpDownCounter](meter.Int64ObservableUpDownCounter(
				"app.core.processes",
				metric.WithDescription(`The application processes' info.`),
				metric.WithInt64Callback(func(ctx context.Context, ob metric.Int64Observer) error {
					ob.Observe(int64(runtime.GOMAXPROCS(0)))
					return nil
				}),
			)),
		}
		_ = otelruntime.Start()
		stats.waitForShutdown()
	})
}

// TreeStatsProvider is satisfied by tree.RBTree and by aggregators of
// many trees.
type TreeStatsProvider interface {
	Len() int64
	Stats() tree.RBStats
}

const (
	FixupCaseKey = attribute.Key("case")

	TreeFixupsMetric    = "rbtree.fixups"
	TreeRotationsMetric = "rbtree.rotations"
	TreeSizeMetric      = "rbtree.size"
)

type fixupCase struct {
	name string
	get  func(stats tree.RBStats) int64
}

var fixupCases = []fixupCase{
	{"insert_recolor", func(stats tree.RBStats) int64 { return stats.InsertRecolors }},
	{"insert_inner_rotation", func(stats tree.RBStats) int64 { return stats.InsertInnerRotations }},
	{"insert_outer_rotation", func(stats tree.RBStats) int64 { return stats.InsertOuterRotations }},
	{"remove_sibling_red", func(stats tree.RBStats) int64 { return stats.RemoveSiblingRed }},
	{"remove_recolor", func(stats tree.RBStats) int64 { return stats.RemoveRecolors }},
	{"remove_near_nephew", func(stats tree.RBStats) int64 { return stats.RemoveNearNephew }},
	{"remove_far_nephew", func(stats tree.RBStats) int64 { return stats.RemoveFarNephew }},
}

// RegisterTreeStats exposes the provider's fixup counters, rotations and
// size as observable instruments on meter. Unregister the returned
// registration when the provider goes away.
func RegisterTreeStats(meter metric.Meter, provider TreeStatsProvider, attrs ...attribute.KeyValue) (metric.Registration, error) {
	fixups, err := meter.Int64ObservableCounter(
		TreeFixupsMetric,
		metric.WithDescription("Rebalance cases hit by insert and remove."),
	)
	if err != nil {
		return nil, err
	}
	rotations, err := meter.Int64ObservableCounter(
		TreeRotationsMetric,
		metric.WithDescription("Single rotations performed by rebalancing."),
	)
	if err != nil {
		return nil, err
	}
	size, err := meter.Int64ObservableUpDownCounter(
		TreeSizeMetric,
		metric.WithDescription("Keys currently held."),
	)
	if err != nil {
		return nil, err
	}
	caseAttrs := lo.Map(fixupCases, func(c fixupCase, _ int) metric.MeasurementOption {
		return metric.WithAttributes(append([]attribute.KeyValue{FixupCaseKey.String(c.name)}, attrs...)...)
	})
	common := metric.WithAttributes(attrs...)
	return meter.RegisterCallback(func(_ context.Context, ob metric.Observer) error {
		stats := provider.Stats()
		for i, c := range fixupCases {
			ob.ObserveInt64(fixups, c.get(stats), caseAttrs[i])
		}
		ob.ObserveInt64(rotations, stats.Rotations, common)
		ob.ObserveInt64(size, provider.Len(), common)
		return nil
	}, fixups, rotations, size)
}
