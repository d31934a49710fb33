package exercise

import (
	"sync"

	"go.uber.org/multierr"

	"github.com/benz9527/rbindex/lib/tree"
)

// StatsTotals sums the fixup statistics of every tree a runner has
// finished with. It satisfies observability.TreeStatsProvider.
type StatsTotals struct {
	lock  sync.RWMutex
	stats tree.RBStats
	size  int64
}

func (totals *StatsTotals) Len() int64 {
	totals.lock.RLock()
	defer totals.lock.RUnlock()
	return totals.size
}

func (totals *StatsTotals) Stats() tree.RBStats {
	totals.lock.RLock()
	defer totals.lock.RUnlock()
	return totals.stats
}

// collect merges the stats of rbtree and resets them so the
// next phase is not counted twice.
func (totals *StatsTotals) collect(rbtree tree.RBTree[int64], sizeDelta int64) {
	stats := rbtree.Stats()
	rbtree.ResetStats()

	totals.lock.Lock()
	defer totals.lock.Unlock()
	totals.size += sizeDelta
	totals.stats.InsertRecolors += stats.InsertRecolors
	totals.stats.InsertInnerRotations += stats.InsertInnerRotations
	totals.stats.InsertOuterRotations += stats.InsertOuterRotations
	totals.stats.RemoveSiblingRed += stats.RemoveSiblingRed
	totals.stats.RemoveRecolors += stats.RemoveRecolors
	totals.stats.RemoveNearNephew += stats.RemoveNearNephew
	totals.stats.RemoveFarNephew += stats.RemoveFarNephew
	totals.stats.Rotations += stats.Rotations
}

// failures is shared by the pool workers.
type failures struct {
	lock sync.Mutex
	err  error
}

func (f *failures) append(err error) {
	if err == nil {
		return
	}
	f.lock.Lock()
	defer f.lock.Unlock()
	f.err = multierr.Append(f.err, err)
}

func (f *failures) error() error {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.err
}
