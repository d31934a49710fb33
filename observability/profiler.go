package observability

// References:
// https://github.com/DataDog/dd-trace-go/blob/main/profiler/profiler.go#L118

import (
	"io"
	"runtime"
	"runtime/pprof"
	"strings"

	"github.com/benz9527/rbindex/lib/infra"
)

type ProfileType int8

const (
	NoProfile ProfileType = iota - 1
	CPUProfile
	MemProfile
)

func ParseProfileType(typ string) (ProfileType, error) {
	switch strings.ToLower(strings.TrimSpace(typ)) {
	case "", "none":
		return NoProfile, nil
	case "cpu":
		return CPUProfile, nil
	case "mem", "heap":
		return MemProfile, nil
	default:
	}
	return NoProfile, infra.NewErrorStack("[observability] unknown profile type " + typ)
}

// StartProfile begins a profile written to w. The CPU profile is sampled
// until stop, the heap profile is taken when stop is called.
func StartProfile(typ ProfileType, w io.Writer) (stop func() error, err error) {
	switch typ {
	case NoProfile:
		return func() error { return nil }, nil
	case CPUProfile:
		if err = pprof.StartCPUProfile(w); err != nil {
			return nil, infra.WrapErrorStackWithMessage(err, "[observability] start cpu profile")
		}
		return func() error {
			pprof.StopCPUProfile()
			return nil
		}, nil
	case MemProfile:
		return func() error {
			runtime.GC()
			return infra.WrapErrorStack(pprof.WriteHeapProfile(w))
		}, nil
	default:
	}
	return nil, infra.NewErrorStack("[observability] unknown profile type")
}
