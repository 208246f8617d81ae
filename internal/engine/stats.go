package engine

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// Stats is a performance report of one export.
type Stats struct {
	Elapsed      time.Duration
	Frames       int
	FPS          float64
	CPUPercent   float64
	RSS          uint64
	HostUsed     float64
	GoHeap       uint64
	NumGoroutine int
}

func (s *Stats) String() string {
	return fmt.Sprintf(
		"--- [PERFORMANCE REPORT] ---\n"+
			"Total Time: %.2fs\n"+
			"Frames: %d\n"+
			"Effective FPS: %.2f\n"+
			"CPU: %.1f%%\n"+
			"RSS: %.1f MiB\n"+
			"Go heap: %.1f MiB\n"+
			"Host memory used: %.1f%%\n"+
			"----------------------------\n",
		s.Elapsed.Seconds(), s.Frames, s.FPS, s.CPUPercent,
		float64(s.RSS)/(1<<20), float64(s.GoHeap)/(1<<20), s.HostUsed,
	)
}

type sampler struct {
	proc *process.Process
}

func newSampler() *sampler {
	s := &sampler{}
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		s.proc = p
		// Prime the CPU counter so finish reports usage over the export.
		_, _ = p.Percent(0)
	}
	return s
}

// finish collects the report. Failed probes leave their fields zero.
func (s *sampler) finish(frames int, elapsed time.Duration) *Stats {
	st := &Stats{Elapsed: elapsed, Frames: frames, NumGoroutine: runtime.NumGoroutine()}
	if elapsed > 0 {
		st.FPS = float64(frames) / elapsed.Seconds()
	}
	if s.proc != nil {
		if pct, err := s.proc.Percent(0); err == nil {
			st.CPUPercent = pct
		}
		if mi, err := s.proc.MemoryInfo(); err == nil {
			st.RSS = mi.RSS
		}
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		st.HostUsed = vm.UsedPercent
	}
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	st.GoHeap = ms.HeapAlloc
	return st
}
