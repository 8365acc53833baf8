package usecase

import "runtime"

// memSampler measures the heap growth of one phase. Best effort: it
// reads allocator statistics before and after, which tracks Go heap use
// but not memory held by mmap or the OS page cache. A GC runs before the
// phase so prior combinations don't pollute the baseline; none runs
// after, so the phase's allocations are still visible.
type memSampler struct {
	before runtime.MemStats
}

func startMemSample() *memSampler {
	s := &memSampler{}
	runtime.GC()
	runtime.ReadMemStats(&s.before)
	return s
}

// peakMB returns the heap-alloc delta in MB, clamped at zero.
func (s *memSampler) peakMB() float64 {
	var after runtime.MemStats
	runtime.ReadMemStats(&after)
	if after.HeapAlloc <= s.before.HeapAlloc {
		return 0
	}
	return float64(after.HeapAlloc-s.before.HeapAlloc) / (1024 * 1024)
}
