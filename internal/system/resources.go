package system

import (
	"log/slog"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// minFreeForRender is the free memory below which encoder threads are halved.
const minFreeForRender = 1 << 30

// EncoderThreads picks the ffmpeg thread count for a render.
// configured > 0 wins; otherwise logical cores, halved under memory pressure.
func EncoderThreads(configured int) int {
	if configured > 0 {
		return configured
	}

	threads, err := cpu.Counts(true)
	if err != nil || threads <= 0 {
		threads = runtime.NumCPU()
	}

	vm, err := mem.VirtualMemory()
	if err == nil && vm.Available < minFreeForRender && threads > 1 {
		slog.Warn("Low memory, reducing encoder threads", "available_mb", vm.Available>>20, "threads", threads/2)
		threads /= 2
	}
	return threads
}

// MemoryStats is a snapshot of host memory for health reporting.
type MemoryStats struct {
	TotalMB     uint64  `json:"total_mb"`
	AvailableMB uint64  `json:"available_mb"`
	UsedPercent float64 `json:"used_percent"`
}

func Memory() (MemoryStats, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return MemoryStats{}, err
	}
	return MemoryStats{
		TotalMB:     vm.Total >> 20,
		AvailableMB: vm.Available >> 20,
		UsedPercent: vm.UsedPercent,
	}, nil
}
