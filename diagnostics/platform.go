package diagnostics

import (
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// PlatformSnapshotData is a point-in-time host resource reading. It is
// diagnostic only: nothing in this module's core gates a wait, a post, or
// a segment operation on CPU or memory pressure.
type PlatformSnapshotData struct {
	CPUPercent    float64
	MemoryPercent float64
	MemoryUsed    uint64
	MemoryTotal   uint64
}

// PlatformSnapshot samples host CPU and memory, useful for correlating
// futex wait latency spikes with host contention during load testing.
func PlatformSnapshot() (PlatformSnapshotData, error) {
	var snap PlatformSnapshotData

	cpuPercents, err := cpu.Percent(0, false)
	if err != nil {
		return snap, err
	}
	if len(cpuPercents) > 0 {
		snap.CPUPercent = cpuPercents[0]
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		return snap, err
	}
	snap.MemoryPercent = vm.UsedPercent
	snap.MemoryUsed = vm.Used
	snap.MemoryTotal = vm.Total

	return snap, nil
}
