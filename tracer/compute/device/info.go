package device

import (
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"
)

// Host hardware details.
type HostInfo struct {
	Model        string
	MHz          float64
	Cores        int
	LogicalCores int

	// Memory sizes in bytes.
	TotalMemory     uint64
	AvailableMemory uint64
}

// Query the host CPU and memory.
func Host() (HostInfo, error) {
	var info HostInfo

	cpus, err := cpu.Info()
	if err != nil {
		return info, err
	}
	if len(cpus) > 0 {
		info.Model = cpus[0].ModelName
		info.MHz = cpus[0].Mhz
	}

	if info.Cores, err = cpu.Counts(false); err != nil {
		return info, err
	}
	if info.LogicalCores, err = cpu.Counts(true); err != nil {
		return info, err
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		return info, err
	}
	info.TotalMemory = vm.Total
	info.AvailableMemory = vm.Available

	return info, nil
}
