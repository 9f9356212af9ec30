package system

import (
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemStats represents host statistics exposed by the system endpoint
type SystemStats struct {
	Hostname  string      `json:"hostname"`
	CPU       CPUStats    `json:"cpu"`
	Memory    MemoryStats `json:"memory"`
	Disk      DiskStats   `json:"disk"`
	Timestamp time.Time   `json:"timestamp"`
}

// CPUStats represents CPU usage statistics
type CPUStats struct {
	UsagePercent float64 `json:"usage_percent"`
	Cores        int     `json:"cores"`
}

// MemoryStats represents memory usage statistics
type MemoryStats struct {
	Total        uint64  `json:"total_bytes"`
	Used         uint64  `json:"used_bytes"`
	Free         uint64  `json:"free_bytes"`
	Available    uint64  `json:"available_bytes"`
	UsagePercent float64 `json:"usage_percent"`
}

// DiskStats represents disk usage statistics
type DiskStats struct {
	Total        uint64  `json:"total_bytes"`
	Used         uint64  `json:"used_bytes"`
	Free         uint64  `json:"free_bytes"`
	UsagePercent float64 `json:"usage_percent"`
	Path         string  `json:"path"`
}

// Collector collects host statistics
type Collector struct{}

// NewCollector creates a new system stats collector
func NewCollector() *Collector {
	return &Collector{}
}

// GetSystemStats retrieves host statistics. Individual collection
// failures degrade to zero values rather than failing the whole call.
func (c *Collector) GetSystemStats() (*SystemStats, error) {
	hostname, err := os.Hostname()
	if err != nil {
		slog.Warn("failed to get hostname", "error", err)
		hostname = "unknown"
	}

	var cpuStats CPUStats
	var memStats MemoryStats
	var diskStats DiskStats

	// Collect in parallel; each probe is independent
	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		cpuStats = c.getCPUStats()
	}()

	go func() {
		defer wg.Done()
		memStats = c.getMemoryStats()
	}()

	go func() {
		defer wg.Done()
		diskStats = c.getDiskStats("/")
	}()

	wg.Wait()

	return &SystemStats{
		Hostname:  hostname,
		CPU:       cpuStats,
		Memory:    memStats,
		Disk:      diskStats,
		Timestamp: time.Now(),
	}, nil
}

// getCPUStats retrieves CPU usage statistics
func (c *Collector) getCPUStats() CPUStats {
	cores, err := cpu.Counts(true)
	if err != nil {
		slog.Warn("failed to get CPU count", "error", err)
		cores = 1
	}

	// Zero duration returns the percentage since the last call instead
	// of blocking for a sampling window
	percentages, err := cpu.Percent(0, false)
	if err != nil || len(percentages) == 0 {
		slog.Warn("failed to get CPU usage", "error", err)
		return CPUStats{UsagePercent: 0, Cores: cores}
	}

	return CPUStats{UsagePercent: percentages[0], Cores: cores}
}

// getMemoryStats retrieves memory usage statistics
func (c *Collector) getMemoryStats() MemoryStats {
	vm, err := mem.VirtualMemory()
	if err != nil {
		slog.Warn("failed to get memory stats", "error", err)
		return MemoryStats{}
	}

	return MemoryStats{
		Total:        vm.Total,
		Used:         vm.Used,
		Free:         vm.Free,
		Available:    vm.Available,
		UsagePercent: vm.UsedPercent,
	}
}

// getDiskStats retrieves disk usage statistics for the given path
func (c *Collector) getDiskStats(path string) DiskStats {
	usage, err := disk.Usage(path)
	if err != nil {
		slog.Warn("failed to get disk stats", "error", err, "path", path)
		return DiskStats{Path: path}
	}

	return DiskStats{
		Total:        usage.Total,
		Used:         usage.Used,
		Free:         usage.Free,
		UsagePercent: usage.UsedPercent,
		Path:         path,
	}
}
