package system

import (
	"testing"
)

func TestGetSystemStats(t *testing.T) {
	collector := NewCollector()

	stats, err := collector.GetSystemStats()
	if err != nil {
		t.Fatalf("GetSystemStats() error = %v", err)
	}

	if stats.Hostname == "" {
		t.Error("Hostname is empty")
	}
	if stats.CPU.Cores < 1 {
		t.Errorf("CPU.Cores = %d, want >= 1", stats.CPU.Cores)
	}
	if stats.Memory.Total == 0 {
		t.Error("Memory.Total = 0, want > 0")
	}
	if stats.Timestamp.IsZero() {
		t.Error("Timestamp is zero")
	}
}
