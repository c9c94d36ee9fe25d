// Package sysmon samples host CPU and memory utilisation.
package sysmon

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

// Usage is an instantaneous view of host load.
type Usage struct {
	CPUPercent    float64
	MemoryPercent float64
	MemoryUsed    uint64
	MemoryTotal   uint64
}

// Sampler reports current host usage.
type Sampler interface {
	Sample(ctx context.Context) (Usage, error)
}

// HostSampler measures CPU over Window and reads memory once.
type HostSampler struct {
	Window time.Duration
}

func NewHostSampler() *HostSampler {
	return &HostSampler{Window: time.Second}
}

func (s *HostSampler) Sample(ctx context.Context) (Usage, error) {
	percents, err := cpu.PercentWithContext(ctx, s.Window, false)
	if err != nil {
		return Usage{}, fmt.Errorf("sampling cpu: %w", err)
	}
	if len(percents) == 0 {
		return Usage{}, fmt.Errorf("sampling cpu: no data")
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Usage{}, fmt.Errorf("reading memory: %w", err)
	}

	return Usage{
		CPUPercent:    percents[0],
		MemoryPercent: vm.UsedPercent,
		MemoryUsed:    vm.Used,
		MemoryTotal:   vm.Total,
	}, nil
}
