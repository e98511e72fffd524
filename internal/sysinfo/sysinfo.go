// Package sysinfo reads the device health figures the status API reports.
package sysinfo

import (
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

var started = time.Now()

// Uptime returns seconds since boot, falling back to process uptime when
// the host figure is unavailable.
func Uptime() uint64 {
	if up, err := host.Uptime(); err == nil && up > 0 {
		return up
	}
	return uint64(time.Since(started) / time.Second)
}

// FreeMemory returns the bytes of memory available for allocation, or 0
// when the host cannot report it.
func FreeMemory() uint64 {
	if vm, err := mem.VirtualMemory(); err == nil {
		return vm.Available
	}
	return 0
}
