// Package kgpodman supplies the masked-/proc argument for profiles
// whose terminal command is /usr/bin/podman (§6, masked_paths.rs). Not
// applied automatically to every invocation — only a profile building
// a podman command line should append it.
package kgpodman

import "strings"

var maskedProcPaths = []string{
	"/proc/acpi", "/proc/asound", "/proc/bootconfig", "/proc/buddyinfo",
	"/proc/bus", "/proc/cgroups", "/proc/cmdline", "/proc/consoles",
	"/proc/crypto", "/proc/devices", "/proc/diskstats", "/proc/dma",
	"/proc/driver", "/proc/dynamic_debug", "/proc/fb", "/proc/filesystems",
	"/proc/fs", "/proc/interrupts", "/proc/iomem", "/proc/ioports",
	"/proc/irq", "/proc/kcore", "/proc/key-users", "/proc/keys",
	"/proc/latency_stats", "/proc/meminfo", "/proc/misc", "/proc/modules",
	"/proc/partitions", "/proc/sched_debug", "/proc/schedstat",
	"/proc/scsi", "/proc/softirqs", "/proc/swaps", "/proc/sys",
	"/proc/timer_list", "/proc/timer_stats", "/proc/tty", "/proc/vmstat",
	"/proc/zoneinfo",
}

// MaskArg returns the "--security-opt=mask=..." argument to hand to
// podman so the sandboxed process cannot read host hardware/kernel
// details through these /proc entries.
func MaskArg() string {
	return "--security-opt=mask=" + strings.Join(maskedProcPaths, ":")
}
