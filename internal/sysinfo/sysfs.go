package sysinfo

import (
	"os"
	"strconv"
	"strings"
)

// Best-effort sysfs and /proc paths. Variables so tests can point them at a
// fake tree.
var (
	buddyinfoPath   = "/proc/buddyinfo"
	cpufreqPattern  = "/sys/devices/system/cpu/cpu[0-9]*/cpufreq"
	hwmonRoot       = "/sys/class/hwmon"
	msiECRoot       = "/sys/devices/platform/msi-ec"
	powerSupplyPath = "/sys/class/power_supply/BAT1"
)

func readString(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}

	line := string(data)
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}

	return strings.TrimSpace(line)
}

func readInt(path string) (int, bool) {
	value, err := strconv.Atoi(readString(path))
	if err != nil {
		return 0, false
	}

	return value, true
}
