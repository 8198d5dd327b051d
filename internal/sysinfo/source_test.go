package sysinfo

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	godisk "github.com/shirou/gopsutil/v4/disk"
	gomem "github.com/shirou/gopsutil/v4/mem"
	gonet "github.com/shirou/gopsutil/v4/net"
	gosensors "github.com/shirou/gopsutil/v4/sensors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/halvard/sysmond/internal/errors"
)

func stubSeams(t *testing.T) {
	t.Helper()

	origCPUPercent := cpuPercent
	origCPUCounts := cpuCounts
	origVirtualMemory := virtualMemory
	origNetIOCounters := netIOCounters
	origLookPath := lookPath
	t.Cleanup(func() {
		cpuPercent = origCPUPercent
		cpuCounts = origCPUCounts
		virtualMemory = origVirtualMemory
		netIOCounters = origNetIOCounters
		lookPath = origLookPath
	})

	// No vendor CLIs in the test environment.
	lookPath = func(string) (string, error) {
		return "", errors.New().New(errors.ErrNotSupported)
	}
}

func stubPath(t *testing.T, target *string, value string) {
	t.Helper()

	orig := *target
	*target = value
	t.Cleanup(func() { *target = orig })
}

func TestReadCPU(t *testing.T) {
	stubSeams(t)

	cpuPercent = func(_ time.Duration, percpu bool) ([]float64, error) {
		if percpu {
			return []float64{10, 120, -5, 40}, nil
		}
		return []float64{42.5}, nil
	}
	cpuCounts = func(logical bool) (int, error) {
		if logical {
			return 8, nil
		}
		return 4, nil
	}
	stubPath(t, &cpufreqPattern, filepath.Join(t.TempDir(), "nope*"))

	s := &Source{fragCache: make(map[string]fragEntry)}
	stat := s.readCPU()

	assert.Equal(t, 42.5, stat.TotalPercent)
	assert.Equal(t, []float64{10, 100, 0, 40}, stat.PerCorePercent, "per-core values should be clamped to 0-100")
	assert.Equal(t, 4, stat.PhysicalCores)
	assert.Equal(t, 8, stat.LogicalCores)
	assert.Zero(t, stat.FreqCurrentKHz)
}

func TestReadCPUFreqFromSysfs(t *testing.T) {
	stubSeams(t)

	dir := t.TempDir()
	cpufreq := filepath.Join(dir, "cpu0", "cpufreq")
	require.NoError(t, os.MkdirAll(cpufreq, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cpufreq, "scaling_cur_freq"), []byte("2800000\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(cpufreq, "scaling_min_freq"), []byte("400000\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(cpufreq, "scaling_max_freq"), []byte("4500000\n"), 0o644))
	stubPath(t, &cpufreqPattern, filepath.Join(dir, "cpu[0-9]*", "cpufreq"))

	current, minimum, maximum := readCPUFreq()
	assert.Equal(t, 2800000, current)
	assert.Equal(t, 400000, minimum)
	assert.Equal(t, 4500000, maximum)
}

func TestReadMemoryFailureYieldsZeroGroup(t *testing.T) {
	stubSeams(t)

	virtualMemory = func() (*gomem.VirtualMemoryStat, error) {
		return nil, errors.New().New(errors.ErrCollectFailed)
	}

	s := &Source{fragCache: make(map[string]fragEntry)}
	stat := s.readMemory()

	assert.Zero(t, stat.Total)
	assert.Zero(t, stat.Percent)
	assert.Equal(t, -1.0, stat.Fragmentation)
}

func TestBuddyinfoFragmentation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "buddyinfo")
	content := "Node 0, zone   Normal      4      2      1\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	stubPath(t, &buddyinfoPath, path)

	frag, ok := readBuddyinfoFragmentation()
	require.True(t, ok)
	// 4+2*2+1*4 = 12 free pages, largest available order holds 4.
	assert.InDelta(t, 1.0-4.0/12.0, frag, 1e-9)
}

func TestBuddyinfoMissingFile(t *testing.T) {
	stubPath(t, &buddyinfoPath, filepath.Join(t.TempDir(), "missing"))

	_, ok := readBuddyinfoFragmentation()
	assert.False(t, ok)
}

func TestReadNetworkRates(t *testing.T) {
	stubSeams(t)

	counters := gonet.IOCountersStat{BytesSent: 1000, BytesRecv: 2000}
	netIOCounters = func(bool) ([]gonet.IOCountersStat, error) {
		return []gonet.IOCountersStat{counters}, nil
	}

	s := NewSource()

	counters = gonet.IOCountersStat{BytesSent: 1500, BytesRecv: 4000, PacketsSent: 10, PacketsRecv: 20}
	s.lastNetAt = time.Now().Add(-time.Second)

	stat := s.readNetwork()

	assert.Equal(t, uint64(500), stat.BytesSent)
	assert.Equal(t, uint64(2000), stat.BytesRecv)
	assert.Equal(t, uint64(1500), stat.TotalBytesSent)
	assert.Equal(t, uint64(4000), stat.TotalBytesRecv)
	assert.InDelta(t, 500, stat.UploadBytesPerSec, 50)
	assert.InDelta(t, 2000, stat.DownloadBytesPerSec, 200)
}

func TestReadNetworkCounterReset(t *testing.T) {
	stubSeams(t)

	netIOCounters = func(bool) ([]gonet.IOCountersStat, error) {
		return []gonet.IOCountersStat{{BytesSent: 100, BytesRecv: 100}}, nil
	}

	s := &Source{fragCache: make(map[string]fragEntry)}
	s.lastNet = gonet.IOCountersStat{BytesSent: 5000, BytesRecv: 5000}
	s.lastNetAt = time.Now().Add(-time.Second)

	stat := s.readNetwork()

	assert.Zero(t, stat.BytesSent, "a counter reset must not produce a negative delta")
	assert.Zero(t, stat.BytesRecv)
}

func TestReadNetworkFailureYieldsZeroGroup(t *testing.T) {
	stubSeams(t)

	netIOCounters = func(bool) ([]gonet.IOCountersStat, error) {
		return nil, errors.New().New(errors.ErrCollectFailed)
	}

	s := &Source{fragCache: make(map[string]fragEntry)}
	assert.Equal(t, NetworkStat{}, s.readNetwork())
}

func TestReadingIsBestEffort(t *testing.T) {
	stubSeams(t)

	cpuPercent = func(time.Duration, bool) ([]float64, error) {
		return []float64{33}, nil
	}
	cpuCounts = func(bool) (int, error) { return 0, errors.New().New(errors.ErrCollectFailed) }
	virtualMemory = func() (*gomem.VirtualMemoryStat, error) {
		return nil, errors.New().New(errors.ErrCollectFailed)
	}
	netIOCounters = func(bool) ([]gonet.IOCountersStat, error) {
		return nil, errors.New().New(errors.ErrCollectFailed)
	}
	origPartitions := diskPartitions
	t.Cleanup(func() { diskPartitions = origPartitions })
	diskPartitions = func(bool) ([]godisk.PartitionStat, error) {
		return nil, errors.New().New(errors.ErrCollectFailed)
	}
	origSensors := sensorsTemperatures
	t.Cleanup(func() { sensorsTemperatures = origSensors })
	sensorsTemperatures = func() ([]gosensors.TemperatureStat, error) {
		return nil, errors.New().New(errors.ErrCollectFailed)
	}

	stubPath(t, &cpufreqPattern, filepath.Join(t.TempDir(), "none*"))
	stubPath(t, &buddyinfoPath, filepath.Join(t.TempDir(), "missing"))
	stubPath(t, &hwmonRoot, filepath.Join(t.TempDir(), "hwmon"))
	stubPath(t, &msiECRoot, filepath.Join(t.TempDir(), "msi-ec"))
	stubPath(t, &powerSupplyPath, filepath.Join(t.TempDir(), "BAT1"))

	s := &Source{fragCache: make(map[string]fragEntry)}
	s.nvmlOnce.Do(func() {}) // pretend NVML probing already failed

	reading := s.Reading()

	assert.False(t, reading.Timestamp.IsZero())
	assert.Equal(t, 33.0, reading.CPUPercent(), "a failing group must not take a healthy one down with it")
	assert.Zero(t, reading.RAMPercent())
	assert.Equal(t, NetworkStat{}, reading.Network)
	assert.Empty(t, reading.GPUs)
	assert.False(t, reading.Battery.Present)
}
