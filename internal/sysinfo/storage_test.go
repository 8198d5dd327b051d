package sysinfo

import (
	"context"
	"testing"
	"time"

	godisk "github.com/shirou/gopsutil/v4/disk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/halvard/sysmond/internal/errors"
)

func stubCommands(t *testing.T, output string, err error) *int {
	t.Helper()

	origLookPath := lookPath
	origRunCommand := runCommand
	t.Cleanup(func() {
		lookPath = origLookPath
		runCommand = origRunCommand
	})

	calls := new(int)
	lookPath = func(string) (string, error) { return "/usr/bin/stub", nil }
	runCommand = func(_ context.Context, _ string, _ ...string) ([]byte, error) {
		*calls++
		return []byte(output), err
	}

	return calls
}

const e4defragOutput = `e4defrag 1.47.0 (5-Feb-2023)
<Fragmented files>                             now/best       size/ext
1. /var/log/journal/system.journal              20/1              4 KB
 Total/best extents                             120/90
 Average size per extent                        210 KB
 Fragmentation score                            27
 [0-30 no problem: 31-55 a little bit fragmented: 56- needs defrag]
`

func TestMeasureFragmentation(t *testing.T) {
	stubCommands(t, e4defragOutput, nil)

	value, ok := measureFragmentation("/")
	require.True(t, ok)
	assert.InDelta(t, 0.27, value, 1e-9)
}

func TestMeasureFragmentationToolMissing(t *testing.T) {
	origLookPath := lookPath
	t.Cleanup(func() { lookPath = origLookPath })
	lookPath = func(string) (string, error) {
		return "", errors.New().New(errors.ErrNotSupported)
	}

	_, ok := measureFragmentation("/")
	assert.False(t, ok)
}

func TestMeasureFragmentationUnparseableOutput(t *testing.T) {
	stubCommands(t, "something went sideways\n", nil)

	_, ok := measureFragmentation("/")
	assert.False(t, ok)
}

func TestDiskFragmentationCaching(t *testing.T) {
	calls := stubCommands(t, e4defragOutput, nil)

	s := &Source{fragCache: make(map[string]fragEntry)}

	first, ok := s.diskFragmentation("/", "ext4")
	require.True(t, ok)
	second, ok := s.diskFragmentation("/", "ext4")
	require.True(t, ok)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, *calls, "the second lookup within the TTL must come from the cache")
}

func TestDiskFragmentationCacheExpiry(t *testing.T) {
	calls := stubCommands(t, e4defragOutput, nil)

	s := &Source{fragCache: make(map[string]fragEntry)}
	s.fragCache["/"] = fragEntry{at: time.Now().Add(-fragCacheTTL - time.Minute), value: 0.5, ok: true}

	value, ok := s.diskFragmentation("/", "ext4")
	require.True(t, ok)
	assert.InDelta(t, 0.27, value, 1e-9)
	assert.Equal(t, 1, *calls, "an expired entry must trigger a fresh measurement")
}

func TestDiskFragmentationSkipsNonExt(t *testing.T) {
	calls := stubCommands(t, e4defragOutput, nil)

	s := &Source{fragCache: make(map[string]fragEntry)}

	_, ok := s.diskFragmentation("/boot", "vfat")
	assert.False(t, ok)
	assert.Zero(t, *calls)
}

func TestReadStorageAggregates(t *testing.T) {
	stubSeams(t)

	origPartitions := diskPartitions
	origUsage := diskUsage
	t.Cleanup(func() {
		diskPartitions = origPartitions
		diskUsage = origUsage
	})

	diskPartitions = func(bool) ([]godisk.PartitionStat, error) {
		return []godisk.PartitionStat{
			{Device: "/dev/nvme0n1p2", Mountpoint: "/", Fstype: "btrfs"},
			{Device: "/dev/nvme0n1p1", Mountpoint: "/boot", Fstype: "vfat"},
			{Device: "/dev/sda1", Mountpoint: "/mnt/broken", Fstype: "ext4"},
		}, nil
	}
	diskUsage = func(mountpoint string) (*godisk.UsageStat, error) {
		switch mountpoint {
		case "/":
			return &godisk.UsageStat{Total: 1000, Used: 400, Free: 600, UsedPercent: 40}, nil
		case "/boot":
			return &godisk.UsageStat{Total: 500, Used: 100, Free: 400, UsedPercent: 20}, nil
		default:
			return nil, errors.New().New(errors.ErrPermission)
		}
	}

	s := &Source{fragCache: make(map[string]fragEntry)}
	stat := s.readStorage()

	require.Len(t, stat.Partitions, 2, "an unreadable mountpoint is skipped, not fatal")
	assert.Equal(t, uint64(1500), stat.Total)
	assert.Equal(t, uint64(500), stat.Used)
	assert.Equal(t, uint64(1000), stat.Free)
	assert.InDelta(t, 33.33, stat.Percent, 0.01)
	assert.Equal(t, -1.0, stat.Partitions[0].Fragmentation, "non-ext partitions carry the sentinel")
}
