package sysinfo

import (
	"context"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"codeberg.org/halvard/sysmond/internal/logger"
	godisk "github.com/shirou/gopsutil/v4/disk"
)

const fragCacheTTL = 10 * time.Minute

var (
	diskPartitions = godisk.Partitions
	diskUsage      = godisk.Usage
)

// runCommand is a seam for the vendor-tool invocations (e4defrag,
// nvidia-smi, rocm-smi).
var runCommand = func(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

var lookPath = exec.LookPath

type fragEntry struct {
	at    time.Time
	value float64
	ok    bool
}

func (s *Source) readStorage() StorageStat {
	var stat StorageStat

	partitions, err := diskPartitions(false)
	if err != nil {
		logger.Debug().Err(err).Msg("disk partitions unavailable")
		return stat
	}

	for _, partition := range partitions {
		usage, err := diskUsage(partition.Mountpoint)
		if err != nil {
			// Some mountpoints are not accessible without privileges.
			continue
		}

		entry := PartitionStat{
			Device:        partition.Device,
			Mountpoint:    partition.Mountpoint,
			Fstype:        partition.Fstype,
			Total:         usage.Total,
			Used:          usage.Used,
			Free:          usage.Free,
			Percent:       usage.UsedPercent,
			Fragmentation: -1,
		}

		if frag, ok := s.diskFragmentation(partition.Mountpoint, partition.Fstype); ok {
			entry.Fragmentation = frag
		}

		stat.Partitions = append(stat.Partitions, entry)
		stat.Total += usage.Total
		stat.Used += usage.Used
	}

	stat.Free = stat.Total - stat.Used
	if stat.Total > 0 {
		stat.Percent = float64(stat.Used) / float64(stat.Total) * 100
	}

	return stat
}

// diskFragmentation asks e4defrag for a fragmentation score on ext
// filesystems. The call is slow, so results are cached per mountpoint.
func (s *Source) diskFragmentation(mountpoint, fstype string) (float64, bool) {
	if !strings.HasPrefix(fstype, "ext") {
		return 0, false
	}

	s.mu.Lock()
	cached, hit := s.fragCache[mountpoint]
	s.mu.Unlock()
	if hit && time.Since(cached.at) < fragCacheTTL {
		return cached.value, cached.ok
	}

	value, ok := measureFragmentation(mountpoint)

	s.mu.Lock()
	s.fragCache[mountpoint] = fragEntry{at: time.Now(), value: value, ok: ok}
	s.mu.Unlock()

	return value, ok
}

func measureFragmentation(mountpoint string) (float64, bool) {
	if _, err := lookPath("e4defrag"); err != nil {
		return 0, false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	output, err := runCommand(ctx, "e4defrag", "-c", mountpoint)
	if err != nil {
		return 0, false
	}

	for _, line := range strings.Split(string(output), "\n") {
		if !strings.Contains(line, "Fragmentation score") {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		fields := strings.Fields(parts[1])
		if len(fields) == 0 {
			continue
		}
		score, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			continue
		}
		// Scores run 0-100; normalize to the 0..1 range the UI expects.
		normalized := score / 100
		if normalized < 0 {
			normalized = 0
		}
		if normalized > 1 {
			normalized = 1
		}
		return normalized, true
	}

	return 0, false
}
