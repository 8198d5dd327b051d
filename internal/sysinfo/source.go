package sysinfo

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"codeberg.org/halvard/sysmond/internal/logger"
	gocpu "github.com/shirou/gopsutil/v4/cpu"
	gomem "github.com/shirou/gopsutil/v4/mem"
	gonet "github.com/shirou/gopsutil/v4/net"
)

// System call wrappers as variables so tests can stub them out.
var (
	cpuPercent    = gocpu.Percent
	cpuCounts     = gocpu.Counts
	virtualMemory = gomem.VirtualMemory
	netIOCounters = gonet.IOCounters
)

// Source produces best-effort point-in-time readings of OS and hardware
// metrics. A failed metric group yields zero values for that group only;
// Reading never returns an error.
type Source struct {
	mu        sync.Mutex
	lastNet   gonet.IOCountersStat
	lastNetAt time.Time
	fragCache map[string]fragEntry
	nvmlOnce  sync.Once
	nvmlOK    bool
}

// NewSource primes the network counters so the first reading already has a
// meaningful rate baseline.
func NewSource() *Source {
	s := &Source{fragCache: make(map[string]fragEntry)}

	if counters, err := netIOCounters(false); err == nil && len(counters) > 0 {
		s.lastNet = counters[0]
		s.lastNetAt = time.Now()
	}

	return s
}

// Reading gathers a full snapshot. Every group is independent: a failure in
// one leaves the others intact.
func (s *Source) Reading() Reading {
	return Reading{
		Timestamp: time.Now(),
		CPU:       s.readCPU(),
		Memory:    s.readMemory(),
		Storage:   s.readStorage(),
		Network:   s.readNetwork(),
		Sensors:   s.readSensors(),
		GPUs:      s.readGPUs(),
		Battery:   s.readBattery(),
	}
}

// Close releases the NVML handle when it was initialized.
func (s *Source) Close() {
	s.closeNVML()
}

func (s *Source) readCPU() CPUStat {
	var stat CPUStat

	if percentages, err := cpuPercent(0, false); err == nil && len(percentages) > 0 {
		stat.TotalPercent = clampPercent(percentages[0])
	} else if err != nil {
		logger.Debug().Err(err).Msg("cpu percent unavailable")
	}

	if perCore, err := cpuPercent(0, true); err == nil {
		stat.PerCorePercent = make([]float64, len(perCore))
		for i, p := range perCore {
			stat.PerCorePercent[i] = clampPercent(p)
		}
	}

	if count, err := cpuCounts(false); err == nil {
		stat.PhysicalCores = count
	}
	if count, err := cpuCounts(true); err == nil {
		stat.LogicalCores = count
	}

	stat.FreqCurrentKHz, stat.FreqMinKHz, stat.FreqMaxKHz = readCPUFreq()

	return stat
}

// readCPUFreq reads the scaling frequencies of the first cpufreq policy,
// which the dashboard treats as representative for the whole package.
func readCPUFreq() (current, minimum, maximum int) {
	paths, err := filepath.Glob(cpufreqPattern)
	if err != nil || len(paths) == 0 {
		return 0, 0, 0
	}

	current, _ = readInt(filepath.Join(paths[0], "scaling_cur_freq"))
	minimum, _ = readInt(filepath.Join(paths[0], "scaling_min_freq"))
	maximum, _ = readInt(filepath.Join(paths[0], "scaling_max_freq"))

	return current, minimum, maximum
}

func (s *Source) readMemory() MemoryStat {
	stat := MemoryStat{Fragmentation: -1}

	memory, err := virtualMemory()
	if err != nil {
		logger.Debug().Err(err).Msg("memory stats unavailable")
		return stat
	}

	stat.Total = memory.Total
	stat.Available = memory.Available
	stat.Used = memory.Used
	stat.Percent = memory.UsedPercent
	stat.Buffers = memory.Buffers
	stat.Cached = memory.Cached
	stat.Shared = memory.Shared

	if frag, ok := readBuddyinfoFragmentation(); ok {
		stat.Fragmentation = frag
	}

	return stat
}

// readBuddyinfoFragmentation derives a 0..1 fragmentation index from
// /proc/buddyinfo: 1 minus the share of free pages held in the largest
// still-available block order.
func readBuddyinfoFragmentation() (float64, bool) {
	data, err := os.ReadFile(buddyinfoPath)
	if err != nil {
		return 0, false
	}

	var totalPages, largestBlockPages int
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) <= 4 {
			continue
		}
		// The first four fields are the "Node N, zone NAME" header.
		for order, field := range fields[4:] {
			count, err := strconv.Atoi(field)
			if err != nil {
				continue
			}
			pages := 1 << order
			totalPages += count * pages
			if count > 0 && pages > largestBlockPages {
				largestBlockPages = pages
			}
		}
	}

	if totalPages == 0 {
		return 0, false
	}

	frag := 1.0 - float64(largestBlockPages)/float64(totalPages)
	if frag < 0 {
		frag = 0
	}
	if frag > 1 {
		frag = 1
	}

	return frag, true
}

func (s *Source) readNetwork() NetworkStat {
	counters, err := netIOCounters(false)
	if err != nil || len(counters) == 0 {
		if err != nil {
			logger.Debug().Err(err).Msg("network counters unavailable")
		}
		return NetworkStat{}
	}

	current := counters[0]
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	stat := NetworkStat{
		TotalBytesSent: current.BytesSent,
		TotalBytesRecv: current.BytesRecv,
		PacketsSent:    current.PacketsSent,
		PacketsRecv:    current.PacketsRecv,
		ErrIn:          current.Errin,
		ErrOut:         current.Errout,
	}

	if !s.lastNetAt.IsZero() {
		elapsed := now.Sub(s.lastNetAt).Seconds()
		stat.BytesSent = counterDelta(current.BytesSent, s.lastNet.BytesSent)
		stat.BytesRecv = counterDelta(current.BytesRecv, s.lastNet.BytesRecv)
		if elapsed > 0 {
			stat.UploadBytesPerSec = float64(stat.BytesSent) / elapsed
			stat.DownloadBytesPerSec = float64(stat.BytesRecv) / elapsed
		}
	}

	s.lastNet = current
	s.lastNetAt = now

	return stat
}

// counterDelta guards against counter resets across suspend or interface
// reconfiguration.
func counterDelta(current, previous uint64) uint64 {
	if current < previous {
		return 0
	}

	return current - previous
}

func clampPercent(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 100 {
		return 100
	}

	return value
}
