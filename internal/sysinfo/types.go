package sysinfo

import "time"

// Reading is one immutable snapshot of system metrics. It is created once
// per collection cycle and never mutated afterwards; ownership passes to the
// history buffer and to the registered observer.
type Reading struct {
	Timestamp time.Time
	CPU       CPUStat
	Memory    MemoryStat
	Storage   StorageStat
	Network   NetworkStat
	Sensors   SensorStat
	GPUs      []GPUStat
	Battery   BatteryStat
}

// CPUPercent returns the aggregate CPU usage the history chart plots.
func (r Reading) CPUPercent() float64 {
	return r.CPU.TotalPercent
}

// RAMPercent returns the aggregate memory usage the history chart plots.
func (r Reading) RAMPercent() float64 {
	return r.Memory.Percent
}

func (r Reading) UploadBytesPerSec() float64 {
	return r.Network.UploadBytesPerSec
}

func (r Reading) DownloadBytesPerSec() float64 {
	return r.Network.DownloadBytesPerSec
}

type CPUStat struct {
	TotalPercent   float64
	PerCorePercent []float64
	PhysicalCores  int
	LogicalCores   int
	FreqCurrentKHz int
	FreqMinKHz     int
	FreqMaxKHz     int
}

type MemoryStat struct {
	Total     uint64
	Available uint64
	Used      uint64
	Percent   float64
	Buffers   uint64
	Cached    uint64
	Shared    uint64
	// Fragmentation is a 0..1 index derived from /proc/buddyinfo,
	// or -1 when it could not be computed.
	Fragmentation float64
}

type PartitionStat struct {
	Device     string
	Mountpoint string
	Fstype     string
	Total      uint64
	Used       uint64
	Free       uint64
	Percent    float64
	// Fragmentation is a 0..1 score from e4defrag, or -1 when unsupported.
	Fragmentation float64
}

type StorageStat struct {
	Partitions []PartitionStat
	Total      uint64
	Used       uint64
	Free       uint64
	Percent    float64
}

type NetworkStat struct {
	// Deltas since the previous reading.
	BytesSent uint64
	BytesRecv uint64
	// Running totals since boot.
	TotalBytesSent      uint64
	TotalBytesRecv      uint64
	PacketsSent         uint64
	PacketsRecv         uint64
	ErrIn               uint64
	ErrOut              uint64
	UploadBytesPerSec   float64
	DownloadBytesPerSec float64
}

type TemperatureStat struct {
	Sensor   string
	Label    string
	Current  float64
	High     float64
	Critical float64
}

type FanStat struct {
	Label string
	RPM   int
	Path  string
	// PWM is the current duty cycle (0-255), or -1 when the fan has no
	// writable pwm node. PWMPath is empty in that case.
	PWM     int
	PWMPath string
}

type SensorStat struct {
	Temperatures []TemperatureStat
	Fans         []FanStat
}

type GPUStat struct {
	Vendor         string
	Name           string
	Index          int
	Utilization    float64
	MemUtilization float64
	MemTotalMB     float64
	MemUsedMB      float64
	Temperature    float64
	PowerWatts     float64
}

type BatteryStat struct {
	Present        bool
	Capacity       int
	Status         string
	StartThreshold int
	EndThreshold   int
}
