// Package proc builds the process table and offers best-effort process
// termination. Processes that disappear or deny access mid-iteration are
// skipped silently.
package proc

import (
	"fmt"
	"sort"
	"strings"
	"time"

	goprocess "github.com/shirou/gopsutil/v4/process"
)

// Seams for tests.
var (
	listProcesses = goprocess.Processes
	newProcess    = goprocess.NewProcess
)

const killWait = 3 * time.Second

// Info is one row of the process table.
type Info struct {
	PID        int32
	Name       string
	State      string
	User       string
	CPUPercent float64
	MemPercent float64
	RSS        uint64
	VMS        uint64
	Threads    int32
	CreateTime int64
	ReadBytes  uint64
	WriteBytes uint64
}

// Result reports the outcome of a termination request.
type Result struct {
	OK      bool
	Message string
	PID     int32
}

// List returns the process table sorted by the given column. Supported sort
// keys are cpu_percent, memory_percent, pid, threads and name; anything else
// leaves the iteration order. A limit below one returns all rows.
func List(sortBy string, descending bool, limit int) []Info {
	processes, err := listProcesses()
	if err != nil {
		return nil
	}

	infos := make([]Info, 0, len(processes))
	for _, p := range processes {
		info, ok := describe(p)
		if !ok {
			continue
		}
		infos = append(infos, info)
	}

	sortInfos(infos, sortBy, descending)

	if limit > 0 && len(infos) > limit {
		infos = infos[:limit]
	}

	return infos
}

func describe(p *goprocess.Process) (Info, bool) {
	name, err := p.Name()
	if err != nil {
		// Gone or inaccessible; skip the row entirely.
		return Info{}, false
	}

	info := Info{PID: p.Pid, Name: name}

	if statuses, err := p.Status(); err == nil {
		info.State = strings.Join(statuses, ",")
	}
	if user, err := p.Username(); err == nil {
		info.User = user
	}
	if cpu, err := p.CPUPercent(); err == nil {
		info.CPUPercent = cpu
	}
	if mem, err := p.MemoryPercent(); err == nil {
		info.MemPercent = float64(mem)
	}
	if memory, err := p.MemoryInfo(); err == nil && memory != nil {
		info.RSS = memory.RSS
		info.VMS = memory.VMS
	}
	if threads, err := p.NumThreads(); err == nil {
		info.Threads = threads
	}
	if created, err := p.CreateTime(); err == nil {
		info.CreateTime = created
	}
	if io, err := p.IOCounters(); err == nil && io != nil {
		info.ReadBytes = io.ReadBytes
		info.WriteBytes = io.WriteBytes
	}

	return info, true
}

func sortInfos(infos []Info, sortBy string, descending bool) {
	var less func(a, b Info) bool

	switch sortBy {
	case "cpu_percent":
		less = func(a, b Info) bool { return a.CPUPercent < b.CPUPercent }
	case "memory_percent":
		less = func(a, b Info) bool { return a.MemPercent < b.MemPercent }
	case "pid":
		less = func(a, b Info) bool { return a.PID < b.PID }
	case "threads":
		less = func(a, b Info) bool { return a.Threads < b.Threads }
	case "name":
		less = func(a, b Info) bool {
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}
	default:
		return
	}

	sort.SliceStable(infos, func(i, j int) bool {
		if descending {
			return less(infos[j], infos[i])
		}
		return less(infos[i], infos[j])
	})
}

// Get returns the table row for a single PID.
func Get(pid int32) (Info, bool) {
	p, err := newProcess(pid)
	if err != nil {
		return Info{}, false
	}

	return describe(p)
}

// Search returns the rows whose name contains the given term,
// case-insensitively.
func Search(name string) []Info {
	term := strings.ToLower(name)

	var matches []Info
	for _, info := range List("", false, 0) {
		if strings.Contains(strings.ToLower(info.Name), term) {
			matches = append(matches, info)
		}
	}

	return matches
}

// CountByState tallies processes per state, plus a "total" entry.
func CountByState() map[string]int {
	counts := make(map[string]int)

	total := 0
	for _, info := range List("", false, 0) {
		state := info.State
		if state == "" {
			state = "unknown"
		}
		counts[state]++
		total++
	}
	counts["total"] = total

	return counts
}

// Kill terminates the process with SIGTERM, or SIGKILL when force is set,
// waiting a bounded time for it to exit.
func Kill(pid int32, force bool) Result {
	p, err := newProcess(pid)
	if err != nil {
		return Result{
			Message: fmt.Sprintf("Process with PID %d does not exist.", pid),
			PID:     pid,
		}
	}

	name, _ := p.Name()

	action := "terminated (SIGTERM)"
	if force {
		action = "killed (SIGKILL)"
		err = p.Kill()
	} else {
		err = p.Terminate()
	}
	if err != nil {
		return Result{
			Message: fmt.Sprintf("Cannot terminate process %q (PID %d): %v. Try running with elevated privileges.", name, pid, err),
			PID:     pid,
		}
	}

	if !waitGone(p, killWait) && !force {
		return Result{
			Message: fmt.Sprintf("Process %q (PID %d) did not terminate gracefully. Retry with force.", name, pid),
			PID:     pid,
		}
	}

	return Result{
		OK:      true,
		Message: fmt.Sprintf("Process %q (PID %d) was %s successfully.", name, pid, action),
		PID:     pid,
	}
}

func waitGone(p *goprocess.Process, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		running, err := p.IsRunning()
		if err != nil || !running {
			return true
		}
		time.Sleep(100 * time.Millisecond)
	}

	return false
}
