package control

import (
	"path/filepath"
	"strconv"
	"strings"
)

const defaultPolicyGlob = "/sys/devices/system/cpu/cpu[0-9]*/cpufreq"

// GovernorInfo describes the first cpufreq policy, which stands in for the
// whole package on the systems this targets.
type GovernorInfo struct {
	Current    string
	Available  []string
	MinFreqKHz int
	MaxFreqKHz int
}

// Power reads and writes CPU scaling governors and frequency limits.
type Power struct {
	PolicyGlob string
	UsePkexec  bool
	Helper     *Helper
}

func NewPower(helper *Helper, usePkexec bool) *Power {
	return &Power{
		PolicyGlob: defaultPolicyGlob,
		UsePkexec:  usePkexec,
		Helper:     helper,
	}
}

// Governors returns the current and available governors plus the scaling
// frequency bounds. Missing cpufreq support yields the zero value.
func (p *Power) Governors() GovernorInfo {
	paths, err := filepath.Glob(p.PolicyGlob)
	if err != nil || len(paths) == 0 {
		return GovernorInfo{}
	}

	info := GovernorInfo{
		Current:   readString(filepath.Join(paths[0], "scaling_governor")),
		Available: readList(filepath.Join(paths[0], "scaling_available_governors")),
	}
	info.MinFreqKHz, _ = readInt(filepath.Join(paths[0], "scaling_min_freq"))
	info.MaxFreqKHz, _ = readInt(filepath.Join(paths[0], "scaling_max_freq"))

	return info
}

// SetGovernor applies the governor to every cpufreq policy, validating it
// against the advertised list first.
func (p *Power) SetGovernor(governor string) Result {
	if governor == "" {
		return failure("no governor specified")
	}

	paths, err := filepath.Glob(p.PolicyGlob)
	if err != nil || len(paths) == 0 {
		return failure("no cpufreq policies found")
	}

	if available := p.Governors().Available; len(available) > 0 && !contains(available, governor) {
		return failure("governor %q not supported; available: %s", governor, strings.Join(available, ", "))
	}

	failed := 0
	for _, path := range paths {
		if err := writeValue(filepath.Join(path, "scaling_governor"), governor); err != nil {
			failed++
		}
	}

	if failed > 0 {
		if p.UsePkexec {
			return p.Helper.Run("--governor", governor)
		}
		return failure("could not write %d of %d cpufreq policies; permission required", failed, len(paths))
	}

	return success("governor set to %q", governor)
}

// SetMaxFreq caps the scaling frequency of every policy at khz.
func (p *Power) SetMaxFreq(khz int) Result {
	if khz <= 0 {
		return failure("invalid frequency %d kHz", khz)
	}

	paths, err := filepath.Glob(p.PolicyGlob)
	if err != nil || len(paths) == 0 {
		return failure("no cpufreq policies found")
	}

	failed := 0
	for _, path := range paths {
		if err := writeValue(filepath.Join(path, "scaling_max_freq"), strconv.Itoa(khz)); err != nil {
			failed++
		}
	}

	if failed > 0 {
		if p.UsePkexec {
			return p.Helper.Run("--max-freq-khz", strconv.Itoa(khz))
		}
		return failure("could not write %d of %d cpufreq policies; permission required", failed, len(paths))
	}

	return success("maximum frequency set to %d kHz", khz)
}
