package control

import (
	"os"
	"strconv"

	"codeberg.org/halvard/sysmond/internal/sysinfo"
)

// Fans exposes hwmon fan readings and PWM control.
type Fans struct {
	HwmonRoot string
	UsePkexec bool
	Helper    *Helper
}

func NewFans(helper *Helper, usePkexec bool) *Fans {
	return &Fans{
		HwmonRoot: "/sys/class/hwmon",
		UsePkexec: usePkexec,
		Helper:    helper,
	}
}

// List enumerates every fan known to hwmon, with its paired PWM node when
// one exists.
func (f *Fans) List() []sysinfo.FanStat {
	return sysinfo.CollectFans(f.HwmonRoot)
}

// SetPWM writes a raw PWM duty value to the given hwmon node. Values are
// the kernel's 0-255 range.
func (f *Fans) SetPWM(path string, value int) Result {
	if path == "" {
		return failure("no PWM node specified")
	}
	if value < 0 || value > 255 {
		return failure("PWM value %d out of range (0-255)", value)
	}

	err := writeValue(path, strconv.Itoa(value))
	if err == nil {
		return success("PWM %s set to %d", path, value)
	}

	if os.IsPermission(err) && f.UsePkexec {
		return f.Helper.Run("--pwm", path+"="+strconv.Itoa(value))
	}

	return failure("could not write %s: %v", path, err)
}
