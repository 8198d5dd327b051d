package control

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	defaultECRoot        = "/sys/devices/platform/msi-ec"
	defaultBacklightPath = "/sys/class/leds/msiacpi::kbd_backlight/brightness"
	defaultBatteryPath   = "/sys/class/power_supply/BAT1"
)

// ECInfo is the state of the embedded-controller knobs the msi-ec driver
// exposes. Fields for absent nodes stay empty.
type ECInfo struct {
	FanMode             string
	ShiftMode           string
	CoolerBoost         string
	AvailableFanModes   []string
	AvailableShiftModes []string
}

// BatteryInfo reports charge state and the charge-control thresholds.
type BatteryInfo struct {
	Capacity       string
	Status         string
	StartThreshold string
	EndThreshold   string
}

// EC drives the msi-ec platform driver sysfs nodes.
type EC struct {
	Root          string
	BacklightPath string
	BatteryPath   string
	UsePkexec     bool
	Helper        *Helper
}

func NewEC(helper *Helper, usePkexec bool) *EC {
	return &EC{
		Root:          defaultECRoot,
		BacklightPath: defaultBacklightPath,
		BatteryPath:   defaultBatteryPath,
		UsePkexec:     usePkexec,
		Helper:        helper,
	}
}

// Available reports whether the msi-ec driver is loaded.
func (e *EC) Available() bool {
	info, err := os.Stat(e.Root)
	return err == nil && info.IsDir()
}

// Info reads the current EC state. Absent nodes produce empty fields.
func (e *EC) Info() ECInfo {
	return ECInfo{
		FanMode:             readString(filepath.Join(e.Root, "fan_mode")),
		ShiftMode:           readString(filepath.Join(e.Root, "shift_mode")),
		CoolerBoost:         readString(filepath.Join(e.Root, "cooler_boost")),
		AvailableFanModes:   readList(filepath.Join(e.Root, "available_fan_modes")),
		AvailableShiftModes: readList(filepath.Join(e.Root, "available_shift_modes")),
	}
}

// SetFanMode writes fan_mode after validating against available_fan_modes.
func (e *EC) SetFanMode(mode string) Result {
	return e.writeMode("fan_mode", mode, "available_fan_modes")
}

// SetShiftMode writes shift_mode after validating against
// available_shift_modes.
func (e *EC) SetShiftMode(mode string) Result {
	return e.writeMode("shift_mode", mode, "available_shift_modes")
}

// SetCoolerBoost toggles the cooler boost node. Accepts on/off in the
// common boolean spellings.
func (e *EC) SetCoolerBoost(value string) Result {
	path := filepath.Join(e.Root, "cooler_boost")
	if !exists(path) {
		return failure("cooler_boost not supported")
	}

	switch strings.ToLower(value) {
	case "1", "on", "true":
		value = "on"
	case "0", "off", "false":
		value = "off"
	}

	return e.write(path, value)
}

// SetWebcam enables or disables the webcam through the EC.
func (e *EC) SetWebcam(enable bool) Result {
	path := filepath.Join(e.Root, "webcam")
	if !exists(path) {
		return failure("webcam not supported")
	}
	return e.write(path, onOff(enable))
}

// SetWebcamBlock sets the hard webcam block.
func (e *EC) SetWebcamBlock(enable bool) Result {
	path := filepath.Join(e.Root, "webcam_block")
	if !exists(path) {
		return failure("webcam_block not supported")
	}
	return e.write(path, onOff(enable))
}

// KeyboardBacklight returns the current brightness level, or "" when the
// LED class device is absent.
func (e *EC) KeyboardBacklight() string {
	return readString(e.BacklightPath)
}

// SetKeyboardBacklight sets the keyboard backlight brightness level.
func (e *EC) SetKeyboardBacklight(level int) Result {
	if !exists(e.BacklightPath) {
		return failure("keyboard backlight not supported")
	}
	if level < 0 {
		return failure("invalid brightness level %d", level)
	}
	return e.write(e.BacklightPath, strconv.Itoa(level))
}

// Battery reads charge state and thresholds. Returns the zero value when
// the battery device is absent.
func (e *EC) Battery() BatteryInfo {
	if !exists(e.BatteryPath) {
		return BatteryInfo{}
	}
	return BatteryInfo{
		Capacity:       readString(filepath.Join(e.BatteryPath, "capacity")),
		Status:         readString(filepath.Join(e.BatteryPath, "status")),
		StartThreshold: readString(filepath.Join(e.BatteryPath, "charge_control_start_threshold")),
		EndThreshold:   readString(filepath.Join(e.BatteryPath, "charge_control_end_threshold")),
	}
}

// SetBatteryThresholds writes the charge-control start and end thresholds.
// Negative values skip the corresponding write.
func (e *EC) SetBatteryThresholds(start, end int) Result {
	if !exists(e.BatteryPath) {
		return failure("battery device not found")
	}

	ok := true
	var msgs []string
	if start >= 0 {
		res := e.write(filepath.Join(e.BatteryPath, "charge_control_start_threshold"), strconv.Itoa(start))
		ok = ok && res.OK
		msgs = append(msgs, res.Message)
	}
	if end >= 0 {
		res := e.write(filepath.Join(e.BatteryPath, "charge_control_end_threshold"), strconv.Itoa(end))
		ok = ok && res.OK
		msgs = append(msgs, res.Message)
	}

	msg := strings.Join(msgs, " | ")
	if msg == "" {
		msg = "no thresholds specified"
	}
	return Result{OK: ok, Message: msg}
}

func (e *EC) writeMode(node, value, availableNode string) Result {
	path := filepath.Join(e.Root, node)
	if !exists(path) {
		return failure("%s not supported on this machine", node)
	}

	if available := readList(filepath.Join(e.Root, availableNode)); len(available) > 0 && !contains(available, value) {
		return failure("value %q not supported; available: %s", value, strings.Join(available, ", "))
	}

	return e.write(path, value)
}

func (e *EC) write(path, value string) Result {
	err := writeValue(path, value)
	if err == nil {
		return success("%s set to %s", filepath.Base(path), value)
	}

	if os.IsPermission(err) {
		if e.UsePkexec {
			return e.Helper.Run("--"+strings.ReplaceAll(filepath.Base(path), "_", "-"), value)
		}
		return failure("permission denied writing %s", filepath.Base(path))
	}

	return failure("could not write %s: %v", filepath.Base(path), err)
}

func onOff(enable bool) string {
	if enable {
		return "on"
	}
	return "off"
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
