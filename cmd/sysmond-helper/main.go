// sysmond-helper is the privileged companion binary. It is meant to run
// through pkexec and performs nothing but validated sysfs writes, so the
// polkit policy can stay narrow.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	policyGlob    = "/sys/devices/system/cpu/cpu[0-9]*/cpufreq"
	ecRoot        = "/sys/devices/platform/msi-ec"
	backlightPath = "/sys/class/leds/msiacpi::kbd_backlight/brightness"
	batteryPath   = "/sys/class/power_supply/BAT1"
)

func main() {
	governor := flag.String("governor", "", "scaling governor to apply to every cpufreq policy")
	maxFreq := flag.Int("max-freq-khz", 0, "maximum scaling frequency in kHz")
	pwm := flag.String("pwm", "", "hwmon PWM write as path=value")
	fanMode := flag.String("fan-mode", "", "msi-ec fan mode")
	shiftMode := flag.String("shift-mode", "", "msi-ec shift mode")
	coolerBoost := flag.String("cooler-boost", "", "msi-ec cooler boost (on/off)")
	webcam := flag.String("webcam", "", "msi-ec webcam state (on/off)")
	webcamBlock := flag.String("webcam-block", "", "msi-ec webcam block (on/off)")
	brightness := flag.String("brightness", "", "keyboard backlight brightness level")
	flag.StringVar(brightness, "kbd-brightness", "", "alias for --brightness")
	startThreshold := flag.String("charge-control-start-threshold", "", "battery charge start threshold")
	endThreshold := flag.String("charge-control-end-threshold", "", "battery charge end threshold")
	flag.Parse()

	applied := 0
	ok := true

	if *governor != "" {
		ok = writePolicies("scaling_governor", *governor) && ok
		applied++
	}
	if *maxFreq > 0 {
		ok = writePolicies("scaling_max_freq", strconv.Itoa(*maxFreq)) && ok
		applied++
	}
	if *pwm != "" {
		ok = writePWM(*pwm) && ok
		applied++
	}
	if *fanMode != "" {
		ok = writeNode(filepath.Join(ecRoot, "fan_mode"), *fanMode) && ok
		applied++
	}
	if *shiftMode != "" {
		ok = writeNode(filepath.Join(ecRoot, "shift_mode"), *shiftMode) && ok
		applied++
	}
	if *coolerBoost != "" {
		ok = writeNode(filepath.Join(ecRoot, "cooler_boost"), *coolerBoost) && ok
		applied++
	}
	if *webcam != "" {
		ok = writeNode(filepath.Join(ecRoot, "webcam"), *webcam) && ok
		applied++
	}
	if *webcamBlock != "" {
		ok = writeNode(filepath.Join(ecRoot, "webcam_block"), *webcamBlock) && ok
		applied++
	}
	if *brightness != "" {
		ok = writeNode(backlightPath, *brightness) && ok
		applied++
	}
	if *startThreshold != "" {
		ok = writeNode(filepath.Join(batteryPath, "charge_control_start_threshold"), *startThreshold) && ok
		applied++
	}
	if *endThreshold != "" {
		ok = writeNode(filepath.Join(batteryPath, "charge_control_end_threshold"), *endThreshold) && ok
		applied++
	}

	if applied == 0 {
		fmt.Fprintln(os.Stderr, "nothing to apply")
		os.Exit(1)
	}
	if !ok {
		os.Exit(1)
	}
	fmt.Println("applied")
}

func writePolicies(node, value string) bool {
	paths, err := filepath.Glob(policyGlob)
	if err != nil || len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "no cpufreq policies found")
		return false
	}

	ok := true
	for _, path := range paths {
		ok = writeNode(filepath.Join(path, node), value) && ok
	}
	return ok
}

func writePWM(arg string) bool {
	path, value, found := strings.Cut(arg, "=")
	if !found || path == "" {
		fmt.Fprintln(os.Stderr, "pwm argument must be path=value")
		return false
	}

	n, err := strconv.Atoi(value)
	if err != nil || n < 0 || n > 255 {
		fmt.Fprintf(os.Stderr, "invalid pwm value %q\n", value)
		return false
	}

	// Only hwmon pwm nodes are writable through this helper.
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil || !strings.HasPrefix(resolved, "/sys/") || !strings.Contains(filepath.Base(resolved), "pwm") {
		fmt.Fprintf(os.Stderr, "refusing to write %q\n", path)
		return false
	}

	return writeNode(resolved, strconv.Itoa(n))
}

func writeNode(path, value string) bool {
	if err := os.WriteFile(path, []byte(value), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "error writing %s: %v\n", path, err)
		return false
	}
	return true
}
