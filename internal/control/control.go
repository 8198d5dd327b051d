// Package control exposes one-shot write paths to hardware and OS settings:
// CPU governor and frequency limits, hwmon fan PWM, the MSI embedded
// controller, keyboard backlight, battery charge thresholds and OpenRGB
// presets. Every operation returns a Result; failures never surface as
// errors, and each call is independent and safe to retry.
package control

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Result is the outcome of a control-surface write. Message is shown to the
// operator verbatim.
type Result struct {
	OK      bool
	Message string
}

func success(format string, args ...any) Result {
	return Result{OK: true, Message: fmt.Sprintf(format, args...)}
}

func failure(format string, args ...any) Result {
	return Result{Message: fmt.Sprintf(format, args...)}
}

func writeValue(path, value string) error {
	return os.WriteFile(path, []byte(value), 0o644)
}

func readString(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}

	return strings.TrimSpace(string(data))
}

func readInt(path string) (int, bool) {
	value, err := strconv.Atoi(readString(path))
	if err != nil {
		return 0, false
	}

	return value, true
}

func readList(path string) []string {
	content := readString(path)
	if content == "" {
		return nil
	}

	return strings.Fields(content)
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}

	return false
}
