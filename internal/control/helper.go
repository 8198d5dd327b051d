package control

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"time"
)

const helperTimeout = 10 * time.Second

var lookPath = exec.LookPath

// Helper invokes the privileged sysmond-helper binary through pkexec when a
// direct sysfs write is denied.
type Helper struct {
	Path    string
	Timeout time.Duration
}

func NewHelper(path string) *Helper {
	return &Helper{Path: path, Timeout: helperTimeout}
}

// Run elevates with pkexec and passes args straight through to the helper.
// The helper's stdout (or stderr on failure) becomes the Result message.
func (h *Helper) Run(args ...string) Result {
	if h == nil || h.Path == "" {
		return failure("privileged helper not configured")
	}
	if _, err := os.Stat(h.Path); err != nil {
		return failure("privileged helper not found at %s", h.Path)
	}

	pkexec, err := lookPath("pkexec")
	if err != nil {
		return failure("pkexec not available to elevate privileges")
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, pkexec, append([]string{h.Path}, args...)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		message := strings.TrimSpace(stderr.String())
		if message == "" {
			message = err.Error()
		}
		return failure("%s", message)
	}

	message := strings.TrimSpace(stdout.String())
	if message == "" {
		message = "applied"
	}

	return Result{OK: true, Message: message}
}
