// Package process starts external tools so that cancelling their context
// terminates the whole process tree: SIGTERM to the process group first,
// then a hard kill once the grace period expires.
package process

import (
	"context"
	"os/exec"
	"time"
)

// DefaultGracePeriod is how long a cancelled tool may take to exit.
const DefaultGracePeriod = 3 * time.Second

// Command returns a command bound to ctx. When ctx ends, the child's process
// group is asked to terminate and is killed after grace.
func Command(ctx context.Context, grace time.Duration, name string, args ...string) *exec.Cmd {
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec // running external tools is the purpose of this package
	configure(cmd)
	cmd.WaitDelay = grace
	return cmd
}

// Interrupt asks a running command to stop gracefully.
func Interrupt(cmd *exec.Cmd) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	return interrupt(cmd)
}
