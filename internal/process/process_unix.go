//go:build !windows

package process

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

func configure(cmd *exec.Cmd) {
	// Own process group so the signal reaches grandchildren too.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return unix.Kill(-cmd.Process.Pid, unix.SIGTERM)
	}
}

func interrupt(cmd *exec.Cmd) error {
	return unix.Kill(-cmd.Process.Pid, unix.SIGINT)
}
