//go:build windows

package process

import "os/exec"

func configure(cmd *exec.Cmd) {
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return cmd.Process.Kill()
	}
}

// Windows has no console interrupt for detached children.
func interrupt(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}
