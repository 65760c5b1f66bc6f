//go:build unix

package availability

import (
	"os/exec"
	"syscall"
)

// killProcessGroup starts the script in its own process group and kills the
// whole group on cancellation, so forked children go down with it.
func killProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
