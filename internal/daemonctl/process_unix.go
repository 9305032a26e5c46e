//go:build unix

package daemonctl

import (
	"errors"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

func launchDetached(binary string, args []string) (int, error) {
	cmd := exec.Command(binary, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return 0, err
	}
	pid := cmd.Process.Pid
	return pid, cmd.Process.Release()
}

func terminateProcess(pid int) error {
	return unix.Kill(pid, unix.SIGTERM)
}

func killProcess(pid int) error {
	return unix.Kill(pid, unix.SIGKILL)
}

func processAlive(pid int) bool {
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}
