//go:build unix

package target

import (
	"os/exec"
	"syscall"
)

// classifyExit implements the POSIX side of SPEC_FULL.md §4.G: exit by
// signal is a Crash carrying the signal number; otherwise Normal with the
// process's exit code.
func classifyExit(cmd *exec.Cmd, waitErr error) ExitStatus {
	ws, ok := cmd.ProcessState.Sys().(syscall.WaitStatus)
	if !ok {
		if waitErr != nil {
			return ExitStatus{Kind: Crash, Code: -1}
		}

		return ExitStatus{Kind: Normal, Code: cmd.ProcessState.ExitCode()}
	}

	if ws.Signaled() {
		return ExitStatus{Kind: Crash, Code: int(ws.Signal())}
	}

	return ExitStatus{Kind: Normal, Code: ws.ExitStatus()}
}
