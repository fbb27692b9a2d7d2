//go:build windows

package target

import "os/exec"

// classifyExit implements the Windows side of SPEC_FULL.md §4.G. The
// original implementation's documented caveat applies verbatim: a negative
// exit code is treated as a crash (exception code), which will
// misclassify any benign target that legitimately returns a negative
// status.
func classifyExit(cmd *exec.Cmd, _ error) ExitStatus {
	code := cmd.ProcessState.ExitCode()
	if code < 0 {
		return ExitStatus{Kind: Crash, Code: code}
	}

	return ExitStatus{Kind: Normal, Code: code}
}
