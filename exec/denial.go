package exec

import (
	"slices"
	"strings"

	"github.com/isdmx/execbox/sandbox"
)

// sigsysCode is SIGSYS on Linux, the signal seccomp delivers on a blocked
// syscall. The rule below only applies to the Linux primitive.
const sigsysCode = 31

var sandboxDeniedKeywords = []string{
	"operation not permitted",
	"permission denied",
	"read-only file system",
	"seccomp",
	"sandbox",
	"landlock",
	"failed to write file",
}

// Well-known shell exit codes that are not sandbox failures.
// 2: misuse of shell builtins, 126: permission denied, 127: command not found.
var quickRejectExitCodes = []int{2, 126, 127}

// likelySandboxDenied guesses whether the command failed because the sandbox
// rejected it. There is no fully deterministic way to tell: a command may
// print "permission denied" for its own reasons, or fail inside the sandbox
// without any recognizable symptom. The check is conservative: keyword scan
// first, then well-known failure exit codes, then the seccomp signal
// convention. The keyword scan deliberately runs before the quick-reject
// codes, matching long-standing behavior.
func likelySandboxDenied(sandboxType sandbox.Type, out *Output) bool {
	if sandboxType == sandbox.TypeNone || out.ExitCode == 0 {
		return false
	}

	for _, section := range []string{out.Stderr, out.Stdout, out.Aggregated} {
		lower := strings.ToLower(section)
		for _, needle := range sandboxDeniedKeywords {
			if strings.Contains(lower, needle) {
				return true
			}
		}
	}

	if slices.Contains(quickRejectExitCodes, out.ExitCode) {
		return false
	}

	if sandboxType == sandbox.TypeLinuxSeccomp && out.ExitCode == exitCodeSignalBase+sigsysCode {
		return true
	}

	return false
}
