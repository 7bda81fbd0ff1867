package sandbox

import (
	"os/exec"
	"runtime"
)

// Type identifies the enforcement primitive used for one invocation.
type Type int

// Enforcement primitives, one per supported platform.
const (
	TypeNone Type = iota
	TypeMacosSeatbelt
	TypeLinuxSeccomp
	TypeWindowsRestrictedToken
)

func (t Type) String() string {
	switch t {
	case TypeNone:
		return "none"
	case TypeMacosSeatbelt:
		return "macos-seatbelt"
	case TypeLinuxSeccomp:
		return "linux-seccomp"
	case TypeWindowsRestrictedToken:
		return "windows-restricted-token"
	default:
		return "unknown"
	}
}

// PlatformSandbox returns the native enforcement primitive for the current
// platform, or false if the platform has none available.
func PlatformSandbox() (Type, bool) {
	switch runtime.GOOS {
	case "darwin":
		if seatbeltAvailable() {
			return TypeMacosSeatbelt, true
		}
		return TypeNone, false
	case "linux":
		return TypeLinuxSeccomp, true
	case "windows":
		return TypeWindowsRestrictedToken, true
	default:
		return TypeNone, false
	}
}

// SelectType picks the enforcement primitive for a policy: none when the
// policy grants full access, otherwise the platform default.
func SelectType(policy Policy) Type {
	if policy.FullAccess() {
		return TypeNone
	}
	t, ok := PlatformSandbox()
	if !ok {
		return TypeNone
	}
	return t
}

func seatbeltAvailable() bool {
	_, err := exec.LookPath("sandbox-exec")
	return err == nil
}
