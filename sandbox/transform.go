package sandbox

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrMissingLinuxHelper is returned when the Linux seccomp primitive is
// selected but no helper executable has been configured to enforce it.
var ErrMissingLinuxHelper = errors.New("linux sandbox helper executable not provided")

// Spec is one command invocation before sandbox rewriting. Permissions and
// Justification describe what the invocation asks of the sandbox; Transformer
// implementations may use them to escalate or audit, the engine never
// interprets them.
type Spec struct {
	Program       string
	Args          []string
	Arg0          string
	Cwd           string
	Env           map[string]string
	Permissions   Permissions
	Justification string
}

// Env is the invocation after rewriting: the argv the engine actually spawns
// plus the primitive that will enforce the policy on it.
type Env struct {
	Spec
	Sandbox Type
}

// Transformer compiles a command spec into its platform-specific wrapped
// invocation. The execution engine treats implementations as opaque.
type Transformer interface {
	Transform(spec Spec, policy Policy, sandboxType Type, sandboxCwd string, helperPath string) (Env, error)
}

// Manager is the default Transformer.
type Manager struct {
	logger *zap.Logger
}

// NewManager creates a Manager.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{logger: logger}
}

// Transform wraps the command for the selected primitive. Seatbelt
// invocations are routed through sandbox-exec with a profile compiled from
// the policy; seccomp invocations are re-parented under the configured helper
// executable, which installs the filters before exec'ing the real command.
// The restricted-token primitive needs no argv rewriting: enforcement happens
// in the engine's capture path.
func (m *Manager) Transform(spec Spec, policy Policy, sandboxType Type, sandboxCwd string, helperPath string) (Env, error) {
	switch sandboxType {
	case TypeNone, TypeWindowsRestrictedToken:
		return Env{Spec: spec, Sandbox: sandboxType}, nil

	case TypeMacosSeatbelt:
		profile := seatbeltProfile(policy, sandboxCwd)
		wrapped := spec
		wrapped.Program = "/usr/bin/sandbox-exec"
		wrapped.Args = append([]string{"-p", profile, "--", spec.Program}, spec.Args...)
		wrapped.Arg0 = ""
		m.logger.Debug("wrapped command with seatbelt", zap.String("program", spec.Program))
		return Env{Spec: wrapped, Sandbox: sandboxType}, nil

	case TypeLinuxSeccomp:
		if helperPath == "" {
			return Env{}, ErrMissingLinuxHelper
		}
		serialized, err := policy.Serialize()
		if err != nil {
			return Env{}, err
		}
		wrapped := spec
		wrapped.Program = helperPath
		wrapped.Args = append([]string{"--policy", serialized, "--", spec.Program}, spec.Args...)
		wrapped.Arg0 = ""
		m.logger.Debug("wrapped command with linux sandbox helper",
			zap.String("helper", helperPath),
			zap.String("program", spec.Program))
		return Env{Spec: wrapped, Sandbox: sandboxType}, nil

	default:
		return Env{}, fmt.Errorf("unsupported sandbox type: %s", sandboxType)
	}
}

// seatbeltProfile renders a minimal Seatbelt policy. Writes are confined to
// the writable roots plus the sandbox cwd; network access follows the policy.
func seatbeltProfile(policy Policy, sandboxCwd string) string {
	profile := "(version 1)\n(deny default)\n(allow process*)\n(allow sysctl*)\n(allow signal)\n(allow file-read*)\n"
	writable := append([]string(nil), policy.WritableRoots...)
	if policy.Mode == ModeWorkspaceWrite && sandboxCwd != "" {
		writable = append(writable, sandboxCwd)
	}
	for _, root := range writable {
		profile += fmt.Sprintf("(allow file-write* (subpath %q))\n", root)
	}
	if policy.NetworkAccess {
		profile += "(allow network*)\n"
	} else {
		profile += "(deny network*)\n"
	}
	return profile
}
