package sandbox

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Mode identifies the broad access level a policy grants.
type Mode string

// Supported policy modes.
const (
	ModeDangerFullAccess Mode = "danger-full-access"
	ModeReadOnly         Mode = "read-only"
	ModeWorkspaceWrite   Mode = "workspace-write"
)

// Policy is the declarative description of what an invocation may touch.
// The engine never interprets the details itself; it only checks FullAccess
// to decide whether any enforcement primitive is needed at all.
type Policy struct {
	Mode          Mode     `yaml:"mode"`
	WritableRoots []string `yaml:"writable_roots,omitempty"`
	NetworkAccess bool     `yaml:"network_access,omitempty"`
}

// DangerFullAccess returns a policy that disables sandboxing entirely.
func DangerFullAccess() Policy {
	return Policy{Mode: ModeDangerFullAccess}
}

// ReadOnly returns a policy that permits reads everywhere and writes nowhere.
func ReadOnly() Policy {
	return Policy{Mode: ModeReadOnly}
}

// WorkspaceWrite returns a policy that permits writes under the given roots.
func WorkspaceWrite(writableRoots []string, networkAccess bool) Policy {
	return Policy{
		Mode:          ModeWorkspaceWrite,
		WritableRoots: writableRoots,
		NetworkAccess: networkAccess,
	}
}

// FullAccess reports whether the policy grants unrestricted access.
func (p Policy) FullAccess() bool {
	return p.Mode == ModeDangerFullAccess
}

// Validate checks that the policy mode is one of the supported values.
func (p Policy) Validate() error {
	switch p.Mode {
	case ModeDangerFullAccess, ModeReadOnly, ModeWorkspaceWrite:
		return nil
	default:
		return fmt.Errorf("unsupported sandbox policy mode: %q", p.Mode)
	}
}

// Serialize renders the policy as text for out-of-process sandbox helpers.
func (p Policy) Serialize() (string, error) {
	out, err := yaml.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to serialize sandbox policy: %w", err)
	}
	return string(out), nil
}

// Permissions describes what a single invocation asks of the sandbox, on top
// of the session policy. The engine carries it through to the Transformer
// without interpreting it.
type Permissions string

// Supported permission requests.
const (
	PermissionsDefault   Permissions = "default"
	PermissionsEscalated Permissions = "escalated"
)
