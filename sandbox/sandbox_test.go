package sandbox

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestPolicyValidate(t *testing.T) {
	assert.NoError(t, DangerFullAccess().Validate())
	assert.NoError(t, ReadOnly().Validate())
	assert.NoError(t, WorkspaceWrite([]string{"/tmp"}, true).Validate())
	assert.Error(t, Policy{Mode: "chaos"}.Validate())
	assert.Error(t, Policy{}.Validate())
}

func TestPolicyFullAccess(t *testing.T) {
	assert.True(t, DangerFullAccess().FullAccess())
	assert.False(t, ReadOnly().FullAccess())
	assert.False(t, WorkspaceWrite(nil, false).FullAccess())
}

func TestPolicySerialize(t *testing.T) {
	text, err := WorkspaceWrite([]string{"/workspace"}, true).Serialize()
	require.NoError(t, err)
	assert.Contains(t, text, "mode: workspace-write")
	assert.Contains(t, text, "/workspace")
	assert.Contains(t, text, "network_access: true")
}

func TestSelectType(t *testing.T) {
	assert.Equal(t, TypeNone, SelectType(DangerFullAccess()))

	got := SelectType(ReadOnly())
	switch runtime.GOOS {
	case "linux":
		assert.Equal(t, TypeLinuxSeccomp, got)
	case "windows":
		assert.Equal(t, TypeWindowsRestrictedToken, got)
	default:
		// Darwin depends on sandbox-exec being installed; elsewhere there is
		// no primitive at all.
		assert.Contains(t, []Type{TypeNone, TypeMacosSeatbelt}, got)
	}
}

func TestTypeString(t *testing.T) {
	assert.Equal(t, "none", TypeNone.String())
	assert.Equal(t, "macos-seatbelt", TypeMacosSeatbelt.String())
	assert.Equal(t, "linux-seccomp", TypeLinuxSeccomp.String())
	assert.Equal(t, "windows-restricted-token", TypeWindowsRestrictedToken.String())
	assert.Equal(t, "unknown", Type(99).String())
}

func TestManagerTransform(t *testing.T) {
	manager := NewManager(zaptest.NewLogger(t))
	spec := Spec{
		Program:       "git",
		Args:          []string{"status"},
		Cwd:           "/repo",
		Env:           map[string]string{"PATH": "/usr/bin"},
		Permissions:   PermissionsEscalated,
		Justification: "inspect repository state",
	}

	t.Run("NonePassesThrough", func(t *testing.T) {
		env, err := manager.Transform(spec, DangerFullAccess(), TypeNone, "/repo", "")
		require.NoError(t, err)
		assert.Equal(t, spec, env.Spec)
		assert.Equal(t, TypeNone, env.Sandbox)
	})

	t.Run("WindowsPassesThrough", func(t *testing.T) {
		env, err := manager.Transform(spec, ReadOnly(), TypeWindowsRestrictedToken, "/repo", "")
		require.NoError(t, err)
		assert.Equal(t, spec, env.Spec)
		assert.Equal(t, TypeWindowsRestrictedToken, env.Sandbox)
	})

	t.Run("SeatbeltWrapsCommand", func(t *testing.T) {
		env, err := manager.Transform(spec, WorkspaceWrite([]string{"/scratch"}, false), TypeMacosSeatbelt, "/repo", "")
		require.NoError(t, err)
		assert.Equal(t, "/usr/bin/sandbox-exec", env.Program)
		require.GreaterOrEqual(t, len(env.Args), 5)
		assert.Equal(t, "-p", env.Args[0])
		assert.Contains(t, env.Args[1], "(deny default)")
		assert.Contains(t, env.Args[1], `(allow file-write* (subpath "/scratch"))`)
		assert.Contains(t, env.Args[1], `(allow file-write* (subpath "/repo"))`)
		assert.Contains(t, env.Args[1], "(deny network*)")
		assert.Equal(t, []string{"--", "git", "status"}, env.Args[2:])
		assert.Equal(t, "/repo", env.Cwd)
		assert.Equal(t, PermissionsEscalated, env.Permissions)
		assert.Equal(t, "inspect repository state", env.Justification)
	})

	t.Run("SeatbeltReadOnlyGetsNoWritableRoots", func(t *testing.T) {
		env, err := manager.Transform(spec, ReadOnly(), TypeMacosSeatbelt, "/repo", "")
		require.NoError(t, err)
		assert.NotContains(t, env.Args[1], "file-write")
	})

	t.Run("SeccompRequiresHelper", func(t *testing.T) {
		_, err := manager.Transform(spec, ReadOnly(), TypeLinuxSeccomp, "/repo", "")
		assert.ErrorIs(t, err, ErrMissingLinuxHelper)
	})

	t.Run("SeccompReparentsUnderHelper", func(t *testing.T) {
		env, err := manager.Transform(spec, ReadOnly(), TypeLinuxSeccomp, "/repo", "/opt/sandbox-helper")
		require.NoError(t, err)
		assert.Equal(t, "/opt/sandbox-helper", env.Program)
		assert.Equal(t, "--policy", env.Args[0])
		assert.Contains(t, env.Args[1], "mode: read-only")
		assert.Equal(t, []string{"--", "git", "status"}, env.Args[2:])
		assert.Equal(t, PermissionsEscalated, env.Permissions)
		assert.Equal(t, "inspect repository state", env.Justification)
	})

	t.Run("SeatbeltDoesNotMutatePolicyRoots", func(t *testing.T) {
		roots := make([]string, 1, 4)
		roots[0] = "/scratch"
		policy := WorkspaceWrite(roots, false)

		_, err := manager.Transform(spec, policy, TypeMacosSeatbelt, "/repo", "")
		require.NoError(t, err)

		assert.Equal(t, []string{"/scratch"}, policy.WritableRoots)
		assert.Equal(t, "", roots[:cap(roots)][1])
	})

	t.Run("UnknownTypeRejected", func(t *testing.T) {
		_, err := manager.Transform(spec, ReadOnly(), Type(99), "/repo", "")
		assert.Error(t, err)
	})
}
