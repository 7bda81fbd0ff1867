package exec

import (
	"errors"
	"fmt"
	"os"
	osexec "os/exec"
	"sort"

	"github.com/isdmx/execbox/sandbox"
)

// process owns one spawned child plus the read ends of its stdio pipes.
type process struct {
	cmd    *osexec.Cmd
	stdout *os.File
	stderr *os.File
}

// spawnChild starts the policy-wrapped command with stdout and stderr always
// redirected to pipes, never inherited. The command line is assumed to have
// been rewritten by the sandbox transformer already; this only plumbs stdio
// and hands back handles capable of wait and kill.
func spawnChild(env sandbox.Env) (*process, error) {
	cmd := osexec.Command(env.Program, env.Args...)
	if env.Arg0 != "" {
		cmd.Args = append([]string{env.Arg0}, env.Args...)
	}
	cmd.Dir = env.Cwd
	cmd.Env = flattenEnv(env.Env)
	setProcAttr(cmd)

	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return nil, &SpawnError{Program: env.Program, Err: err}
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		stdoutR.Close()
		stdoutW.Close()
		return nil, &SpawnError{Program: env.Program, Err: err}
	}
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	if err := cmd.Start(); err != nil {
		stdoutR.Close()
		stdoutW.Close()
		stderrR.Close()
		stderrW.Close()
		return nil, &SpawnError{Program: env.Program, Err: err}
	}

	// The child holds the write ends now; drop ours so reads hit EOF once
	// every writer in the child's tree is gone.
	stdoutW.Close()
	stderrW.Close()

	return &process{cmd: cmd, stdout: stdoutR, stderr: stderrR}, nil
}

// killGroup terminates the child's entire process group, then the direct
// child handle. A process that already exited is not an error.
func (p *process) killGroup() error {
	if p.cmd.Process == nil {
		return nil
	}
	if err := killProcessGroup(p.cmd.Process.Pid); err != nil {
		return err
	}
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

// waitStatus decodes the outcome of cmd.Wait into an exitStatus. Wait errors
// other than a nonzero exit are surfaced as I/O failures.
func waitStatus(cmd *osexec.Cmd, err error) (exitStatus, error) {
	if err != nil {
		var exitErr *osexec.ExitError
		if !errors.As(err, &exitErr) {
			return exitStatus{}, &IOError{Op: "wait", Err: err}
		}
	}
	return statusFromState(cmd.ProcessState), nil
}

// flattenEnv renders the environment map in deterministic order. A nil map
// yields an empty environment, not the parent's.
func flattenEnv(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(env))
	for _, k := range keys {
		out = append(out, fmt.Sprintf("%s=%s", k, env[k]))
	}
	return out
}
