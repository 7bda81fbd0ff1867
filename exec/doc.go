// Package exec is the sandboxed command-execution engine.
//
// Given a command, working directory, environment, and sandbox policy, the
// engine spawns the (already policy-wrapped) process with piped stdio, streams
// output deltas to an optional event sink while aggregating the full output,
// races natural completion against the configured expiration and an external
// interrupt, kills the whole process group when the race is lost, drains the
// collectors under a bounded guard, and classifies the outcome as success,
// timeout, killed-by-signal, or likely-sandbox-denied.
//
// Usage:
//
//	engine := exec.New(logger, manager)
//	out, err := engine.Execute(exec.Request{
//	    Command:    []string{"/bin/sh", "-c", "echo hi"},
//	    Cwd:        cwd,
//	    Expiration: exec.DefaultExpiration(),
//	}, policy, cwd, nil)
package exec
