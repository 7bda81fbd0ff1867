// Package sandbox models the isolation applied to executed commands.
//
// The sandbox package defines the declarative Policy describing what
// filesystem and network access an invocation may use, detects which
// enforcement primitive the current platform provides (Seatbelt on macOS,
// seccomp/Landlock on Linux, restricted tokens on Windows), and compiles a
// command into its platform-specific wrapped invocation through the Manager.
//
// The execution engine in package exec treats the policy as opaque: it asks
// SelectType which primitive applies and hands the command to a Transformer
// for rewriting before spawning it.
package sandbox
