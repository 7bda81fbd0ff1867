// Package main is the entry point for the execbox MCP server.
//
// The execbox server exposes a sandboxed command-execution engine over the
// Model Context Protocol. It supports both stdio and HTTP transports and
// enforces the session sandbox policy on every executed command: isolation
// through the platform's native primitive, timeouts with process-group-wide
// termination, capped live output streaming, and best-effort classification
// of sandbox denials.
//
// The application uses Uber's fx framework for dependency injection and
// lifecycle management, with zap for structured logging and viper for
// configuration.
package main
