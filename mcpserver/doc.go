// Package mcpserver provides the Model Context Protocol (MCP) server implementation.
//
// The mcpserver package implements an MCP-compliant server that exposes the
// sandboxed execution engine as the execute_command tool. It uses the
// mark3labs/mcp-go library to handle the protocol details, streams live
// output deltas to the client as notifications, and reports the engine's
// outcome classification (ok, timeout, sandbox_denied, killed_by_signal,
// invalid_input, spawn_failure, io_error) in the tool result.
//
// The server supports both stdio and HTTP transports as configured by the
// application configuration.
//
// Usage:
//
//	server, err := mcpserver.New(config, logger, engine)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = server.ServeStdio() // or server.ServeHTTP()
package mcpserver
