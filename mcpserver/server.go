package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/isdmx/execbox/config"
	"github.com/isdmx/execbox/exec"
	"github.com/isdmx/execbox/sandbox"
)

// Executor is the slice of the execution engine the server depends on.
type Executor interface {
	Execute(req exec.Request, policy sandbox.Policy, sandboxCwd string, stream *exec.StdoutStream) (*exec.Output, error)
}

// MCPServer represents the MCP server
type MCPServer struct {
	config    *config.Config
	logger    *zap.Logger
	executor  Executor
	sessionID string
	mcpServer *server.MCPServer
}

// New creates a new MCPServer
func New(cfg *config.Config, logger *zap.Logger, executor Executor) (*MCPServer, error) {
	s := &MCPServer{
		config:    cfg,
		logger:    logger,
		executor:  executor,
		sessionID: uuid.NewString(),
	}

	// Log configuration parameters on startup
	logger.Info("configuration loaded",
		zap.String("server.transport", s.config.Server.Transport),
		zap.Int("server.http_port", s.config.Server.HTTPPort),
		zap.Int("exec.default_timeout_ms", s.config.Exec.DefaultTimeoutMS),
		zap.String("sandbox.mode", s.config.Sandbox.Mode),
		zap.Strings("sandbox.writable_roots", s.config.Sandbox.WritableRoots),
		zap.Bool("sandbox.network_access", s.config.Sandbox.NetworkAccess),
	)

	s.mcpServer = server.NewMCPServer("execbox", "0.1.0")

	s.registerExecuteCommandTool()

	return s, nil
}

// registerExecuteCommandTool registers the execute_command tool
func (s *MCPServer) registerExecuteCommandTool() {
	tool := mcp.Tool{
		Name:        "execute_command",
		Description: "Execute a command under the session sandbox policy",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"command": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Program followed by its arguments",
				},
				"cwd": map[string]any{
					"type":        "string",
					"description": "Working directory for the command (optional)",
				},
				"env": map[string]any{
					"type":        "object",
					"description": "Environment variables for the command (optional; inherits the server environment when omitted)",
				},
				"timeout_ms": map[string]any{
					"type":        "number",
					"description": "Execution timeout in milliseconds (optional)",
				},
				"justification": map[string]any{
					"type":        "string",
					"description": "Why this command needs to run (optional)",
				},
			},
			Required: []string{"command"},
		},
	}

	s.mcpServer.AddTool(tool, s.handleExecuteCommand)
}

// execResult is the tool's JSON payload.
type execResult struct {
	Status     string `json:"status"`
	ExitCode   int    `json:"exit_code"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	Aggregated string `json:"aggregated_output"`
	DurationMS int64  `json:"duration_ms"`
	TimedOut   bool   `json:"timed_out"`
	Signal     int    `json:"signal,omitempty"`
}

// handleExecuteCommand handles the execute_command tool
func (s *MCPServer) handleExecuteCommand(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	command, err := stringSlice(args["command"])
	if err != nil {
		return nil, fmt.Errorf("command parameter is invalid: %w", err)
	}

	cwd := request.GetString("cwd", "")
	if cwd == "" {
		if cwd, err = os.Getwd(); err != nil {
			return nil, fmt.Errorf("failed to resolve working directory: %w", err)
		}
	}

	env, err := stringMap(args["env"])
	if err != nil {
		return nil, fmt.Errorf("env parameter is invalid: %w", err)
	}
	if env == nil {
		env = inheritedEnv()
	}

	expiration := exec.FixedTimeout(s.config.DefaultTimeout())
	if raw, ok := args["timeout_ms"].(float64); ok {
		ms := int64(raw)
		expiration = exec.TimeoutFromMillis(&ms)
	}

	callID := uuid.NewString()
	s.logger.Info("command execution requested",
		zap.String("call_id", callID),
		zap.Strings("command", command),
		zap.String("cwd", cwd))

	stream := &exec.StdoutStream{
		SessionID: s.sessionID,
		CallID:    callID,
		Sink: &notificationSink{
			ctx:    ctx,
			server: s.mcpServer,
			logger: s.logger,
		},
	}

	out, execErr := s.executor.Execute(exec.Request{
		Command:       command,
		Cwd:           cwd,
		Env:           env,
		Expiration:    expiration,
		Permissions:   sandbox.PermissionsDefault,
		Justification: request.GetString("justification", ""),
	}, s.config.Policy(), cwd, stream)

	result, isError := classify(out, execErr)
	if isError {
		s.logger.Error("command execution failed",
			zap.String("call_id", callID),
			zap.String("status", result.Status),
			zap.Error(execErr))
	} else {
		s.logger.Info("command execution completed",
			zap.String("call_id", callID),
			zap.Int("exit_code", result.ExitCode),
			zap.Int("stdout_len", len(result.Stdout)),
			zap.Int("stderr_len", len(result.Stderr)))
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: string(payload),
			},
		},
		IsError: isError,
	}, nil
}

// classify maps the engine outcome onto the tool payload. Failure variants
// that carry output keep it so the caller can inspect what happened.
func classify(out *exec.Output, execErr error) (execResult, bool) {
	if execErr == nil {
		return execResult{
			Status:     "ok",
			ExitCode:   out.ExitCode,
			Stdout:     out.Stdout,
			Stderr:     out.Stderr,
			Aggregated: out.Aggregated,
			DurationMS: out.Duration.Milliseconds(),
			TimedOut:   out.TimedOut,
		}, false
	}

	var timeoutErr *exec.TimeoutError
	var deniedErr *exec.SandboxDeniedError
	var signalErr *exec.SignalError
	var invalidErr *exec.InvalidInputError
	var spawnErr *exec.SpawnError

	switch {
	case errors.As(execErr, &timeoutErr):
		o := timeoutErr.Output
		return execResult{
			Status:     "timeout",
			ExitCode:   o.ExitCode,
			Stdout:     o.Stdout,
			Stderr:     o.Stderr,
			Aggregated: o.Aggregated,
			DurationMS: o.Duration.Milliseconds(),
			TimedOut:   o.TimedOut,
		}, true
	case errors.As(execErr, &deniedErr):
		o := deniedErr.Output
		return execResult{
			Status:     "sandbox_denied",
			ExitCode:   o.ExitCode,
			Stdout:     o.Stdout,
			Stderr:     o.Stderr,
			Aggregated: o.Aggregated,
			DurationMS: o.Duration.Milliseconds(),
			TimedOut:   o.TimedOut,
		}, true
	case errors.As(execErr, &signalErr):
		return execResult{Status: "killed_by_signal", ExitCode: -1, Signal: signalErr.Signal}, true
	case errors.As(execErr, &invalidErr):
		return execResult{Status: "invalid_input", ExitCode: -1, Stderr: invalidErr.Error()}, true
	case errors.As(execErr, &spawnErr):
		return execResult{Status: "spawn_failure", ExitCode: -1, Stderr: spawnErr.Error()}, true
	default:
		return execResult{Status: "io_error", ExitCode: -1, Stderr: execErr.Error()}, true
	}
}

// notificationSink forwards live output deltas as MCP notifications.
type notificationSink struct {
	ctx    context.Context
	server *server.MCPServer
	logger *zap.Logger
}

func (n *notificationSink) OutputDelta(d exec.Delta) {
	err := n.server.SendNotificationToClient(n.ctx, "notifications/execbox/output_delta", map[string]any{
		"call_id": d.CallID,
		"stream":  d.Stream.String(),
		"chunk":   base64.StdEncoding.EncodeToString(d.Chunk),
	})
	if err != nil {
		n.logger.Debug("dropping output delta", zap.Error(err))
	}
}

func stringSlice(v any) ([]string, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected an array of strings, got %T", v)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("expected a string element, got %T", item)
		}
		out = append(out, s)
	}
	return out, nil
}

func stringMap(v any) (map[string]string, error) {
	if v == nil {
		return nil, nil
	}
	entries, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected an object of strings, got %T", v)
	}
	out := make(map[string]string, len(entries))
	for k, item := range entries {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("expected a string value for %q, got %T", k, item)
		}
		out[k] = s
	}
	return out, nil
}

func inheritedEnv() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

// ServeStdio starts the server on stdio
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("starting MCP server on stdio")
	return server.ServeStdio(s.mcpServer)
}

// ServeHTTP starts the server on HTTP
func (s *MCPServer) ServeHTTP() error {
	port := s.config.Server.HTTPPort
	s.logger.Info("starting MCP server on HTTP", zap.Int("port", port))

	httpServer := server.NewStreamableHTTPServer(s.mcpServer)
	return httpServer.Start(fmt.Sprintf(":%d", port))
}

// GetMCPServer returns the underlying MCP server for fx
func (s *MCPServer) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}
