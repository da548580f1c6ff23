package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/meetprep/internal/async"
	"github.com/Aman-CERP/meetprep/internal/engine"
	"github.com/Aman-CERP/meetprep/internal/match"
	"github.com/Aman-CERP/meetprep/pkg/version"
)

// ServerName is the MCP implementation name.
const ServerName = "meetprep"

// Engine answers meeting-context queries. *engine.Manager implements it.
type Engine interface {
	Query(ctx context.Context, q match.QueryContext) engine.Result
	Status() async.StatusSnapshot
}

// ToolInfo describes a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

var tools = []ToolInfo{
	{
		Name:        "meeting_context",
		Description: "Find the notes most relevant to an upcoming meeting. Give a title, description, attendees and topics; returns ranked notes with scores, the signals that matched and short snippets.",
	},
	{
		Name:        "index_status",
		Description: "Report whether the notes index is ready, how many notes it holds and the progress of any running build.",
	},
}

// Server bridges MCP clients and the engine.
type Server struct {
	mcp    *mcp.Server
	engine Engine
	root   string
	logger *slog.Logger
}

// NewServer creates a server over eng for the corpus at root.
func NewServer(eng Engine, root string) (*Server, error) {
	if eng == nil {
		return nil, errors.New("engine is required")
	}
	s := &Server{
		engine: eng,
		root:   root,
		logger: slog.Default(),
	}
	s.mcp = mcp.NewServer(&mcp.Implementation{Name: ServerName, Version: version.Version}, nil)
	s.registerTools()
	return s, nil
}

// MCPServer returns the underlying SDK server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// ListTools returns the registered tools.
func (s *Server) ListTools() []ToolInfo {
	return append([]ToolInfo(nil), tools...)
}

// CallTool invokes a tool by name. meeting_context returns markdown and
// index_status returns *IndexStatusOutput.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case "meeting_context":
		var in MeetingContextInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		out, err := s.MeetingContext(ctx, in)
		if err != nil {
			return nil, err
		}
		return FormatMeetingContext(in.Title, out), nil
	case "index_status":
		return s.indexStatus(), nil
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

// Serve runs the server on transport until ctx ends. Only stdio is
// supported.
func (s *Server) Serve(ctx context.Context, transport string) error {
	if transport != "stdio" {
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
	s.logger.Info("mcp_server_starting", slog.String("transport", transport), slog.String("root", s.root))

	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("mcp_server_stopped", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("mcp_server_stopped")
	return nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[0].Name, Description: tools[0].Description}, s.mcpMeetingContextHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[1].Name, Description: tools[1].Description}, s.mcpIndexStatusHandler)
	s.logger.Debug("mcp_tools_registered", slog.Int("count", len(tools)))
}

func (s *Server) mcpMeetingContextHandler(ctx context.Context, _ *mcp.CallToolRequest, in MeetingContextInput) (
	*mcp.CallToolResult,
	MeetingContextOutput,
	error,
) {
	out, err := s.MeetingContext(ctx, in)
	if err != nil {
		return nil, MeetingContextOutput{}, err
	}
	return nil, out, nil
}

func (s *Server) mcpIndexStatusHandler(_ context.Context, _ *mcp.CallToolRequest, _ IndexStatusInput) (
	*mcp.CallToolResult,
	*IndexStatusOutput,
	error,
) {
	return nil, s.indexStatus(), nil
}

// MeetingContext validates in and queries the engine, returning the
// structured tool output.
func (s *Server) MeetingContext(ctx context.Context, in MeetingContextInput) (MeetingContextOutput, error) {
	q, err := in.QueryContext()
	if err != nil {
		return MeetingContextOutput{}, err
	}

	start := time.Now()
	requestID := generateRequestID()
	res := s.engine.Query(ctx, q)
	if err := ctx.Err(); err != nil {
		return MeetingContextOutput{}, MapError(err)
	}

	out := ToMeetingContextOutput(res, in.TopK)
	s.logger.Info("meeting_context_completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", time.Since(start)),
		slog.Int("result_count", len(out.Matches)),
		slog.Bool("index_not_ready", out.IndexNotReady))
	return out, nil
}

func (s *Server) indexStatus() *IndexStatusOutput {
	return ToIndexStatusOutput(s.engine.Status(), s.root)
}

// decodeArgs maps loosely typed arguments onto an input struct.
func decodeArgs(args map[string]any, dst any) error {
	if len(args) == 0 {
		return nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return NewInvalidParamsError(err.Error())
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return NewInvalidParamsError(fmt.Sprintf("invalid arguments: %v", err))
	}
	return nil
}

// generateRequestID creates a short request ID for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
