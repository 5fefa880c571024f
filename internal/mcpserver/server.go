// Package mcpserver exposes name-path lookups over a loaded scene as MCP
// tools, so an agent can explore a hierarchy and debug record declarations
// that do not resolve.
package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/agentic-research/descend/pkg/graph"
	"github.com/agentic-research/descend/pkg/resolve"
)

// Server serves resolution tools over one scene graph.
type Server struct {
	g   graph.Graph
	mcp *server.MCPServer
}

func New(g graph.Graph, version string) *Server {
	s := &Server{
		g:   g,
		mcp: server.NewMCPServer("descend", version, server.WithToolCapabilities(false)),
	}

	s.mcp.AddTool(mcp.NewTool("resolve_path",
		mcp.WithDescription("Descend from a node following a name path, one level per segment. "+
			"The first child with a matching name is taken at each level."),
		mcp.WithString("root", mcp.Required(), mcp.Description("Node ID to start from")),
		mcp.WithArray("path", mcp.Description("Node names, one per level; empty means the root itself"),
			mcp.WithStringItems()),
	), s.resolvePath)

	s.mcp.AddTool(mcp.NewTool("leaf_paths",
		mcp.WithDescription("List the name path of every named leaf below a node."),
		mcp.WithString("root", mcp.Required(), mcp.Description("Node ID to enumerate from")),
	), s.leafPaths)

	s.mcp.AddTool(mcp.NewTool("locate_root",
		mcp.WithDescription("Find the root a record's field paths start from, relative to an attachment node."),
		mcp.WithString("attachment", mcp.Required(), mcp.Description("Attachment node ID")),
		mcp.WithString("root_name", mcp.Description("Name of the hierarchy root to search for")),
		mcp.WithString("strategy", mcp.Description("scene (default), child, direct or fixed"),
			mcp.Enum("scene", "child", "direct", "fixed")),
		mcp.WithString("fixed_root", mcp.Description("Root node ID for the fixed strategy")),
	), s.locateRoot)

	return s
}

// MCP returns the underlying server.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// ServeStdio serves on stdin and stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) resolvePath(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	root, err := req.RequireString("root")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	path := req.GetStringSlice("path", nil)

	id, ok := resolve.Path(graph.Snapshot(s.g), root, path)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("path %q not found below %q; name paths from there:\n%s",
			path, root, resolve.FormatPaths(resolve.CollectLeafPaths(s.g, root)))), nil
	}
	return mcp.NewToolResultText(id), nil
}

func (s *Server) leafPaths(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	root, err := req.RequireString("root")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := s.g.GetNode(root); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("node %q: %v", root, err)), nil
	}
	return mcp.NewToolResultText(resolve.FormatPaths(resolve.CollectLeafPaths(graph.Snapshot(s.g), root))), nil
}

func (s *Server) locateRoot(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	attachment, err := req.RequireString("attachment")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	st, err := resolve.ParseStrategy(req.GetString("strategy", ""), req.GetString("fixed_root", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	root, err := resolve.Locate(graph.Snapshot(s.g), st, attachment, req.GetString("root_name", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(root), nil
}
