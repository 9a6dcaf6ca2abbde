// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the recent files list for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/recentfiles/internal/apperr"
	"github.com/starford/recentfiles/internal/models"
	"github.com/starford/recentfiles/internal/recentservice"
	"github.com/starford/recentfiles/internal/settings"
)

// StateURI is the resource holding the persisted document.
const StateURI = "recent://state"

// Server wraps the MCP server with the recent files tools.
type Server struct {
	mcp *server.MCPServer
	svc *recentservice.Service
}

// New creates a new MCP server with all tools registered.
func New(svc *recentservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"recentfiles",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_recent_files",
		mcp.WithDescription("List recently opened vault files, most recent first. "+
			"Entries whose file no longer exists are dropped."),
		mcp.WithString("active", mcp.Description("Optional path of the currently active file")),
	), s.listRecentFiles)

	s.mcp.AddTool(mcp.NewTool("record_file_open",
		mcp.WithDescription("Record that a vault file was opened, moving it to the top of the list. "+
			"Files matching the exclusion rules are ignored."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Vault-relative path (e.g. folder/note.md)")),
	), s.recordFileOpen)

	s.mcp.AddTool(mcp.NewTool("open_recent_file",
		mcp.WithDescription("Open a listed file. A file that no longer exists is removed from the list."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Vault-relative path of a listed file")),
		mcp.WithString("mode",
			mcp.Description("Where to open the file"),
			mcp.Enum(string(models.OpenSamePane), string(models.OpenNewTab), string(models.OpenNewSplit))),
	), s.openRecentFile)

	s.mcp.AddTool(mcp.NewTool("remove_recent_file",
		mcp.WithDescription("Remove a file from the list without touching the file itself."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Vault-relative path of a listed file")),
	), s.removeRecentFile)

	s.mcp.AddTool(mcp.NewTool("clear_recent_files",
		mcp.WithDescription("Remove every entry from the list."),
	), s.clearRecentFiles)

	s.mcp.AddTool(mcp.NewTool("get_recent_settings",
		mcp.WithDescription("Return the exclusion rules and list length."),
	), s.getRecentSettings)

	s.mcp.AddTool(mcp.NewTool("update_recent_settings",
		mcp.WithDescription("Update the exclusion rules or list length. Omitted arguments are unchanged."),
		mcp.WithString("omitted_paths", mcp.Description("Newline-separated regular expressions matched against vault paths")),
		mcp.WithString("omitted_tags", mcp.Description("Newline-separated frontmatter tags")),
		mcp.WithString("max_length", mcp.Description("Maximum list length; empty for the default of 50, at most 1000")),
	), s.updateRecentSettings)

	s.mcp.AddResource(
		mcp.NewResource(StateURI, "Recent files state",
			mcp.WithResourceDescription("The persisted recent files document."),
			mcp.WithMIMEType("application/json"),
		),
		s.readStateResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) listRecentFiles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items := s.svc.List(ctx, req.GetString("active", ""))
	return jsonResult(items), nil
}

func (s *Server) recordFileOpen(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	recorded, err := s.svc.RecordOpen(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !recorded {
		return mcp.NewToolResultText(fmt.Sprintf("not recorded: %s", path)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("recorded: %s", path)), nil
}

func (s *Server) openRecentFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	mode := models.OpenMode(req.GetString("mode", string(models.OpenSamePane)))
	res, err := s.svc.Open(ctx, path, mode)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(recentservice.MissingNotice(path)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res), nil
}

func (s *Server) removeRecentFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.Remove(ctx, path); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not in list: %s", path)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("removed: %s", path)), nil
}

func (s *Server) clearRecentFiles(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.svc.Clear(ctx)
	return mcp.NewToolResultText("cleared"), nil
}

func (s *Server) getRecentSettings(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.Settings(ctx)), nil
}

func (s *Server) updateRecentSettings(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	optional := func(key string) *string {
		v, ok := args[key].(string)
		if !ok {
			return nil
		}
		return &v
	}
	u := settings.Update{
		OmittedPaths: optional("omitted_paths"),
		OmittedTags:  optional("omitted_tags"),
		MaxLength:    optional("max_length"),
	}
	if u.Empty() {
		return mcp.NewToolResultError("nothing to update"), nil
	}
	v, err := s.svc.UpdateSettings(ctx, u)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(v), nil
}

func (s *Server) readStateResource(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	out, err := json.MarshalIndent(s.svc.Snapshot(ctx), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcpserver: encode state: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      StateURI,
			MIMEType: "application/json",
			Text:     string(out),
		},
	}, nil
}
