// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the chat commands as tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/xiaomizhoubaobei/astrbot-plugin-XMZ/internal/commands"
	"github.com/xiaomizhoubaobei/astrbot-plugin-XMZ/internal/relations"
)

const guideURI = "palacebot://command-guide"

// Server wraps the MCP server with the bot's tools.
type Server struct {
	mcp   *server.MCPServer
	bot   *commands.Router
	reg   *relations.Registry
	tools []string
}

// New creates a new MCP server with one tool per registered command.
func New(bot *commands.Router, reg *relations.Registry, version string) *Server {
	s := &Server{bot: bot, reg: reg}

	s.mcp = server.NewMCPServer(
		"Palacebot",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	for _, c := range bot.Commands() {
		s.addTool(mcp.NewTool(c.Name,
			mcp.WithDescription(c.Summary+". Usage: /"+c.Usage),
			mcp.WithString("arguments", mcp.Description("Command arguments separated by spaces")),
			mcp.WithString("group_id", mcp.Description("Chat group the command runs in; empty for a private chat")),
			mcp.WithString("image", mcp.Description("Optional screenshot reference attached to the message")),
		), s.command(c.Name))
	}

	s.addTool(mcp.NewTool("get_relation",
		mcp.WithDescription("Read one diplomatic relation by its stable id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Relation id as returned by the HTTP listing")),
	), s.getRelation)

	s.mcp.AddResource(
		mcp.NewResource(guideURI, "Command Guide",
			mcp.WithResourceDescription("How to call the palacebot tools."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readGuide,
	)

	return s
}

func (s *Server) addTool(tool mcp.Tool, h server.ToolHandlerFunc) {
	s.mcp.AddTool(tool, h)
	s.tools = append(s.tools, tool.Name)
}

// Tools returns the registered tool names in registration order.
func (s *Server) Tools() []string {
	return s.tools
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) command(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		msg := commands.Message{
			GroupID:  req.GetString("group_id", ""),
			SenderID: "mcp",
		}
		if img := req.GetString("image", ""); img != "" {
			msg.Attachments = commands.Images{{FileID: img}}
		}

		reply := s.bot.Execute(ctx, name, strings.Fields(req.GetString("arguments", "")), msg)
		if reply.Err != nil {
			return mcp.NewToolResultError(reply.Text), nil
		}
		text := reply.Text
		if reply.Image != "" {
			text += "\nimage: " + reply.Image
		}
		return mcp.NewToolResultText(text), nil
	}
}

type relationView struct {
	ID            string `json:"id"`
	Group         string `json:"group"`
	PartnerName   string `json:"partner_name"`
	PartnerID     string `json:"partner_id"`
	TheirDiplomat string `json:"their_diplomat"`
	OurDiplomat   string `json:"our_diplomat"`
	Screenshot    string `json:"screenshot,omitempty"`
}

func (s *Server) getRelation(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	group, rec, err := s.reg.Get(id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(relationView{
		ID:            rec.ID,
		Group:         group,
		PartnerName:   rec.PartnerName,
		PartnerID:     rec.PartnerID,
		TheirDiplomat: rec.TheirDiplomat,
		OurDiplomat:   rec.OurDiplomat,
		Screenshot:    rec.Screenshot,
	}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readGuide(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      guideURI,
			MIMEType: "text/markdown",
			Text:     CommandGuide,
		},
	}, nil
}
