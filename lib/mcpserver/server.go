// Package mcpserver exposes the Slack tools and workspace resources over
// the Model Context Protocol on stdio.
package mcpserver

import (
	"context"
	"fmt"

	"github.com/graytonio/slack-mcp/lib/cache"
	"github.com/graytonio/slack-mcp/lib/config"
	"github.com/graytonio/slack-mcp/lib/tools"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const serverVersion = "1.0.0"

type Server struct {
	mcp       *server.MCPServer
	api       tools.SlackAPI
	cache     *cache.Cache
	cfg       *config.Config
	workspace string
}

// New assembles the MCP server: every tool plus the users and channels
// directory resources.
func New(api tools.SlackAPI, c *cache.Cache, cfg *config.Config, workspace string) *Server {
	s := &Server{
		mcp: server.NewMCPServer(
			"slack-mcp",
			serverVersion,
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
			server.WithRecovery(),
		),
		api:       api,
		cache:     c,
		cfg:       cfg,
		workspace: workspace,
	}

	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio blocks serving MCP over stdin/stdout until the client hangs
// up.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) registerResources() {
	s.mcp.AddResourceTemplate(mcp.NewResourceTemplate(
		"slack://{workspace}/users",
		"Workspace users",
		mcp.WithTemplateDescription("Directory of all users in the workspace"),
		mcp.WithTemplateMIMEType("application/json"),
	), func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		payload, err := tools.UsersResource(ctx, s.cache)
		if err != nil {
			return nil, err
		}
		return s.jsonContents(req.Params.URI, payload), nil
	})

	s.mcp.AddResourceTemplate(mcp.NewResourceTemplate(
		"slack://{workspace}/channels",
		"Workspace channels",
		mcp.WithTemplateDescription("Directory of all channels, DMs and group DMs in the workspace"),
		mcp.WithTemplateMIMEType("application/json"),
	), func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		payload, err := tools.ChannelsResource(ctx, s.cache)
		if err != nil {
			return nil, err
		}
		return s.jsonContents(req.Params.URI, payload), nil
	})
}

func (s *Server) jsonContents(uri, payload string) []mcp.ResourceContents {
	if uri == "" {
		uri = fmt.Sprintf("slack://%s/", s.workspace)
	}
	return []mcp.ResourceContents{mcp.TextResourceContents{
		URI:      uri,
		MIMEType: "application/json",
		Text:     payload,
	}}
}
