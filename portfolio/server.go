// Package portfolio is the capability provider: an MCP server that exposes
// the portfolio corpus as resources, query tools and prompt templates.
//
// Information Hiding:
// - Document layout of each corpus section
// - MCP registration details
package portfolio

import (
	"context"
	"fmt"
	"log/slog"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/sahana359/sahanarajashekara/corpus"
	"github.com/sahana359/sahanarajashekara/prompt"
)

// URIScheme prefixes every resource URI.
const URIScheme = "portfolio://"

// Version is set at build time via ldflags.
var Version = "dev"

// ResourceKeys lists the sections served as resources.
var ResourceKeys = []string{
	corpus.KeyAbout,
	corpus.KeyEducation,
	corpus.KeyExperience,
	corpus.KeyProjects,
	corpus.KeySkills,
	corpus.KeyCertificates,
	corpus.KeyAdventures,
	corpus.KeyJackie,
}

// Options configures NewServer.
type Options struct {
	Name   string
	Owner  string
	Logger *slog.Logger
}

// Portfolio answers resource reads, tool calls and prompt requests from a
// corpus snapshot.
type Portfolio struct {
	snap   *corpus.Snapshot
	owner  string
	logger *slog.Logger
}

// NewServer builds an MCP server over snap with every resource, tool and
// prompt registered.
func NewServer(snap *corpus.Snapshot, opts Options) *server.MCPServer {
	name := opts.Name
	if name == "" {
		name = "Portfolio MCP Server"
	}
	p := &Portfolio{snap: snap, owner: opts.Owner, logger: opts.Logger}
	if p.owner == "" {
		p.owner = prompt.DefaultOwner
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}

	s := server.NewMCPServer(
		name,
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
	)

	p.registerResources(s)
	p.registerTools(s)
	p.registerPrompts(s)
	return s
}

func (p *Portfolio) registerResources(s *server.MCPServer) {
	first := firstName(p.owner)
	for _, key := range ResourceKeys {
		description := fmt.Sprintf("%s's %s", first, key)
		if key == corpus.KeyJackie {
			description = fmt.Sprintf("Information about Jackie, %s's dog", first)
		}
		s.AddResource(
			mcpgo.NewResource(URIScheme+key, key,
				mcpgo.WithResourceDescription(description),
				mcpgo.WithMIMEType("application/json"),
			),
			p.readResource(key),
		)
	}
}

func (p *Portfolio) readResource(key string) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcpgo.ReadResourceRequest) ([]mcpgo.ResourceContents, error) {
		doc, ok := p.snap.Get(key)
		if !ok {
			p.logger.Warn("portfolio.resource_missing", "uri", req.Params.URI)
			return nil, fmt.Errorf("resource %s is not available", req.Params.URI)
		}
		return []mcpgo.ResourceContents{
			mcpgo.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     prompt.Render(doc),
			},
		}, nil
	}
}
